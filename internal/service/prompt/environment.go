package prompt

import (
	"fmt"
	"strings"
)

// BuildEnvironmentPrompt renders the generation instruction for one section: a short
// briefing followed by the JSON skeleton, one field per line with its label as a comment.
func BuildEnvironmentPrompt(chapterTitle, sectionTitle string, extraKeys []string) (string, error) {
	fields, err := ResolveFields(extraKeys)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("你正在为《AI 外贸谈判课助手》的实训课设计章节场景。\n")
	fmt.Fprintf(&b, "章节：%s\n", chapterTitle)
	fmt.Fprintf(&b, "小节：%s\n\n", sectionTitle)
	b.WriteString("请用沉浸式方式构建贸易谈判训练关卡，并**只输出 JSON**，不要包含任何额外文字或代码块。\n\n")
	b.WriteString("JSON 结构需严格使用以下键名（// 之后为字段说明，输出时请删除）：\n")
	b.WriteString(skeleton(fields))
	b.WriteString("\n\n所有字段均需使用简体中文，可穿插必要的专业英文术语。")
	return b.String(), nil
}

// MustBuildEnvironmentPrompt is BuildEnvironmentPrompt for statically known field lists.
func MustBuildEnvironmentPrompt(chapterTitle, sectionTitle string, extraKeys []string) string {
	s, err := BuildEnvironmentPrompt(chapterTitle, sectionTitle, extraKeys)
	if err != nil {
		panic(err)
	}
	return s
}

func skeleton(fields []FieldSpec) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range fields {
		sep := ","
		if i == len(fields)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  %q: %s%s  // %s\n", f.Key, f.Shape, sep, f.Label)
	}
	b.WriteString("}")
	return b.String()
}
