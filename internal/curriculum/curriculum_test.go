package curriculum

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"negotiation-tutor/internal/scenario"
	"negotiation-tutor/internal/service/prompt"
)

func TestDefault_Loads(t *testing.T) {
	st, err := Default()
	require.NoError(t, err)

	var ids []string
	for _, ch := range st.Chapters() {
		ids = append(ids, ch.ID)
		assert.NotEmpty(t, ch.Sections, ch.ID)
	}
	assert.Equal(t, []string{"chapter-0", "chapter-1", "chapter-2", "chapter-3", "chapter-4", "chapter-5", "chapter-6"}, ids)
}

func TestSection_Lookup(t *testing.T) {
	st, err := Default()
	require.NoError(t, err)

	sec, err := st.Section("chapter-2", "chapter-2-section-1")
	require.NoError(t, err)
	assert.Equal(t, "小节 1 · 报盘方案设计", sec.Title)
	assert.Equal(t, "第 2 章 · 报盘 Offer", sec.ChapterTitle)
	assert.True(t, sec.ExpectsBargaining)
	assert.Equal(t, scenario.Seller, sec.TradeRole())
	assert.Contains(t, sec.EnvironmentPromptTemplate, `"pricing_positioning"`)
	assert.Contains(t, sec.EnvironmentPromptTemplate, "章节：第 2 章 · 报盘 Offer")

	sec, err = st.Section("chapter-1", "chapter-1-section-1")
	require.NoError(t, err)
	assert.Equal(t, scenario.Buyer, sec.TradeRole())
	assert.False(t, sec.ExpectsBargaining)
}

func TestSection_NotFound(t *testing.T) {
	st, err := Default()
	require.NoError(t, err)

	_, err = st.Section("chapter-9", "chapter-9-section-1")
	assert.ErrorIs(t, err, ErrSectionNotFound)
	// section exists, but not under this chapter
	_, err = st.Section("chapter-1", "chapter-2-section-1")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

var unresolved = regexp.MustCompile(`\{[a-z_]+\}`)

// Every placeholder in a section's templates must be satisfiable by a
// scenario generated from that section's own skeleton.
func TestEverySectionRendersWithoutLeftovers(t *testing.T) {
	st, err := Default()
	require.NoError(t, err)

	for _, ch := range st.Chapters() {
		for _, sec := range ch.Sections {
			t.Run(sec.ID, func(t *testing.T) {
				raw := map[string]any{
					"scenario_title":      "t",
					"student_role":        "中国采购经理",
					"student_company":     map[string]any{"name": "n", "profile": "p"},
					"ai_role":             "r",
					"ai_company":          map[string]any{"name": "n", "profile": "p"},
					"product":             map[string]any{"name": "n", "specifications": "s", "quantity_requirement": "q", "price_expectation": map[string]any{"student_target": "1", "ai_bottom_line": "2"}},
					"market_landscape":    "m",
					"logistics":           "l",
					"risks":               []any{"r"},
					"communication_tone":  "c",
					"knowledge_points":    []any{"k"},
					"negotiation_targets": []any{"n"},
				}
				for _, key := range sec.ExtraFields {
					if _, ok := raw[key]; !ok {
						raw[key] = "x"
					}
				}
				if _, ok := raw["ai_rules"]; ok {
					raw["ai_rules"] = []any{"rule"}
				}
				ctx := scenario.Flatten(scenario.FromMap(raw))

				conv := prompt.Format(sec.ConversationPromptTemplate, ctx)
				eval := prompt.Format(sec.EvaluationPromptTemplate, ctx)
				assert.Empty(t, unresolved.FindAllString(conv, -1), "conversation")
				assert.Empty(t, unresolved.FindAllString(eval, -1), "evaluation")
				assert.True(t, strings.Contains(eval, `"score"`), "evaluation asks for a score")
				assert.Equal(t, sec.ExpectsBargaining, strings.Contains(eval, "bargaining_win_rate"), "win rate only for bargaining sections")
			})
		}
	}
}

func TestLoad_AggregatesErrors(t *testing.T) {
	doc := `
templates:
  conversation:
    a: "hi {ai_role}"
  evaluation:
    a: "rate"
chapters:
  - id: c1
    title: Chapter
    sections:
      - id: s1
        title: One
        user_message: go
        conversation: missing
        evaluation: a
      - id: s2
        title: Two
        conversation: a
        evaluation: a
        extra_fields: [not_a_field]
      - id: s1
        title: Dup
        user_message: go
        conversation: a
        evaluation: a
`
	_, err := Load([]byte(doc))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown conversation template "missing"`)
	assert.Contains(t, msg, "s2: empty user_message")
	assert.Contains(t, msg, "not_a_field")
	assert.Contains(t, msg, "c1/s1: duplicate id")
	assert.ErrorIs(t, err, prompt.ErrUnknownField)
}

func TestLoad_RejectsEmptyDocument(t *testing.T) {
	_, err := Load([]byte("version: 1\n"))
	assert.ErrorContains(t, err, "no chapters defined")

	_, err = Load([]byte("chapters: [\n"))
	assert.ErrorContains(t, err, "curriculum: parse")
}
