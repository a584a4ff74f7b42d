// Package difficulty holds the opponent presets a student can pick before a
// practice round and applies them to a scenario.
package difficulty

import (
	"strings"

	"negotiation-tutor/internal/scenario"
)

// Default is used for blank or unknown keys.
const Default = "balanced"

// Profile is one opponent preset. Hints are appended to the scenario; an empty
// hint leaves the scenario field alone.
type Profile struct {
	Key            string `json:"key"`
	Label          string `json:"label"`
	Description    string `json:"description"`
	PromptSuffix   string `json:"promptSuffix,omitempty"`
	ToneHint       string `json:"toneHint,omitempty"`
	BottomLineHint string `json:"bottomLineHint,omitempty"`
}

var order = []string{"friendly", Default, "tough", "shrewd"}

// profiles is never mutated after init.
var profiles = map[string]Profile{
	"friendly": {
		Key:         "friendly",
		Label:       "友好型 · 引导与鼓励",
		Description: "语气温暖，适度让步以支持学生梳理思路并建立自信。",
		PromptSuffix: "你是一位友好型的谈判对手，会主动给予积极反馈、概括要点，" +
			"并在学生出现疏漏时给出提醒或示范句型。适度分享行业见解，鼓励学生提出更多澄清问题，" +
			"在价格或条款上可在原底线上最多让步约 5% 以换取长期合作。",
		ToneHint:       "语气更温暖、积极，主动给予肯定与指导。",
		BottomLineHint: "可在原有底线上额外让步约 5%，强调合作诚意。",
	},
	Default: {
		Key:         Default,
		Label:       "默认 · 平衡博弈",
		Description: "保持专业礼貌，兼顾自身立场与合作机会。",
	},
	"tough": {
		Key:         "tough",
		Label:       "强硬型 · 严守底线",
		Description: "语气坚定谨慎，强调风险控制与公司底线。",
		PromptSuffix: "你是一位强硬型的谈判对手，强调风控与底线意识。" +
			"当学生尝试议价时，请要求其提供充分理由或额外让步，" +
			"并重申关键条款的重要性。只有在获得确凿价值回报时才考虑微量让步。",
		ToneHint:       "语气更为坚定，明确指出风险与不可退让的条件。",
		BottomLineHint: "底线不可轻易突破，除非学生提供充分价值交换。",
	},
	"shrewd": {
		Key:         "shrewd",
		Label:       "精明型 · 灵活试探",
		Description: "善于条件交换与试探，关注整体收益最大化。",
		PromptSuffix: "你是一位精明型的谈判对手，善于抛出条件交换并观察学生反应。" +
			"请通过试探问题与设定多种方案，引导学生思考让步条件，" +
			"在关键价格或条款上保持敏锐并要求对等回报。",
		ToneHint:       "语气务实敏锐，喜欢提出条件交换与方案比较。",
		BottomLineHint: "可根据学生的回报方案灵活调整底线范围。",
	},
}

// Normalize maps any input to a known preset key.
func Normalize(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if _, ok := profiles[key]; ok {
		return key
	}
	return Default
}

// Lookup never fails: unknown keys resolve to the balanced preset.
func Lookup(key string) Profile {
	return profiles[Normalize(key)]
}

// All lists the presets in display order.
func All() []Profile {
	out := make([]Profile, 0, len(order))
	for _, k := range order {
		out = append(out, profiles[k])
	}
	return out
}

// Apply returns a copy of s carrying the preset's metadata, tone hint and
// bottom-line hint. s is not modified. Applying the same key twice leaves the
// second result equal to the first.
func Apply(s *scenario.Scenario, key string) (*scenario.Scenario, Profile) {
	p := Lookup(key)
	out := s.Clone()
	if out == nil {
		out = scenario.FromMap(nil)
	}
	out.DifficultyKey = p.Key
	out.DifficultyLabel = p.Label
	out.DifficultyDescription = p.Description

	out.CommunicationTone = appendHint(out.CommunicationTone, p.ToneHint)

	if pe := out.Product.PriceExpectation; pe != nil && p.BottomLineHint != "" {
		if strings.TrimSpace(pe.AIBottomLine) == "" {
			pe.AIBottomLine = p.BottomLineHint
		} else {
			pe.AIBottomLine = appendHint(pe.AIBottomLine, p.BottomLineHint)
		}
	}
	return out, p
}

func appendHint(base, hint string) string {
	switch {
	case hint == "" || strings.Contains(base, hint):
		return base
	case base == "":
		return hint
	default:
		return base + "（" + hint + "）"
	}
}
