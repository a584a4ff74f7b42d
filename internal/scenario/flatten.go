package scenario

import (
	"encoding/json"
	"sort"
	"strings"

	"negotiation-tutor/internal/service/prompt"
)

// ListSeparator joins list values inside prose prompts.
const ListSeparator = "；"

// Flatten projects a scenario onto the placeholder names used by section
// templates. Keys outside the typed shape are exposed under their own names,
// followed by custom variables; neither overrides an earlier key.
func Flatten(s *Scenario) prompt.Context {
	if s == nil {
		s = &Scenario{}
	}
	price := s.Product.PriceExpectation
	if price == nil {
		price = &PriceExpectation{}
	}
	ctx := prompt.Context{
		"scenario_title":          s.Title,
		"scenario_summary":        s.Summary,
		"student_role":            s.StudentRole,
		"student_company_name":    s.StudentCompany.Name,
		"student_company_profile": s.StudentCompany.Profile,
		"ai_role":                 s.AIRole,
		"ai_company_name":         s.AICompany.Name,
		"ai_company_profile":      s.AICompany.Profile,
		"product_name":            s.Product.Name,
		"product_specs":           s.Product.Specifications,
		"product_quantity":        s.Product.QuantityRequirement,
		"product_highlights":      strings.Join(s.Product.Highlights, ListSeparator),
		"student_target_price":    price.StudentTarget,
		"ai_bottom_line":          price.AIBottomLine,
		"market_landscape":        s.MarketLandscape,
		"timeline":                s.Timeline,
		"logistics":               s.Logistics,
		"risks_summary":           strings.Join(s.Risks, ListSeparator),
		"negotiation_targets":     strings.Join(s.NegotiationTargets, ListSeparator),
		"checklist_summary":       strings.Join(s.Checklist, ListSeparator),
		"ai_rules_summary":        strings.Join(s.AIRules, ListSeparator),
		"communication_tone":      s.CommunicationTone,
		"opening_message":         s.OpeningMessage,
		"knowledge_points_hint":   strings.Join(s.KnowledgePoints, "、"),
		"negotiation_focus_hint":  strings.Join(s.NegotiationTargets, "、"),
		"difficulty_label":        s.DifficultyLabel,
		"difficulty_description":  s.DifficultyDescription,
	}
	for _, k := range sortedKeys(s.Extra) {
		if _, taken := ctx[k]; !taken {
			ctx[k] = Stringify(s.Extra[k])
		}
	}
	for _, k := range sortedKeys(s.CustomVariables) {
		if _, taken := ctx[k]; !taken {
			ctx[k] = Stringify(s.CustomVariables[k])
		}
	}
	return ctx
}

// Stringify renders an open-record value for prose: integral numbers lose
// their ".0", lists are joined with ListSeparator, and maps become
// "label: value" pairs (compact JSON when no pair has content).
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := Stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ListSeparator)
	case []string:
		return strings.Join(NormalizeList(t), ListSeparator)
	case map[string]any:
		if len(t) == 0 {
			return ""
		}
		parts := make([]string, 0, len(t))
		for _, k := range sortedKeys(t) {
			if s := Stringify(t[k]); s != "" {
				parts = append(parts, prompt.FieldLabel(k)+": "+s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ListSeparator)
		}
		raw, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(raw)
	default:
		return NormalizeText(t)
	}
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
