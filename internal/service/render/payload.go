package render

import (
	"encoding/json"
	"sort"
	"strings"

	"negotiation-tutor/internal/difficulty"
	"negotiation-tutor/internal/scenario"
	"negotiation-tutor/internal/service/prompt"
)

// CustomField is one section-specific scenario entry prepared for display.
type CustomField struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Items []string `json:"items"`
}

// Payload is the camelCase scenario view returned to API clients. Prompts and
// other internal fields are never part of it.
type Payload struct {
	Title                 string           `json:"title"`
	Summary               string           `json:"summary"`
	StudentRole           string           `json:"studentRole"`
	StudentCompany        scenario.Company `json:"studentCompany"`
	AIRole                string           `json:"aiRole"`
	AICompany             scenario.Company `json:"aiCompany"`
	AIRules               []string         `json:"aiRules"`
	Product               scenario.Product `json:"product"`
	MarketLandscape       string           `json:"marketLandscape"`
	Timeline              string           `json:"timeline"`
	Logistics             string           `json:"logistics"`
	Risks                 []string         `json:"risks"`
	NegotiationTargets    []string         `json:"negotiationTargets"`
	CommunicationTone     string           `json:"communicationTone"`
	Checklist             []string         `json:"checklist"`
	KnowledgePoints       []string         `json:"knowledgePoints"`
	CustomFields          []CustomField    `json:"customFields"`
	Difficulty            string           `json:"difficulty"`
	DifficultyLabel       string           `json:"difficultyLabel"`
	DifficultyDescription string           `json:"difficultyDescription"`
}

// BuildPayload projects s for API responses. Difficulty metadata missing
// from s is filled from the matching preset.
func BuildPayload(s *scenario.Scenario) Payload {
	if s == nil {
		s = scenario.FromMap(nil)
	}
	key := s.DifficultyKey
	if key == "" {
		key = difficulty.Default
	}
	p := difficulty.Lookup(key)
	label, desc := s.DifficultyLabel, s.DifficultyDescription
	if label == "" {
		label = p.Label
	}
	if desc == "" {
		desc = p.Description
	}
	return Payload{
		Title:                 s.Title,
		Summary:               s.Summary,
		StudentRole:           s.StudentRole,
		StudentCompany:        s.StudentCompany,
		AIRole:                s.AIRole,
		AICompany:             s.AICompany,
		AIRules:               nonNil(s.AIRules),
		Product:               s.Product,
		MarketLandscape:       s.MarketLandscape,
		Timeline:              s.Timeline,
		Logistics:             s.Logistics,
		Risks:                 nonNil(s.Risks),
		NegotiationTargets:    nonNil(s.NegotiationTargets),
		CommunicationTone:     s.CommunicationTone,
		Checklist:             nonNil(s.Checklist),
		KnowledgePoints:       nonNil(s.KnowledgePoints),
		CustomFields:          CustomFields(s),
		Difficulty:            key,
		DifficultyLabel:       label,
		DifficultyDescription: desc,
	}
}

// CustomFields lists the scenario's section-specific entries followed by
// custom variables not already covered, each in key order. Entries that
// render to no lines are skipped. A map value holding "items" or "value" is
// unwrapped, and its "label" overrides the catalog label.
func CustomFields(s *scenario.Scenario) []CustomField {
	out := []CustomField{}
	if s == nil {
		return out
	}
	seen := make(map[string]struct{}, len(s.Extra))
	add := func(key string, value any) {
		label := ""
		if m, ok := value.(map[string]any); ok {
			_, hasItems := m["items"]
			_, hasValue := m["value"]
			if hasItems || hasValue {
				if l, ok := m["label"].(string); ok {
					label = l
				}
				if hasItems {
					value = m["items"]
				} else {
					value = m["value"]
				}
			}
		}
		items := valueLines(value)
		if len(items) == 0 {
			return
		}
		if label == "" {
			label = prompt.FieldLabel(key)
		}
		out = append(out, CustomField{Key: key, Label: label, Items: items})
	}

	for _, k := range sortedKeys(s.Extra) {
		if s.Extra[k] == nil {
			continue
		}
		seen[k] = struct{}{}
		add(k, s.Extra[k])
	}
	for _, k := range sortedKeys(s.CustomVariables) {
		if _, dup := seen[k]; dup {
			continue
		}
		add(k, s.CustomVariables[k])
	}
	return out
}

func valueLines(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t = strings.TrimSpace(t); t != "" {
			return []string{t}
		}
		return nil
	case bool:
		if t {
			return []string{"Yes"}
		}
		return []string{"No"}
	case []any:
		var lines []string
		for _, item := range t {
			lines = append(lines, valueLines(item)...)
		}
		return lines
	case []string:
		var lines []string
		for _, item := range t {
			lines = append(lines, valueLines(item)...)
		}
		return lines
	case map[string]any:
		var lines []string
		for _, k := range sortedKeys(t) {
			sub := valueLines(t[k])
			if len(sub) == 0 {
				continue
			}
			lines = append(lines, prompt.FieldLabel(k)+": "+strings.Join(sub, "; "))
		}
		if len(lines) > 0 {
			return lines
		}
		raw, err := json.Marshal(t)
		if err != nil || string(raw) == "{}" {
			return nil
		}
		return []string{string(raw)}
	default:
		if text := scenario.NormalizeText(t); text != "" {
			return []string{text}
		}
		return nil
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
