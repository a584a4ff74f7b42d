package scenario

import (
	"encoding/json"

	"github.com/mohae/deepcopy"
)

// Company is one side of the negotiation.
type Company struct {
	Name    string `json:"name"`
	Profile string `json:"profile"`
}

// PriceExpectation holds the two price anchors of a bargaining scenario.
type PriceExpectation struct {
	StudentTarget string `json:"student_target"`
	AIBottomLine  string `json:"ai_bottom_line"`
}

// Product is the traded good or service.
type Product struct {
	Name                string            `json:"name"`
	Specifications      string            `json:"specifications"`
	QuantityRequirement string            `json:"quantity_requirement"`
	PriceExpectation    *PriceExpectation `json:"price_expectation,omitempty"`
	Highlights          []string          `json:"highlights,omitempty"`
}

// Scenario is a negotiation briefing. The typed fields cover what every section
// uses; section-specific content (payment_terms_matrix, arbitration_clause_focus, ...)
// lives in Extra as decoded JSON values.
type Scenario struct {
	Title              string
	Summary            string
	StudentRole        string
	StudentCompany     Company
	AIRole             string
	AICompany          Company
	AIRules            []string
	Product            Product
	MarketLandscape    string
	Timeline           string
	Logistics          string
	Risks              []string
	NegotiationTargets []string
	CommunicationTone  string
	Checklist          []string
	KnowledgePoints    []string
	OpeningMessage     string

	DifficultyKey         string
	DifficultyLabel       string
	DifficultyDescription string

	// Extra holds every key outside the known set. Values are string, float64,
	// bool, []any, map[string]any or nil.
	Extra map[string]any
	// CustomVariables is the instructor-authored custom_variables map.
	CustomVariables map[string]any
}

// knownKeys are consumed by FromMap and never land in Extra.
var knownKeys = map[string]struct{}{
	"scenario_title": {}, "scenario_summary": {}, "title": {}, "summary": {},
	"student_role": {}, "student_company": {}, "ai_role": {}, "ai_company": {},
	"ai_rules": {}, "product": {}, "market_landscape": {}, "timeline": {},
	"logistics": {}, "risks": {}, "negotiation_targets": {}, "communication_tone": {},
	"checklist": {}, "knowledge_points": {}, "opening_message": {},
	"difficulty": {}, "difficulty_key": {}, "difficulty_label": {}, "difficulty_description": {},
	"custom_variables": {}, "customVariables": {},
}

// IsKnownKey reports whether key is part of the typed scenario shape.
func IsKnownKey(key string) bool {
	_, ok := knownKeys[key]
	return ok
}

// FromMap builds a Scenario from loosely shaped input (model output, stored
// blueprints, legacy payloads). It never fails: anything missing or malformed
// becomes an empty value.
func FromMap(m map[string]any) *Scenario {
	if m == nil {
		m = map[string]any{}
	}
	s := &Scenario{
		Title:                 NormalizeText(firstTruthy(m, "scenario_title", "title")),
		Summary:               NormalizeText(firstTruthy(m, "scenario_summary", "summary")),
		StudentRole:           NormalizeText(m["student_role"]),
		StudentCompany:        NormalizeCompany(m["student_company"]),
		AIRole:                NormalizeText(m["ai_role"]),
		AICompany:             NormalizeCompany(m["ai_company"]),
		AIRules:               NormalizeList(m["ai_rules"]),
		Product:               NormalizeProduct(m["product"]),
		MarketLandscape:       NormalizeText(m["market_landscape"]),
		Timeline:              NormalizeText(m["timeline"]),
		Logistics:             NormalizeText(m["logistics"]),
		Risks:                 NormalizeList(m["risks"]),
		NegotiationTargets:    NormalizeList(m["negotiation_targets"]),
		CommunicationTone:     NormalizeText(m["communication_tone"]),
		Checklist:             NormalizeList(m["checklist"]),
		KnowledgePoints:       NormalizeList(m["knowledge_points"]),
		OpeningMessage:        NormalizeText(m["opening_message"]),
		DifficultyKey:         NormalizeText(firstTruthy(m, "difficulty_key", "difficulty")),
		DifficultyLabel:       NormalizeText(m["difficulty_label"]),
		DifficultyDescription: NormalizeText(m["difficulty_description"]),
	}
	if cv, ok := firstTruthy(m, "custom_variables", "customVariables").(map[string]any); ok {
		s.CustomVariables = deepcopy.Copy(cv).(map[string]any)
	}
	for k, v := range m {
		if IsKnownKey(k) {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[k] = deepcopy.Copy(v)
	}
	return s
}

// ToMap returns the snake_case wire form. Extra keys are merged without
// overriding typed fields.
func (s *Scenario) ToMap() map[string]any {
	m := map[string]any{
		"scenario_title":      s.Title,
		"scenario_summary":    s.Summary,
		"student_role":        s.StudentRole,
		"student_company":     companyMap(s.StudentCompany),
		"ai_role":             s.AIRole,
		"ai_company":          companyMap(s.AICompany),
		"ai_rules":            stringsToAny(s.AIRules),
		"product":             productMap(s.Product),
		"market_landscape":    s.MarketLandscape,
		"timeline":            s.Timeline,
		"logistics":           s.Logistics,
		"risks":               stringsToAny(s.Risks),
		"negotiation_targets": stringsToAny(s.NegotiationTargets),
		"communication_tone":  s.CommunicationTone,
		"checklist":           stringsToAny(s.Checklist),
		"knowledge_points":    stringsToAny(s.KnowledgePoints),
		"opening_message":     s.OpeningMessage,
	}
	if s.DifficultyKey != "" {
		m["difficulty_key"] = s.DifficultyKey
	}
	if s.DifficultyLabel != "" {
		m["difficulty_label"] = s.DifficultyLabel
	}
	if s.DifficultyDescription != "" {
		m["difficulty_description"] = s.DifficultyDescription
	}
	if len(s.CustomVariables) > 0 {
		m["custom_variables"] = deepcopy.Copy(s.CustomVariables)
	}
	for k, v := range s.Extra {
		if _, taken := m[k]; taken {
			continue
		}
		m[k] = deepcopy.Copy(v)
	}
	return m
}

// Clone returns a deep copy.
func (s *Scenario) Clone() *Scenario {
	if s == nil {
		return nil
	}
	c := *s
	c.AIRules = cloneStrings(s.AIRules)
	c.Risks = cloneStrings(s.Risks)
	c.NegotiationTargets = cloneStrings(s.NegotiationTargets)
	c.Checklist = cloneStrings(s.Checklist)
	c.KnowledgePoints = cloneStrings(s.KnowledgePoints)
	c.Product.Highlights = cloneStrings(s.Product.Highlights)
	if s.Product.PriceExpectation != nil {
		pe := *s.Product.PriceExpectation
		c.Product.PriceExpectation = &pe
	}
	if s.Extra != nil {
		c.Extra = deepcopy.Copy(s.Extra).(map[string]any)
	}
	if s.CustomVariables != nil {
		c.CustomVariables = deepcopy.Copy(s.CustomVariables).(map[string]any)
	}
	return &c
}

// MarshalJSON encodes the snake_case wire form.
func (s *Scenario) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToMap())
}

// UnmarshalJSON decodes any accepted input shape through FromMap.
func (s *Scenario) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*s = *FromMap(m)
	return nil
}

func companyMap(c Company) map[string]any {
	return map[string]any{"name": c.Name, "profile": c.Profile}
}

func productMap(p Product) map[string]any {
	m := map[string]any{
		"name":                 p.Name,
		"specifications":       p.Specifications,
		"quantity_requirement": p.QuantityRequirement,
	}
	if p.PriceExpectation != nil {
		m["price_expectation"] = map[string]any{
			"student_target": p.PriceExpectation.StudentTarget,
			"ai_bottom_line": p.PriceExpectation.AIBottomLine,
		}
	}
	if len(p.Highlights) > 0 {
		m["highlights"] = stringsToAny(p.Highlights)
	}
	return m
}

func stringsToAny(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
