package scenario

// FromBlueprint assembles a scenario from instructor-authored input. Blueprints come
// from an editor that has used camelCase, snake_case and short names over time,
// so each field tries all of them.
func FromBlueprint(b map[string]any) *Scenario {
	if b == nil {
		b = map[string]any{}
	}
	s := &Scenario{
		Title:              FirstNonEmpty(b, "scenarioTitle", "scenario_title", "title", "name"),
		Summary:            FirstNonEmpty(b, "scenarioSummary", "scenario_summary", "summary", "description"),
		StudentRole:        FirstNonEmpty(b, "studentRole", "student_role", "student"),
		StudentCompany:     NormalizeCompany(firstTruthy(b, "studentCompany", "student_company")),
		AIRole:             FirstNonEmpty(b, "aiRole", "assistantRole", "ai_role"),
		AICompany:          NormalizeCompany(firstTruthy(b, "aiCompany", "ai_company")),
		AIRules:            NormalizeList(firstTruthy(b, "aiRules", "ai_rules")),
		Product:            NormalizeProduct(firstTruthy(b, "product", "productInfo")),
		MarketLandscape:    FirstNonEmpty(b, "marketLandscape", "market_landscape", "market"),
		Timeline:           FirstNonEmpty(b, "timeline", "delivery", "schedule"),
		Logistics:          FirstNonEmpty(b, "logistics", "tradeTerms", "shipping"),
		Risks:              NormalizeList(b["risks"]),
		NegotiationTargets: NormalizeList(firstTruthy(b, "negotiationTargets", "negotiation_targets")),
		CommunicationTone:  FirstNonEmpty(b, "communicationTone", "communication_tone", "tone"),
		Checklist:          NormalizeList(firstTruthy(b, "checklist", "taskChecklist")),
		KnowledgePoints:    NormalizeList(firstTruthy(b, "knowledgePoints", "knowledge_points")),
		OpeningMessage:     FirstNonEmpty(b, "openingMessage", "opening_message", "opening"),
	}
	if cv, ok := firstTruthy(b, "customVariables", "custom_variables").(map[string]any); ok {
		s.CustomVariables = FromMap(map[string]any{"custom_variables": cv}).CustomVariables
	}
	return s
}
