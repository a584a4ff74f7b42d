// Package render turns a scenario into the system prompts used during a
// practice session: one for the in-character conversation, one for grading.
package render

import (
	"fmt"
	"strings"

	"negotiation-tutor/internal/curriculum"
	"negotiation-tutor/internal/difficulty"
	"negotiation-tutor/internal/scenario"
	"negotiation-tutor/internal/service/prompt"
)

// PromptPair is the rendered conversation and evaluation prompt of a session.
type PromptPair struct {
	Conversation string `json:"conversationPrompt"`
	Evaluation   string `json:"evaluationPrompt"`
}

// FromSection renders a section's templates against s. Policy blocks are
// appended only when the rendered text does not already contain them, so
// rendering is stable when fed its own output. The result depends only on
// the inputs.
func FromSection(sec curriculum.Section, s *scenario.Scenario, p difficulty.Profile) PromptPair {
	ctx := scenario.Flatten(s)
	if ctx["knowledge_points_hint"] == "" {
		if sec.ExpectsBargaining {
			ctx["knowledge_points_hint"] = prompt.BargainingKnowledgeHint
		} else {
			ctx["knowledge_points_hint"] = prompt.WritingKnowledgeHint
		}
	}

	conv := prompt.Format(sec.ConversationPromptTemplate, ctx)
	conv = appendBlock(conv, "[難度設定]", p.PromptSuffix)
	conv = appendBlock(conv, "[案例多样性提醒]", prompt.ConversationDiversityHint)
	conv = appendBlock(conv, "[角色约束]", prompt.RoleConversationReminder)
	conv = appendBlock(conv, "[Language Requirement]", prompt.EnglishEnforcementHint)

	return PromptPair{
		Conversation: conv,
		Evaluation:   prompt.Format(sec.EvaluationPromptTemplate, ctx),
	}
}

// ForCustomAssignment builds English prompts for a instructor-authored scenario
// that has no curriculum section behind it.
func ForCustomAssignment(s *scenario.Scenario, p difficulty.Profile) PromptPair {
	if s == nil {
		s = scenario.FromMap(nil)
	}
	flat := scenario.Flatten(s)
	valueOr := func(key, fallback string) string {
		if v := strings.TrimSpace(flat[key]); v != "" {
			return v
		}
		return fallback
	}

	var rules strings.Builder
	for _, r := range s.AIRules {
		if r = strings.TrimSpace(r); r != "" {
			fmt.Fprintf(&rules, "- %s\n", r)
		}
	}
	rulesBlock := strings.TrimRight(rules.String(), "\n")
	if rulesBlock == "" {
		rulesBlock = "- Maintain consistency with the scenario details and protect your company's interests."
	}
	targets := "N/A"
	if len(s.NegotiationTargets) > 0 {
		targets = strings.Join(s.NegotiationTargets, "; ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s from %s.\n", valueOr("ai_role", "the supplier representative"), valueOr("ai_company_name", "the partner company"))
	fmt.Fprintf(&b, "The student is %s representing %s.\n\n", valueOr("student_role", "a Chinese trade professional"), valueOr("student_company_name", "their company"))
	b.WriteString("Scenario briefing:\n")
	fmt.Fprintf(&b, "- Product focus: %s (%s).\n", valueOr("product_name", "N/A"), valueOr("product_specs", "specifications TBD"))
	fmt.Fprintf(&b, "- Quantity / capacity: %s.\n", valueOr("product_quantity", "Discuss with the student"))
	fmt.Fprintf(&b, "- Market situation: %s.\n", valueOr("market_landscape", "Use industry-relevant details"))
	fmt.Fprintf(&b, "- Logistics & timeline: %s.\n", valueOr("logistics", "Negotiate feasible terms"))
	fmt.Fprintf(&b, "- Negotiation targets: %s.\n\n", targets)
	b.WriteString("Ground rules:\n")
	b.WriteString(rulesBlock)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Conduct the negotiation entirely in English. Adopt a tone that is %s. "+
		"Guide the student to articulate clear proposals, ask clarifying questions, and explore win-win trade-offs. "+
		"Reference real-world trade considerations whenever helpful.",
		valueOr("communication_tone", "Professional and courteous business English"))

	conv := b.String()
	conv = appendBlock(conv, "[Difficulty]", p.PromptSuffix)
	conv = appendBlock(conv, "[Language Requirement]", prompt.EnglishEnforcementHint)
	conv = appendBlock(conv, "[Role Reminder]", prompt.RoleEnforcementHint)

	eval := `You are an experienced trade negotiation coach. Review the scenario summary and the dialogue transcript to evaluate the student's performance. Respond in JSON with:
{
  "score": integer 0-100,
  "score_label": "Short label summarizing performance",
  "commentary": "Detailed Chinese feedback highlighting strengths and improvements",
  "action_items": ["3 concrete next steps"],
  "knowledge_points": ["Key knowledge points, prefer: ` + s.KnowledgePointsHint() + `"],
  "bargaining_win_rate": "0-100 if bargaining outcome is discussed, else null"
}

Focus on language quality, clarity of negotiation strategy, data support for proposals, and etiquette.`

	return PromptPair{Conversation: conv, Evaluation: eval}
}

func appendBlock(text, header, body string) string {
	if body == "" || strings.Contains(text, body) {
		return text
	}
	return text + "\n\n" + header + "\n" + body
}
