package scenario

import "strings"

// TradeRole is the side of the deal the student plays.
type TradeRole string

const (
	Buyer  TradeRole = "buyer"
	Seller TradeRole = "seller"
)

var (
	sellerSectionKeywords = []string{"卖家", "出口", "供货", "供應"}
	sellerSectionWords    = []string{"sell", "export"}
	sellerRoleMarkers     = []string{"卖", "出口", "供货", "供应"}
	buyerRoleMarkers      = []string{"买", "采购", "进口"}
)

const chinaMarker = "中国"

// InferTradeRole guesses the student's side from a section's free text. It is a
// keyword match with no confidence signal and falls back to Buyer.
func InferTradeRole(texts ...string) TradeRole {
	blob := strings.Join(texts, " ")
	if containsAny(blob, sellerSectionKeywords) {
		return Seller
	}
	if containsAny(strings.ToLower(blob), sellerSectionWords) {
		return Seller
	}
	return Buyer
}

// EnsureChineseRole rewrites StudentRole so it always names China and the
// student's trade side, whatever the model produced.
func (s *Scenario) EnsureChineseRole(role TradeRole) {
	normalized := strings.TrimSpace(s.StudentRole)
	if !strings.Contains(normalized, chinaMarker) {
		if normalized == "" {
			normalized = "中国外贸业务代表"
		} else {
			normalized = chinaMarker + normalized
		}
	}
	if role == Seller {
		if !containsAny(normalized, sellerRoleMarkers) {
			normalized = "中国卖家代表（" + normalized + "）"
		}
	} else if !containsAny(normalized, buyerRoleMarkers) {
		normalized = "中国买家代表（" + normalized + "）"
	}
	s.StudentRole = normalized
}

// KnowledgePointsHint joins the knowledge points for rubric prompts.
func (s *Scenario) KnowledgePointsHint() string {
	if len(s.KnowledgePoints) == 0 {
		return "Negotiation strategy, Cross-cultural communication"
	}
	return strings.Join(s.KnowledgePoints, "、")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
