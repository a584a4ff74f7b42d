// Package document composes the text documents around a practice session:
// the opening message the AI sends first and the transcript handed to the
// critic model.
package document

import (
	"encoding/json"
	"math"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"negotiation-tutor/internal/scenario"
	"negotiation-tutor/internal/session"
)

// DefaultGreeting is used when nothing else yields an English opening.
const DefaultGreeting = "Hello, this is your negotiation partner. Let's begin our discussion in English."

// cjkOpeningSections may open in Chinese.
var cjkOpeningSections = map[string]bool{
	"chapter-0-section-1": true,
}

var builders = map[string]func(*scenario.Scenario) string{
	"chapter-4-section-1": quotationReview,
	"chapter-4-section-2": proformaInvoice,
	"chapter-4-section-5": salesContract,
}

// newContractID is swapped in tests.
var newContractID = func() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

var printer = message.NewPrinter(language.English)

// ContainsCJK reports whether text has any Han character.
func ContainsCJK(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// IsProbablyEnglish is true for non-blank text without CJK characters.
func IsProbablyEnglish(text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && !ContainsCJK(text)
}

// OpeningMessage picks the first message of a session. Document sections get
// a drafted document; otherwise the scenario's own opening is used when it is
// acceptable, then a composed English greeting.
func OpeningMessage(sectionID string, s *scenario.Scenario) string {
	if s == nil {
		s = &scenario.Scenario{}
	}
	acceptable := func(text string) bool {
		text = strings.TrimSpace(text)
		return text != "" && (cjkOpeningSections[sectionID] || IsProbablyEnglish(text))
	}

	if build, ok := builders[sectionID]; ok {
		if doc := strings.TrimSpace(build(s)); acceptable(doc) {
			return doc
		}
	}

	candidates := []string{s.OpeningMessage}
	for _, k := range []string{"openingMessage", "opening", "conversation_opening"} {
		if v, ok := s.Extra[k].(string); ok {
			candidates = append(candidates, v)
		}
	}
	for _, c := range candidates {
		if acceptable(c) {
			return strings.TrimSpace(c)
		}
	}

	if g := defaultOpening(s); g != "" {
		return g
	}
	return DefaultGreeting
}

func defaultOpening(s *scenario.Scenario) string {
	english := func(v, fallback string) string {
		v = strings.TrimSpace(v)
		if v == "" || ContainsCJK(v) {
			return fallback
		}
		return v
	}

	parts := []string{
		"Hello, this is " + english(s.AIRole, "your negotiation partner") +
			" from " + english(s.AICompany.Name, "our company") + ".",
	}

	var counterpart []string
	if role := english(s.StudentRole, ""); role != "" {
		counterpart = append(counterpart, role)
	}
	if company := english(s.StudentCompany.Name, ""); company != "" {
		counterpart = append(counterpart, "at "+company)
	}
	if len(counterpart) > 0 {
		parts = append(parts, "Thank you for joining me as "+strings.Join(counterpart, " ")+" to review today's objectives.")
	}

	parts = append(parts,
		"I'd like to start by aligning on "+english(s.Product.Name, "the current plan")+" and any priorities you want to address.",
		"I'm ready to begin our discussion in English whenever you are ready.",
	)
	return strings.Join(parts, " ")
}

// BuildTranscript renders the scenario header and the conversation for the
// critic model.
func BuildTranscript(history []session.Message, s *scenario.Scenario) string {
	if s == nil {
		s = &scenario.Scenario{}
	}
	product, _ := json.Marshal(s.ToMap()["product"])

	var b strings.Builder
	line := func(parts ...string) {
		for _, p := range parts {
			b.WriteString(p)
		}
		b.WriteByte('\n')
	}
	line("場景標題: ", s.Title)
	line("場景摘要: ", s.Summary)
	line("學生角色: ", s.StudentRole)
	line("AI 角色: ", s.AIRole)
	line("產品資訊: ", string(product))
	line("市場與物流: ", s.MarketLandscape, "；", s.Logistics)
	b.WriteString("對話逐字稿：")

	aiName := "AI"
	if s.AICompany.Name != "" {
		aiName = s.AICompany.Name
	}
	for _, m := range history {
		speaker := m.Role
		switch m.Role {
		case "user":
			speaker = "學生"
		case "assistant":
			speaker = aiName
		case "":
			speaker = "系統"
		}
		b.WriteByte('\n')
		b.WriteString(speaker + ": " + m.Content)
	}
	return b.String()
}

// FormatCurrency renders an amount as "USD 1,234.50"; nil is "TBD".
func FormatCurrency(v *float64) string {
	if v == nil {
		return "TBD"
	}
	return printer.Sprintf("USD %.2f", *v)
}

type parties struct {
	seller, buyer, attention string
}

func partiesOf(s *scenario.Scenario) parties {
	p := parties{seller: s.AICompany.Name, buyer: s.StudentCompany.Name, attention: s.StudentRole}
	if p.seller == "" {
		p.seller = "Seller"
	}
	if p.buyer == "" {
		p.buyer = "Buyer"
	}
	if p.attention == "" {
		p.attention = "Procurement Team"
	}
	return p
}

func productName(s *scenario.Scenario) string {
	if s.Product.Name == "" {
		return "Product"
	}
	return s.Product.Name
}

// basePrice prefers the AI bottom line over the student target.
func basePrice(s *scenario.Scenario) (float64, bool) {
	pe := s.Product.PriceExpectation
	if pe == nil {
		return 0, false
	}
	if v, ok := scenario.ExtractNumber(pe.AIBottomLine); ok {
		return v, true
	}
	return scenario.ExtractNumber(pe.StudentTarget)
}

// scaled applies the quantity and price uplifts of a drafted document and
// returns display strings for quantity, unit price and total.
func scaled(s *scenario.Scenario, qtyFactor, priceFactor float64, textSuffix, missing string) (qty, unit, total string) {
	var adjQty *float64
	qtyText := s.Product.QuantityRequirement
	if v, ok := scenario.ExtractNumber(qtyText); ok {
		q := math.Max(1, math.RoundToEven(v*qtyFactor))
		adjQty = &q
		qty = printer.Sprintf("%d units", int64(q))
	} else if qtyText != "" {
		qty = qtyText + " " + textSuffix
	} else {
		qty = missing
	}

	var adjPrice *float64
	if v, ok := basePrice(s); ok {
		p := math.Round(v*priceFactor*100) / 100
		adjPrice = &p
	}
	unit = FormatCurrency(adjPrice)
	total = "TBD"
	if adjPrice != nil && adjQty != nil {
		t := *adjPrice * *adjQty
		total = FormatCurrency(&t)
	}
	return qty, unit, total
}

func specsOr(s *scenario.Scenario, fallback string) string {
	if s.Product.Specifications == "" {
		return fallback
	}
	return s.Product.Specifications
}

func quotationReview(s *scenario.Scenario) string {
	p := partiesOf(s)
	target, bottom := "Not provided", "Not provided"
	if pe := s.Product.PriceExpectation; pe != nil {
		if pe.StudentTarget != "" {
			target = pe.StudentTarget
		}
		if pe.AIBottomLine != "" {
			bottom = pe.AIBottomLine
		}
	}
	qty := s.Product.QuantityRequirement
	if qty == "" {
		qty = "Awaiting confirmation"
	}
	return strings.Join([]string{
		"Quotation Review Summary",
		"Seller: " + p.seller,
		"Buyer: " + p.buyer,
		"Attention: " + p.attention,
		"",
		"Product: " + productName(s) + " (" + specsOr(s, "specifications TBD") + ")",
		"Requested Quantity: " + qty,
		"Student Target Price: " + target,
		"AI Bottom Line: " + bottom,
		"",
		"Key Observations:",
		"- 请关注是否有额外的付款条款或服务承诺需要强调。",
		"- 根据谈判记录，建议列出学生必须回应的澄清问题。",
	}, "\n")
}

func proformaInvoice(s *scenario.Scenario) string {
	p := partiesOf(s)
	qty, unit, total := scaled(s, 1.08, 1.12, "(minimum uplift applied)", "To be confirmed")

	lines := []string{
		"Proforma Invoice Draft",
		"Seller: " + p.seller,
		"Buyer: " + p.buyer,
		"Attention: " + p.attention,
		"",
		"Product: " + productName(s) + " (" + specsOr(s, "specifications TBD") + ")",
		"Quantity: " + qty,
		"Unit Price: " + unit,
		"Proforma Amount: " + total,
		"",
		"Commercial Terms:",
		"- Payment: 50% deposit within 3 working days, balance before shipment.",
		"- Incoterm: FOB main China port, buyer to arrange insurance.",
		"- Inspection: Supplier in-house inspection report provided upon request.",
	}
	if s.Logistics != "" {
		lines = append(lines, "- Logistics Note: Earlier discussion mentioned "+s.Logistics+"; routing cost variations may apply.")
	}
	if s.Timeline != "" {
		lines = append(lines, "- Lead Time: 35 days after deposit confirmation (not aligned with earlier "+s.Timeline+").")
	} else {
		lines = append(lines, "- Lead Time: 35 days after deposit confirmation.")
	}
	lines = append(lines,
		"- Surcharge: USD 520 compliance & certification fee billed separately and non-refundable.",
		"- Validity: Quote stands for 24 hours due to supply volatility.",
		"- Warranty: Limited 30-day coverage on manufacturing defects only; logistics damages excluded.",
		"",
		"Please review the above quotation carefully and advise if any discrepancies require correction.",
	)
	return strings.Join(lines, "\n")
}

func salesContract(s *scenario.Scenario) string {
	p := partiesOf(s)
	qty, unit, total := scaled(s, 1.05, 1.09, "(subject to automatic uplift clause)", "To be agreed")

	specs := ""
	if s.Product.Specifications != "" {
		specs = " (" + s.Product.Specifications + ")"
	}
	lines := []string{
		"Sales Contract Draft",
		"Contract ID: SC-" + newContractID(),
		"Seller: " + p.seller,
		"Buyer: " + p.buyer,
		"Attention: " + p.attention,
		"",
		"1. Goods & Specifications:",
		"   - Product: " + productName(s) + specs,
		"   - Quantity: " + qty,
		"   - Unit Price: " + unit,
		"   - Contract Amount: " + total,
		"",
		"2. Delivery & Logistics:",
	}
	if s.Logistics != "" {
		lines = append(lines, "   - Term: DAP destination warehouse (supersedes earlier note: "+s.Logistics+").")
	} else {
		lines = append(lines, "   - Term: DAP destination warehouse, routing confirmed by seller.")
	}
	if s.Timeline != "" {
		lines = append(lines, "   - Shipment Window: 45 days after deposit receipt, regardless of prior "+s.Timeline+".")
	} else {
		lines = append(lines, "   - Shipment Window: 45 days after deposit receipt.")
	}
	lines = append(lines,
		"   - Insurance: Basic coverage arranged by seller; buyer bears war-risk surcharges.",
		"",
		"3. Payment & Financial Terms:",
		"   - 60% non-refundable deposit by T/T within 3 days of signing.",
		"   - 40% balance released after seller-issued inspection memo (no third-party report).",
		"   - Late payment incurs 0.8% daily penalty compounded.",
		"",
		"4. Additional Clauses:",
		"   - Quality claims must be lodged within 5 days of arrival with video evidence only.",
		"   - Unilateral order cancellation forfeits all deposits and future allocation priority.",
		"   - Governing law: Seller's local jurisdiction; disputes settled via seller-appointed arbitrator.",
		"",
		"Please review the contract draft carefully and confirm acceptance or specify revisions required.",
	)
	return strings.Join(lines, "\n")
}
