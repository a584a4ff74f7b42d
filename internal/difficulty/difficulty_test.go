package difficulty

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"negotiation-tutor/internal/scenario"
)

func TestLookup_FallsBackToBalanced(t *testing.T) {
	for _, key := range []string{"", "unknown", "  ", "extreme"} {
		assert.Equal(t, "默认 · 平衡博弈", Lookup(key).Label, "key %q", key)
	}
	assert.Equal(t, "tough", Lookup(" TOUGH ").Key)
}

func TestAll_DisplayOrder(t *testing.T) {
	var keys []string
	for _, p := range All() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"friendly", "balanced", "tough", "shrewd"}, keys)
}

func pumpScenario() *scenario.Scenario {
	return scenario.FromMap(map[string]any{
		"communication_tone": "Professional",
		"product": map[string]any{
			"name":              "Industrial Pump",
			"price_expectation": map[string]any{"student_target": "USD 120", "ai_bottom_line": "USD 135"},
		},
	})
}

func TestApply_Tough(t *testing.T) {
	in := pumpScenario()
	out, p := Apply(in, "tough")

	assert.Equal(t, "tough", p.Key)
	assert.Equal(t, "强硬型 · 严守底线", out.DifficultyLabel)
	assert.Equal(t, "Professional（语气更为坚定，明确指出风险与不可退让的条件。）", out.CommunicationTone)
	assert.Equal(t, "USD 135（底线不可轻易突破，除非学生提供充分价值交换。）", out.Product.PriceExpectation.AIBottomLine)

	// input untouched
	assert.Equal(t, "Professional", in.CommunicationTone)
	assert.Equal(t, "USD 135", in.Product.PriceExpectation.AIBottomLine)
	assert.Empty(t, in.DifficultyKey)
}

func TestApply_IsIdempotent(t *testing.T) {
	for _, p := range All() {
		t.Run(p.Key, func(t *testing.T) {
			once, _ := Apply(pumpScenario(), p.Key)
			twice, _ := Apply(once, p.Key)
			assert.Equal(t, once.CommunicationTone, twice.CommunicationTone)
			assert.Equal(t, once.Product.PriceExpectation.AIBottomLine, twice.Product.PriceExpectation.AIBottomLine)
			if p.ToneHint != "" {
				assert.Equal(t, 1, strings.Count(twice.CommunicationTone, p.ToneHint))
				assert.Equal(t, 1, strings.Count(twice.Product.PriceExpectation.AIBottomLine, p.BottomLineHint))
			}
		})
	}
}

func TestApply_EmptyFieldsTakeHintVerbatim(t *testing.T) {
	s := scenario.FromMap(map[string]any{
		"product": map[string]any{"price_expectation": map[string]any{"student_target": "USD 10"}},
	})
	out, p := Apply(s, "friendly")
	assert.Equal(t, p.ToneHint, out.CommunicationTone)
	require.NotNil(t, out.Product.PriceExpectation)
	assert.Equal(t, p.BottomLineHint, out.Product.PriceExpectation.AIBottomLine)
}

func TestApply_NoPriceExpectationStaysNil(t *testing.T) {
	out, _ := Apply(scenario.FromMap(nil), "shrewd")
	assert.Nil(t, out.Product.PriceExpectation)
}

func TestApply_BalancedOnlySetsMetadata(t *testing.T) {
	out, p := Apply(pumpScenario(), "whatever")
	assert.Equal(t, Default, p.Key)
	assert.Equal(t, Default, out.DifficultyKey)
	assert.Equal(t, "Professional", out.CommunicationTone)
	assert.Equal(t, "USD 135", out.Product.PriceExpectation.AIBottomLine)
	assert.Equal(t, "保持专业礼貌，兼顾自身立场与合作机会。", out.DifficultyDescription)
}
