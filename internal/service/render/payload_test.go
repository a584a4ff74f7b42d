package render

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"negotiation-tutor/internal/scenario"
)

func TestBuildPayload_SurfacesUnknownKeys(t *testing.T) {
	s := scenario.FromMap(map[string]any{
		"scenario_title":     "Market entry",
		"special_background": "Political tension in target market",
	})
	got := BuildPayload(s)

	require.Len(t, got.CustomFields, 1)
	assert.Equal(t, CustomField{
		Key:   "special_background",
		Label: "Special Background",
		Items: []string{"Political tension in target market"},
	}, got.CustomFields[0])
}

func TestBuildPayload_DifficultyFallback(t *testing.T) {
	got := BuildPayload(scenario.FromMap(map[string]any{"difficulty": "shrewd"}))
	assert.Equal(t, "shrewd", got.Difficulty)
	assert.Equal(t, "精明型 · 灵活试探", got.DifficultyLabel)

	got = BuildPayload(nil)
	assert.Equal(t, "balanced", got.Difficulty)
	assert.Equal(t, "默认 · 平衡博弈", got.DifficultyLabel)
	assert.Equal(t, []string{}, got.Risks)
	assert.Equal(t, []CustomField{}, got.CustomFields)
}

func TestBuildPayload_JSONShape(t *testing.T) {
	raw, err := json.Marshal(BuildPayload(scenario.FromMap(map[string]any{
		"student_company": map[string]any{"name": "Ningbo Trading"},
	})))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, key := range []string{"title", "studentRole", "studentCompany", "aiCompany", "negotiationTargets", "customFields", "difficultyDescription"} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, "Ningbo Trading", m["studentCompany"].(map[string]any)["name"])
}

func TestCustomFields_ValueShapes(t *testing.T) {
	s := scenario.FromMap(map[string]any{
		"payment_terms_matrix": []any{
			map[string]any{"method": "L/C", "ratio": "30%"},
			map[string]any{"method": "T/T", "notes": []any{"deposit", "balance"}},
		},
		"receivables_status": float64(12000),
		"export_license":     true,
		"blank":              "   ",
		"nothing":            nil,
		"empty_map":          map[string]any{},
		"hollow_map":         map[string]any{"a": ""},
		"wrapped":            map[string]any{"label": "客户偏好", "items": []any{"Fast delivery", "Eco packaging"}},
		"wrapped_value":      map[string]any{"value": "Only value"},
		"customVariables": map[string]any{
			"export_license": "ignored",
			"season":         "Peak",
		},
	})

	want := []CustomField{
		{Key: "export_license", Label: "Export License", Items: []string{"Yes"}},
		{Key: "hollow_map", Label: "Hollow Map", Items: []string{`{"a":""}`}},
		{Key: "payment_terms_matrix", Label: "付款条款矩阵", Items: []string{
			"Method: L/C", "Ratio: 30%", "Method: T/T", "Notes: deposit; balance",
		}},
		{Key: "receivables_status", Label: "应收账款状态", Items: []string{"12000"}},
		{Key: "wrapped", Label: "客户偏好", Items: []string{"Fast delivery", "Eco packaging"}},
		{Key: "wrapped_value", Label: "Wrapped Value", Items: []string{"Only value"}},
		{Key: "season", Label: "Season", Items: []string{"Peak"}},
	}
	if diff := cmp.Diff(want, CustomFields(s)); diff != "" {
		t.Fatalf("custom fields mismatch (-want +got):\n%s", diff)
	}
}
