package scenario

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NormalizeText turns any scalar into a trimmed string. nil becomes "".
func NormalizeText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return formatNumber(t)
	case float32:
		return formatNumber(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return formatNumber(f)
		}
		return strings.TrimSpace(t.String())
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(raw)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// NormalizeList accepts a list or a newline-delimited string and returns the
// non-empty trimmed entries. The result is never nil.
func NormalizeList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := NormalizeText(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range t {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, line := range strings.Split(strings.ReplaceAll(t, "\r\n", "\n"), "\n") {
			if s := strings.TrimSpace(line); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// NormalizeCompany rebuilds a company block from any of its historical key spellings.
func NormalizeCompany(v any) Company {
	m, ok := v.(map[string]any)
	if !ok {
		return Company{}
	}
	return Company{
		Name:    NormalizeText(firstTruthy(m, "name", "company", "companyName", "display")),
		Profile: NormalizeText(firstTruthy(m, "profile", "description", "summary")),
	}
}

func normalizePriceExpectation(v any) *PriceExpectation {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	return &PriceExpectation{
		StudentTarget: NormalizeText(firstTruthy(m, "student_target", "studentTarget", "target", "student")),
		AIBottomLine:  NormalizeText(firstTruthy(m, "ai_bottom_line", "aiBottomLine", "bottomLine", "ai")),
	}
}

// NormalizeProduct rebuilds the product block, including the optional price expectation.
func NormalizeProduct(v any) Product {
	m, ok := v.(map[string]any)
	if !ok {
		return Product{}
	}
	p := Product{
		Name:                NormalizeText(m["name"]),
		Specifications:      NormalizeText(firstTruthy(m, "specifications", "specs", "features")),
		QuantityRequirement: NormalizeText(firstTruthy(m, "quantity_requirement", "quantityRequirement", "quantity")),
		PriceExpectation:    normalizePriceExpectation(firstTruthy(m, "price_expectation", "priceExpectation")),
	}
	if truthy(m["highlights"]) {
		p.Highlights = NormalizeList(m["highlights"])
	}
	return p
}

// FirstNonEmpty returns the first non-blank string stored under one of keys.
func FirstNonEmpty(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ExtractNumber returns the first number found in v, ignoring thousands separators.
func ExtractNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	}
	text := strings.ReplaceAll(NormalizeText(v), ",", "")
	m := numberPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// firstTruthy mirrors "a or b or c" over map lookups.
func firstTruthy(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v := m[k]; truthy(v) {
			return v
		}
	}
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// formatNumber drops the trailing ".0" from integral values.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
