// Package jsonblock pulls a JSON object out of free-form model output.
//
// Models wrap JSON in Markdown fences or surround it with prose. Extract keeps
// the first-brace/last-brace window and decodes it strictly; ExtractLenient
// additionally repairs the window before giving up.
package jsonblock

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// ErrNotFound is returned when the text holds no "{...}" window.
var ErrNotFound = errors.New("jsonblock: JSON block not found in response")

// Window returns the substring from the first '{' to the last '}' after
// trimming whitespace and backticks.
func Window(text string) (string, error) {
	cleaned := strings.Trim(strings.TrimSpace(text), "`")
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end <= start {
		return "", ErrNotFound
	}
	return cleaned[start : end+1], nil
}

// Extract decodes the JSON window of text. Numbers decode as float64.
func Extract(text string) (map[string]any, error) {
	window, err := Window(text)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(window), &out); err != nil {
		return nil, fmt.Errorf("jsonblock: decode: %w", err)
	}
	return out, nil
}

// ExtractLenient is Extract followed by two repair passes: json-repair for
// quoting, trailing commas and truncation, then Hjson for unquoted keys and
// comments. Both passes turn almost any braced prose into some map, so when
// keys are given a repaired map must carry at least one of them. The strict
// decode error is returned when every pass fails.
func ExtractLenient(text string, keys ...string) (map[string]any, error) {
	out, err := Extract(text)
	if err == nil || errors.Is(err, ErrNotFound) {
		return out, err
	}
	window, _ := Window(text)

	if repaired, rerr := jsonrepair.RepairJSON(window); rerr == nil {
		var m map[string]any
		if json.Unmarshal([]byte(repaired), &m) == nil && hasAny(m, keys) {
			return m, nil
		}
	}

	var m map[string]any
	if hjson.Unmarshal([]byte(window), &m) == nil && hasAny(m, keys) {
		return m, nil
	}
	return nil, err
}

func hasAny(m map[string]any, keys []string) bool {
	if m == nil {
		return false
	}
	if len(keys) == 0 {
		return true
	}
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}
