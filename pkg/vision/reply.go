package vision

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type replyPayload struct {
	Pass       *bool           `json:"pass"`
	Passed     *bool           `json:"passed"`
	Confidence json.RawMessage `json:"confidence"`
	Violations []interface{}   `json:"violations"`
	Summary    string          `json:"summary"`
}

// ExtractJSON returns the span from the first '{' to the last '}' in text.
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseReply decodes a model reply. The boolean is false when the reply holds
// no decodable JSON object.
func ParseReply(text string) (Verdict, bool) {
	raw, ok := ExtractJSON(text)
	if !ok {
		return Verdict{}, false
	}

	var payload replyPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Verdict{}, false
	}

	verdict := Verdict{
		Confidence: parseConfidence(payload.Confidence),
		Violations: make([]string, 0, len(payload.Violations)),
		Summary:    strings.TrimSpace(payload.Summary),
	}

	switch {
	case payload.Pass != nil:
		verdict.Passed = *payload.Pass
	case payload.Passed != nil:
		verdict.Passed = *payload.Passed
	}

	for _, entry := range payload.Violations {
		text, ok := entry.(string)
		if !ok {
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			verdict.Violations = append(verdict.Violations, trimmed)
		}
	}

	return verdict, true
}

// NormalizeReply always yields a usable verdict. Unparseable replies fail with
// FallbackConfidence and a single FormatErrorViolation, keeping the raw text as summary.
func NormalizeReply(text string) Verdict {
	if verdict, ok := ParseReply(text); ok {
		return verdict
	}
	return Verdict{
		Passed:     false,
		Confidence: FallbackConfidence,
		Violations: []string{FormatErrorViolation},
		Summary:    text,
		Fallback:   true,
	}
}

func parseConfidence(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "%")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0
		}
		value = parsed
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	// Fractions such as 0.92 are ratios.
	if value > 0 && value < 1 {
		value *= 100
	}

	return clampConfidence(int(math.Round(value)))
}

func clampConfidence(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
