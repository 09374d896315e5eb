package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"fincheck/internal/domain"
)

var fencedObject = regexp.MustCompile("(?i)```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")

// parseAttempt tries one way of reading a JSON object out of model output.
type parseAttempt func(content string) (map[string]any, bool)

// parseAttempts run in order; the first success wins.
var parseAttempts = []parseAttempt{
	parseWhole,
	parseFenced,
	parseOuterBraces,
}

// ParseStructured extracts a JSON object from model output. It never fails:
// output with no readable object becomes an Unverifiable record carrying the
// raw text as reasoning.
func ParseStructured(content string) map[string]any {
	for _, attempt := range parseAttempts {
		if rec, ok := attempt(content); ok {
			return rec
		}
	}
	return map[string]any{
		"verdict":    domain.VerdictUnverifiable,
		"confidence": 0.0,
		"reasoning":  content,
		"citations":  []any{},
	}
}

func decodeObject(s string) (map[string]any, bool) {
	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &rec); err != nil || rec == nil {
		return nil, false
	}
	return rec, true
}

func parseWhole(content string) (map[string]any, bool) {
	return decodeObject(content)
}

func parseFenced(content string) (map[string]any, bool) {
	m := fencedObject.FindStringSubmatch(content)
	if m == nil {
		return nil, false
	}
	return decodeObject(m[1])
}

// parseOuterBraces takes the span from the first { to the last }.
func parseOuterBraces(content string) (map[string]any, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return decodeObject(content[start : end+1])
}

// DecodeVerdict coerces a parsed record into a VerdictResult. Known labels
// are normalised to their canonical spelling, a missing label becomes
// Unverifiable and confidence is clamped to [0, 1].
func DecodeVerdict(rec map[string]any) domain.VerdictResult {
	verdict := strings.TrimSpace(stringValue(rec["verdict"]))
	if verdict == "" {
		verdict = domain.VerdictUnverifiable
	}
	for _, label := range []string{domain.VerdictTrue, domain.VerdictFalse, domain.VerdictMisleading, domain.VerdictUnverifiable} {
		if strings.EqualFold(verdict, label) {
			verdict = label
			break
		}
	}

	return domain.VerdictResult{
		Verdict:    verdict,
		Confidence: clamp01(floatValue(rec["confidence"])),
		Reasoning:  stringValue(rec["reasoning"]),
		Citations:  stringList(rec["citations"]),
	}
}

// DecodeChat coerces a parsed record into a ChatResult. When the record has
// no string answer the whole record is used as the answer text.
func DecodeChat(rec map[string]any) domain.ChatResult {
	answer, ok := rec["answer"].(string)
	if !ok {
		answer = stringValue(rec)
	}
	return domain.ChatResult{
		Answer:    answer,
		Citations: stringList(rec["citations"]),
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func floatValue(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}
		}
		return []string{t}
	default:
		return []string{}
	}
}
