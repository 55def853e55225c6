package narrative

import (
	"encoding/json"
	"regexp"
	"strings"

	"credit-marketplace/internal/common/validation"
)

type Kind int

const (
	Ok Kind = iota
	Malformed
)

func (k Kind) String() string {
	if k == Ok {
		return "ok"
	}
	return "malformed"
}

// ParsedNarrative is the result of parsing generated text. Fields is set only
// when Kind is Ok; Raw always holds the original text.
type ParsedNarrative struct {
	Kind   Kind
	Fields map[string]interface{}
	Raw    string
}

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// Parse decodes a JSON object from text. A fenced block, when present, is
// parsed instead of the whole text. Anything that is not a JSON object is
// Malformed.
func Parse(text string) ParsedNarrative {
	body := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(body), &fields); err != nil || fields == nil {
		return ParsedNarrative{Kind: Malformed, Raw: text}
	}
	return ParsedNarrative{Kind: Ok, Fields: fields, Raw: text}
}

// RiskSchema lists the fields a risk narrative must carry to be usable.
var RiskSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"risk_rating", "recommended_maximum_exposure"},
	"properties": map[string]interface{}{
		"risk_rating": map[string]interface{}{"type": "string"},
		"risk_factors": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"mitigating_factors": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
	},
})

// Conforms reports whether p is Ok and satisfies schema.
func (p ParsedNarrative) Conforms(schema *validation.Schema) (bool, []string) {
	if p.Kind != Ok {
		return false, []string{"narrative is not a JSON object"}
	}
	result := schema.Validate(p.Fields)
	return result.Valid, result.GetErrorMessages()
}

// String returns the field as a trimmed string, or "" when absent or not a string.
func (p ParsedNarrative) String(key string) string {
	s, _ := p.Fields[key].(string)
	return strings.TrimSpace(s)
}

// Strings returns the string elements of an array field.
func (p ParsedNarrative) Strings(key string) []string {
	items, ok := p.Fields[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// Value returns the raw field value.
func (p ParsedNarrative) Value(key string) (interface{}, bool) {
	v, ok := p.Fields[key]
	return v, ok
}
