package pricing

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NormalizeESG maps a score onto 0-10. Values above 10 are taken to be on a
// 0-100 scale and divided by 10 once; the result is clamped so repeated calls
// are no-ops.
func NormalizeESG(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	if v > 10 {
		v = v / 10
	}
	if v > 10 {
		return 10
	}
	return v
}

// CoerceAmount resolves a loosely typed amount. Precedence: number, then an
// object's "amount" key, then a string with "$", "," and spaces removed.
func CoerceAmount(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, isFinite(t)
	case float32:
		return float64(t), isFinite(float64(t))
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil && isFinite(f)
	case map[string]interface{}:
		inner, ok := t["amount"]
		if !ok {
			return 0, false
		}
		if _, nested := inner.(map[string]interface{}); nested {
			return 0, false
		}
		return CoerceAmount(inner)
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(t)
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		return f, err == nil && isFinite(f)
	}
	return 0, false
}

// CoerceFloat is CoerceAmount without the object form, for scores and
// confidences.
func CoerceFloat(v interface{}) (float64, bool) {
	if _, isMap := v.(map[string]interface{}); isMap {
		return 0, false
	}
	return CoerceAmount(v)
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
