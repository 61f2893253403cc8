// internal/rules/coercion.go
package rules

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/fraudkeeper/internal/types"
)

/*
 * Value coercion for rule evaluation.
 *
 * Numeric coercion is strict: leading/trailing whitespace is trimmed, and a
 * value that does not parse as a float64 returns ErrInvalidNumericValue
 * carrying the offending literal. No sentinel fallback.
 *
 * INCLUDE candidates normalize from three encodings: a literal list, a
 * JSON-array-encoded string, or a comma-separated string. Quote characters
 * are stripped from each element.
 */

// toFloat64 coerces a dynamically typed value to float64.
// Returns ErrInvalidNumericValue for nil or non-numeric-parseable input.
func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, types.InvalidNumericValue("<nil>")
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, types.InvalidNumericValue(v)
		}
		return f, nil
	case string:
		s := strings.TrimSpace(v)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, types.InvalidNumericValue(v)
		}
		return f, nil
	default:
		return 0, types.InvalidNumericValue(v)
	}
}

// isNumeric reports whether the resolved field value is a number.
func isNumeric(value any) bool {
	switch value.(type) {
	case float64, float32, int, int64, json.Number:
		return true
	default:
		return false
	}
}

// stringify renders a resolved value for string comparison and membership
// tests. Floats that hold whole numbers print without a fraction so that an
// int64 account id and its float64 JSON form stringify identically.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case json.Number:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}

// parseCandidates normalizes an INCLUDE comparison value to a string slice.
// Accepts a literal list, a JSON-array string, or a comma-separated string.
func parseCandidates(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			out = append(out, stripQuotes(strings.TrimSpace(s)))
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			out = append(out, stripQuotes(strings.TrimSpace(stringify(elem))))
		}
		return out
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
			var parsed []any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				return parseCandidates(parsed)
			}
			// Not valid JSON: fall back to splitting the bracket contents
			s = s[1 : len(s)-1]
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			out = append(out, stripQuotes(strings.TrimSpace(part)))
		}
		return out
	default:
		return []string{stripQuotes(stringify(v))}
	}
}

// stripQuotes removes one leading and one trailing double quote.
func stripQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}
