package parameter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numberPattern accepts non-negative integers only.
var numberPattern = regexp.MustCompile(`^\d+$`)

// Interpret converts a raw parameter value into the typed Value for t.
//
// raw is what the API stores: nil, a string, a JSON number or, for lists, an
// already split slice. An unknown type yields nil so callers can skip the
// parameter instead of failing.
func Interpret(t Type, raw any) Value {
	switch t {
	case TypePercentage:
		return interpretPercentage(raw)
	case TypeList:
		return interpretList(raw)
	case TypeNumber:
		s := Text(raw)
		return Number{Raw: s, Valid: numberPattern.MatchString(s)}
	case TypeBoolean:
		s := Text(raw)
		v, ok := DecodeBool(s)
		return Boolean{Value: v, Raw: s, Valid: ok}
	case TypeString:
		return String{Value: Text(raw)}
	default:
		return nil
	}
}

func interpretPercentage(raw any) Percentage {
	switch v := raw.(type) {
	case float64:
		return Percentage{Percent: v, Raw: Text(v), Valid: true}
	case int:
		return Percentage{Percent: float64(v), Raw: Text(v), Valid: true}
	}

	s := strings.TrimSpace(Text(raw))
	if s == "" {
		return Percentage{Percent: 0, Raw: s, Valid: true}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Percentage{Raw: s, Valid: false}
	}
	return Percentage{Percent: f, Raw: s, Valid: true}
}

func interpretList(raw any) List {
	switch v := raw.(type) {
	case []string:
		return List{Items: cleanList(v)}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, Text(item))
		}
		return List{Items: cleanList(parts)}
	default:
		return List{Items: ParseList(Text(raw))}
	}
}

// Text renders a raw parameter value as its stored string form.
// nil becomes the empty string; numbers use the shortest exact
// representation (50, not 50.000000).
func Text(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case bool:
		return EncodeBool(v)
	case []string:
		return JoinList(v)
	default:
		return fmt.Sprint(v)
	}
}
