package parameter

import (
	"regexp"
	"strings"
)

// listSeparator splits the comma-joined wire form, swallowing the whitespace
// that usually follows a comma.
var listSeparator = regexp.MustCompile(`,\s*`)

// ParseList splits a comma-joined list, trims every element and drops empty
// ones. This is the only decoder of the list wire format.
func ParseList(raw string) []string {
	parts := listSeparator.Split(raw, -1)
	return cleanList(parts)
}

// JoinList encodes a list into its wire form. For elements that are trimmed,
// non-empty and comma-free, ParseList(JoinList(l)) returns l.
func JoinList(items []string) string {
	return strings.Join(items, ", ")
}

func cleanList(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

const (
	boolTrue  = "true"
	boolFalse = "false"
)

// DecodeBool maps the stored literals "true"/"false" to a native boolean.
// The second result is false for any other input.
func DecodeBool(raw string) (bool, bool) {
	switch raw {
	case boolTrue:
		return true, true
	case boolFalse:
		return false, true
	}
	return false, false
}

// EncodeBool returns the stored literal for b.
func EncodeBool(b bool) string {
	if b {
		return boolTrue
	}
	return boolFalse
}

// ToggleBool flips a stored boolean literal. Anything that is not "true"
// toggles to "true".
func ToggleBool(raw string) string {
	v, _ := DecodeBool(raw)
	return EncodeBool(!v)
}
