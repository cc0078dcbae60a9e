package render

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FormatKey turns a field name into a label: underscores become spaces and
// the first letter of every word is upper-cased.
//
//	date_of_birth -> Date Of Birth
func FormatKey(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	var b strings.Builder
	b.Grow(len(s))
	atWordStart := true
	for _, r := range s {
		isWord := r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
		if isWord && atWordStart {
			r = unicode.ToUpper(r)
		}
		atWordStart = !isWord
		b.WriteRune(r)
	}
	return b.String()
}

// IsRTL reports whether s contains any rune of the Arabic block.
func IsRTL(s string) bool {
	for _, r := range s {
		if r >= 0x0600 && r <= 0x06FF {
			return true
		}
	}
	return false
}

// FormatNumber renders f the shortest way that round-trips: 87 -> "87",
// 4.5 -> "4.5".
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatValue renders a field value as display text. Objects and arrays are
// indented by two spaces.
func FormatValue(v any) (text string, nested bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, false
	case json.Number:
		return t.String(), false
	case float64:
		return FormatNumber(t), false
	case int:
		return strconv.Itoa(t), false
	case bool:
		return strconv.FormatBool(t), false
	case map[string]any, []any:
		b, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return "", true
		}
		return string(b), true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), false
}
