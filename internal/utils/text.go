package utils

import (
	"strings"
	"unicode/utf8"
)

// TruncateRunes keeps the first max runes of s and appends marker when anything was cut.
func TruncateRunes(s string, max int, marker string) string {
	if max < 0 {
		max = 0
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == max {
			break
		}
		b.WriteRune(r)
		n++
	}
	b.WriteString(marker)
	return b.String()
}

// CollapseWhitespace replaces every run of whitespace with a single space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
