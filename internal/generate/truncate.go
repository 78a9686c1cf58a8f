package generate

import (
	"strings"
	"unicode/utf8"
)

const TruncationMarker = "\n... (content truncated)"

// Truncate keeps the first limit characters of s and appends TruncationMarker
// when anything was cut.
func Truncate(s string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	return headRunes(s, limit) + TruncationMarker, true
}

// Excerpt returns the trimmed head of s, at most limit characters long,
// ending in "..." when cut.
func Excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(headRunes(s, limit)) + "..."
}

func headRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
