package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString collapses runs of whitespace and clips the result to maxLen
// bytes without splitting a UTF-8 sequence. A maxLen of zero disables
// clipping.
func SanitizeString(input string, maxLen int) string {
	out := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 || len(out) <= maxLen {
		return out
	}
	out = out[:maxLen]
	for len(out) > 0 && !utf8.ValidString(out) {
		out = out[:len(out)-1]
	}
	return strings.TrimSpace(out)
}
