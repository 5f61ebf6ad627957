package extract

import (
	"strings"
	"unicode/utf8"
)

// cleanCell tidies text taken from a PDF content stream before it becomes a
// cell value:
//   - invalid UTF-8 sequences become U+FFFD so the CSV stays valid UTF-8
//   - NUL bytes and byte order marks are dropped
//   - surrounding whitespace is trimmed
//
// Line breaks inside the text are kept; the table stage decides how to fold them.
func cleanCell(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	if strings.ContainsAny(s, "\x00\uFEFF") {
		s = strings.Map(func(r rune) rune {
			if r == 0 || r == '\uFEFF' {
				return -1
			}
			return r
		}, s)
	}
	return strings.TrimSpace(s)
}
