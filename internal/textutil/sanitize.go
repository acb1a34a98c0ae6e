package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes a clip or video title safe to use as a filename
// stem. Path separators and drive punctuation become dashes, reserved and
// control characters are dropped, and runs of whitespace collapse to one
// space. Trailing dots are trimmed so the stem never swallows the
// extension dot.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingSpace := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case r == '/' || r == '\\' || r == ':' || r == '*':
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteByte('-')
		case r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			// dropped
		case unicode.IsControl(r):
			// dropped
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}

	return strings.TrimRight(b.String(), ". ")
}
