package extract

import "strings"

// Normalize keeps printable ASCII (space through tilde) plus newlines, then
// collapses every whitespace run to a single space and trims both ends.
// The result is a single line; Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '\n':
			pendingSpace = true
		case r > ' ' && r <= '~':
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
