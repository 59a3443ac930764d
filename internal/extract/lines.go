package extract

import "strings"

// JoinLines rebuilds line breaks from positioned items. Items sharing the
// previous item's baseline are concatenated as-is; a baseline change starts a
// new line. PDF text has no line breaks of its own, so this is a heuristic.
func JoinLines(items []TextItem) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 && item.Y != items[i-1].Y {
			b.WriteByte('\n')
		}
		b.WriteString(item.S)
	}
	return b.String()
}
