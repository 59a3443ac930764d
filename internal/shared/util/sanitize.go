package util

import "strings"

// SanitizeNamespace turns a folder-like namespace into a relative, slash
// separated key prefix. Empty, "." and ".." segments are dropped.
func SanitizeNamespace(ns string) string {
	ns = strings.ReplaceAll(ns, "\\", "/")
	parts := strings.Split(ns, "/")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "/")
}
