// Package subject is the single source of truth for message addressing:
// it registers, validates, and expands hierarchical subject patterns (C1).
package subject

import "strings"

// Pattern is a registered subject template.
type Pattern struct {
	Name            string
	Template        string
	RequiredParams  []string
	Description     string
}

// tokens splits a template/subject on '.'.
func tokens(s string) []string {
	return strings.Split(s, ".")
}

// isPlaceholder reports whether a template token is a `{name}` placeholder
// and returns the bare name.
func isPlaceholder(tok string) (string, bool) {
	if len(tok) >= 3 && strings.HasPrefix(tok, "{") && strings.HasSuffix(tok, "}") {
		return tok[1 : len(tok)-1], true
	}
	return "", false
}
