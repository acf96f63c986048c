// Package normalize canonicalizes identity fields before they reach the store.
package normalize

import (
	"strings"
)

// Email trims and lower-cases an email address. Member lookups are keyed on
// the result.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses internal runs of whitespace.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// EmailList splits a comma separated allow-list into normalized emails,
// dropping blanks.
func EmailList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if e := Email(part); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// ModelList splits a comma separated list of model ids, preserving order and
// dropping blanks and repeats.
func ModelList(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(s, ",") {
		m := strings.TrimSpace(part)
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
