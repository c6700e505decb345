// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"
)

// Email lowercases and trims an email address. Every stored or compared
// email in the app goes through this function so that lookups, membership
// sets and invitation matching agree on one canonical form.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses internal runs of
// whitespace to a single space. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Emails normalizes a list of emails, dropping blanks and duplicates while
// keeping first-seen order.
func Emails(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, e := range in {
		e = Email(e)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
