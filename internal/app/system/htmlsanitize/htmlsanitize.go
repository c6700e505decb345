// Package htmlsanitize cleans user-supplied text before it is stored.
//
// Todo names, projects and workgroup names are plain text. PlainText strips
// every tag with bluemonday's strict policy, decodes the entities the policy
// leaves behind, and removes control characters.
package htmlsanitize

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText returns s with markup removed, non-printable characters dropped
// and surrounding whitespace trimmed.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	out := html.UnescapeString(strict.Sanitize(s))
	out = StripControl(out)
	return strings.TrimSpace(out)
}

// StripControl removes control and other non-printable characters,
// keeping ordinary spaces.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}

// NeedsCleaning reports whether PlainText would change s.
func NeedsCleaning(s string) bool {
	return PlainText(s) != s
}
