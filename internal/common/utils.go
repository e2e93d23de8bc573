package common

import "strings"

var inputEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\r\n", "<br>",
	"\n", "<br>",
)

// SanitizeInput escapes a free-text field the way a browser does when the value is
// assigned as text and read back as markup: &, < and > become entities and line
// breaks become <br>. Quotes are left alone.
func SanitizeInput(s string) string {
	return inputEscaper.Replace(s)
}

// CompactDate strips the dashes of an HTML date input value (2024-01-31 -> 20240131).
func CompactDate(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "-", "")
}

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
