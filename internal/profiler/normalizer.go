package profiler

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// Normalize canonicalizes raw query text for comparison: consecutive
// whitespace collapses to a single space, the result is trimmed and
// lowercased. Lossy on purpose; two queries differing only in layout or case
// normalize identically. Any marker text a caller appended to the query is
// lowercased along with it.
func Normalize(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// ExtractPattern replaces positional placeholders ($1, $2, ...) in normalized
// query text with a single wildcard token, so queries differing only in bound
// parameter position or count compare equal.
func ExtractPattern(normalized string) string {
	return placeholderPattern.ReplaceAllString(normalized, "$$x")
}
