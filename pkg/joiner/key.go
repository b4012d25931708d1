// pkg/joiner/key.go
package joiner

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentFold decomposes, strips nonspacing marks (accents), and
// recomposes, so "Ácme" and "Acme" normalize to the same key.
var accentFold = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeKey derives the join key from a deal name: trim, collapse
// internal whitespace runs, fold accents, and case-fold. An empty or
// missing name yields the empty key, which never matches anything.
func NormalizeKey(name string) string {
	folded, _, err := transform.String(accentFold, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}
