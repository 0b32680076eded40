package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldT strips combining marks after canonical decomposition, so "Pérez"
// folds to "Perez".
var foldT = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// FoldName renders a person or search term into its canonical lookup form:
// accent-folded, lowercased, whitespace-collapsed. Customer.SearchName is
// maintained with this exact folding, and search terms must go through it
// too so "José" and "jose" hit the same rows.
func FoldName(s string) string {
	folded, _, err := transform.String(foldT, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	return whitespaceRE.ReplaceAllString(folded, " ")
}
