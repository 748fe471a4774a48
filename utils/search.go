// utils/search.go
package utils

import (
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)), // strip combining marks
	norm.NFC,
)

// NormalizeSearchTerm lowercases, strips diacritics and transliterates
// non-Latin scripts to ASCII so "José" matches "jose" in the admin player
// search and Cyrillic or CJK names remain searchable at all.
func NormalizeSearchTerm(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(folded)))
}
