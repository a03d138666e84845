// Package similarity compares free-text vessel names.
//
// Score is the Sørensen–Dice coefficient over character bigram multisets,
// computed after case folding, diacritic removal and whitespace collapsing.
// Registry and feed names differ in case, spacing and transliteration far
// more often than in spelling, so those differences are erased first.
package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a name into the form that Score compares: diacritics
// removed, lower case, inner whitespace collapsed to single spaces, trimmed.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// Chained transformers carry state, so build one per call.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Score returns the similarity of a and b in [0,1].
//
// Equal names score 1. A name that is empty after normalisation scores 0
// against anything, including another empty name: missing data never
// confirms a match. Names shorter than two characters that are not equal
// have no bigrams and score 0. Score is symmetric.
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	ra, rb := []rune(na), []rune(nb)
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	counts := make(map[[2]rune]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		counts[[2]rune{ra[i], ra[i+1]}]++
	}

	matches := 0
	for i := 0; i < len(rb)-1; i++ {
		bg := [2]rune{rb[i], rb[i+1]}
		if counts[bg] > 0 {
			counts[bg]--
			matches++
		}
	}

	return float64(2*matches) / float64(len(ra)-1+len(rb)-1)
}
