// Package text provides deterministic tokenization for dataset search fields.
// Tokens are regenerated from name+description at every upsert; nothing in the
// store edits them by hand.
package text

import (
	"strings"
	"unicode"
)

// Normalize cleans and lowercases text for indexing and matching.
func Normalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	for _, ch := range s {
		c := unicode.ToLower(ch)

		// Curly apostrophe -> straight
		if c == '’' {
			out.WriteRune('\'')
			continue
		}

		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '\'' {
			out.WriteRune(c)
		} else {
			out.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(out.String()), " ")
}

// stopWords filtered during tokenization. Kept small on purpose: dataset
// names are short and over-filtering hurts prefix search.
var stopWords = map[string]bool{
	"the": true, "of": true, "and": true, "a": true, "an": true,
	"to": true, "in": true, "on": true, "for": true, "at": true, "by": true,
	"is": true, "it": true, "as": true, "be": true, "was": true,
	"are": true, "been": true, "with": true, "from": true, "into": true,
	"that": true, "this": true, "has": true, "have": true, "had": true,
}

// Terms splits and normalizes text, filtering stop words but keeping
// duplicates. Rankers that need term frequencies use this directly.
func Terms(s string) []string {
	var result []string
	for _, w := range strings.Fields(Normalize(s)) {
		if len(w) < 2 || stopWords[w] {
			continue
		}
		result = append(result, w)
	}
	return result
}

// Tokenize splits and normalizes text, filtering stop words and duplicates.
// Order of first occurrence is preserved so output is deterministic.
func Tokenize(texts ...string) []string {
	seen := make(map[string]bool)
	var result []string

	for _, text := range texts {
		for _, w := range Terms(text) {
			if seen[w] {
				continue
			}
			seen[w] = true
			result = append(result, w)
		}
	}
	return result
}
