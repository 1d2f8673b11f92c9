package search

import (
	"sort"
	"strings"
)

// Span is a byte range [Start, End) within the normalized field text.
type Span struct {
	Start int
	End   int
}

// FieldMatch reports where matched terms occur within one field.
type FieldMatch struct {
	Field string
	Spans []Span
}

var matchFieldOrder = []string{FieldName, FieldDescription}

// matchSpans locates every matched term in the doc's normalized fields.
func (idx *Index) matchSpans(doc int, terms map[string]bool) []FieldMatch {
	sorted := make([]string, 0, len(terms))
	for t := range terms {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)

	var out []FieldMatch
	for _, field := range matchFieldOrder {
		content := idx.docs[doc].norm[field]
		var spans []Span
		for _, t := range sorted {
			for _, pos := range findPositions(content, t) {
				spans = append(spans, Span{Start: pos, End: pos + len(t)})
			}
		}
		if len(spans) == 0 {
			continue
		}
		sort.Slice(spans, func(i, j int) bool {
			if spans[i].Start == spans[j].Start {
				return spans[i].End < spans[j].End
			}
			return spans[i].Start < spans[j].Start
		})
		out = append(out, FieldMatch{Field: field, Spans: spans})
	}
	return out
}

// findPositions returns start indices of overlapping occurrences.
func findPositions(s, substr string) []int {
	if len(substr) == 0 {
		return nil
	}
	var positions []int
	from := 0
	for {
		i := strings.Index(s[from:], substr)
		if i == -1 {
			break
		}
		positions = append(positions, from+i)
		from += i + 1
	}
	return positions
}
