package search

import (
	"math"
	"sort"

	"github.com/civicdata/explorer/pkg/text"
)

// Name hits matter more than description hits.
var fieldWeights = map[string]float64{
	FieldName:        2.0,
	FieldDescription: 1.0,
}

// Coverage soft-AND knobs: documents matching more query terms dominate
// without hard-rejecting partial matches.
const (
	coverageLambda  = 3.0
	coverageEpsilon = 0.1
)

// Result is a scored document with its match evidence.
type Result struct {
	ID      string
	Score   float64
	Matches []FieldMatch
}

// Search ranks indexed documents against a free-text term. The final query
// token is treated as a prefix, matching the index's as-you-type use. Results
// come back in descending score order; ties keep insertion order. An empty or
// all-stop-word term returns nil.
func (idx *Index) Search(term string) []Result {
	qTerms := text.Terms(term)
	if len(qTerms) == 0 || len(idx.docs) == 0 {
		return nil
	}

	type hit struct {
		score   float64
		clauses int
		terms   map[string]bool
	}
	hits := make(map[int]*hit)

	for i, qt := range qTerms {
		variants := []string{qt}
		if i == len(qTerms)-1 {
			variants = idx.expand(qt)
		}

		// Best variant per doc; prefix fanout must not inflate scores.
		contrib := make(map[int]float64)
		matched := make(map[int][]string)
		for _, v := range variants {
			vIDF := idx.idf(v)
			for _, p := range idx.postings[v] {
				tfStar := 0.0
				for field, occ := range p.fields {
					tfStar += fieldWeights[field] * normalizedTF(
						occ.TF, idx.docs[p.doc].lens[field], idx.avgFieldLen(field), idx.b)
				}
				if s := vIDF * saturate(tfStar, idx.k1); s > contrib[p.doc] {
					contrib[p.doc] = s
				}
				matched[p.doc] = append(matched[p.doc], v)
			}
		}

		for doc, s := range contrib {
			h := hits[doc]
			if h == nil {
				h = &hit{terms: make(map[string]bool)}
				hits[doc] = h
			}
			h.score += s
			h.clauses++
			for _, v := range matched[doc] {
				h.terms[v] = true
			}
		}
	}

	type scored struct {
		doc int
		res Result
	}
	results := make([]scored, 0, len(hits))
	for doc, h := range hits {
		coverage := float64(h.clauses) / float64(len(qTerms))
		score := h.score * math.Pow(coverageEpsilon+coverage, coverageLambda)
		results = append(results, scored{
			doc: doc,
			res: Result{
				ID:      idx.docs[doc].id,
				Score:   score,
				Matches: idx.matchSpans(doc, h.terms),
			},
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if math.Abs(results[i].res.Score-results[j].res.Score) < 1e-9 {
			return results[i].doc < results[j].doc
		}
		return results[i].res.Score > results[j].res.Score
	})

	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = r.res
	}
	return out
}

func (idx *Index) idf(term string) float64 {
	n := float64(len(idx.docs))
	df := float64(len(idx.postings[term]))
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

func normalizedTF(tf, fieldLen int, avgLen, b float64) float64 {
	if tf == 0 {
		return 0
	}
	if avgLen == 0 {
		avgLen = 1
	}
	norm := 1 - b + b*float64(fieldLen)/avgLen
	if norm <= 0 {
		norm = 1
	}
	return float64(tf) / norm
}

func saturate(tf, k1 float64) float64 {
	if tf == 0 {
		return 0
	}
	return tf * (k1 + 1) / (tf + k1)
}
