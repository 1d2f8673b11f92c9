// Package query answers read-side questions against the local replica:
// filtering, text ranking, sorting and join candidates. It never talks to the
// network; everything here runs over the store.
package query

import (
	"sort"

	"go.uber.org/zap"

	"github.com/civicdata/explorer/internal/store"
	"github.com/civicdata/explorer/pkg/search"
	"github.com/civicdata/explorer/pkg/text"
)

// Filters is one filter selection. Within a dimension values OR together;
// across dimensions they AND. An empty dimension is inactive.
type Filters struct {
	Term        string
	Tags        []string
	Categories  []string
	Columns     []string
	Departments []string
}

// Ranked pairs a dataset with its text-search evidence.
type Ranked struct {
	Dataset *store.Dataset
	Score   float64
	Matches []search.FieldMatch
}

// Engine runs queries over one local store.
type Engine struct {
	store store.Storer
	log   *zap.Logger
}

func NewEngine(s store.Storer, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: s, log: log}
}

// FilterDatasets returns the portal's datasets passing the filter selection.
// With a search term the candidate set comes from the token-prefix index;
// without one it is a portal scan. Either way the AND-of-ORs predicates run
// on top.
func (e *Engine) FilterDatasets(portal string, f Filters) ([]*store.Dataset, error) {
	candidates, err := e.candidates(portal, f.Term)
	if err != nil {
		return nil, err
	}

	pred := compile(f)
	out := candidates[:0]
	for _, d := range candidates {
		if pred(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (e *Engine) candidates(portal, term string) ([]*store.Dataset, error) {
	terms := text.Terms(term)
	if len(terms) == 0 {
		return e.store.QueryByExact(store.FieldPortal, portal, "")
	}
	// First token drives the index; the ranker handles the rest of the term.
	return e.store.QueryByPrefix(store.FieldTokens, terms[0], portal)
}

// TextSearch ranks datasets against a term, most relevant first, with
// per-field match spans. Datasets the ranker finds no evidence for are
// dropped. An empty term returns the input unranked.
func (e *Engine) TextSearch(datasets []*store.Dataset, term string) []Ranked {
	if len(text.Terms(term)) == 0 {
		out := make([]Ranked, len(datasets))
		for i, d := range datasets {
			out[i] = Ranked{Dataset: d}
		}
		return out
	}

	idx := search.NewIndex()
	byID := make(map[string]*store.Dataset, len(datasets))
	for _, d := range datasets {
		idx.Add(search.Document{ID: d.ID, Name: d.Name, Description: d.Description})
		byID[d.ID] = d
	}

	results := idx.Search(term)
	out := make([]Ranked, 0, len(results))
	for _, r := range results {
		d, ok := byID[r.ID]
		if !ok {
			continue
		}
		out = append(out, Ranked{Dataset: d, Score: r.Score, Matches: r.Matches})
	}
	return out
}

// JoinCandidates returns datasets from any portal sharing at least one column
// field name with the given dataset, distinct and excluding the dataset
// itself. Ordered by portal then id.
func (e *Engine) JoinCandidates(d *store.Dataset) ([]*store.Dataset, error) {
	seen := make(map[string]bool)
	var out []*store.Dataset

	for _, field := range d.ColumnFields {
		matches, err := e.store.QueryByExact(store.FieldColumnField, field, "")
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if m.Portal == d.Portal && m.ID == d.ID {
				continue
			}
			key := m.Portal + "\x00" + m.ID
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Portal == out[j].Portal {
			return out[i].ID < out[j].ID
		}
		return out[i].Portal < out[j].Portal
	})
	return out, nil
}
