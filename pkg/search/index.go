// Package search provides an in-memory ranking index over dataset name and
// description. It answers the ordering question only; which datasets are
// eligible at all is decided upstream by the query layer.
package search

import (
	"sort"

	"github.com/civicdata/explorer/pkg/text"
)

// Field names used in match reporting.
const (
	FieldName        = "name"
	FieldDescription = "description"
)

// Document is one searchable dataset projection.
type Document struct {
	ID          string
	Name        string
	Description string
}

type fieldOccurrence struct {
	TF int
}

type posting struct {
	doc    int // index into docs, insertion order
	fields map[string]fieldOccurrence
}

type docInfo struct {
	id string

	// Normalized field text, kept for verification and span reporting.
	norm map[string]string

	// Term count per field, for length normalization.
	lens map[string]int
}

// Index is a token-level inverted index with BM25 scoring. Not safe for
// concurrent mutation; build fully, then search.
type Index struct {
	k1, b float64

	docs     []docInfo
	byID     map[string]int
	postings map[string][]posting
	vocab    []string // sorted lazily, for prefix expansion
	dirty    bool

	totalFieldLens map[string]float64
}

// NewIndex creates an empty index with standard BM25 parameters.
func NewIndex() *Index {
	return &Index{
		k1:             1.2,
		b:              0.75,
		byID:           make(map[string]int),
		postings:       make(map[string][]posting),
		totalFieldLens: make(map[string]float64),
	}
}

// Len reports the number of indexed documents.
func (idx *Index) Len() int { return len(idx.docs) }

// Add indexes a document. Re-adding an ID is not supported; the index is
// rebuilt from the store after every sync instead.
func (idx *Index) Add(doc Document) {
	n := len(idx.docs)
	info := docInfo{
		id:   doc.ID,
		norm: make(map[string]string, 2),
		lens: make(map[string]int, 2),
	}

	for field, content := range map[string]string{
		FieldName:        doc.Name,
		FieldDescription: doc.Description,
	} {
		info.norm[field] = text.Normalize(content)
		terms := text.Terms(content)
		info.lens[field] = len(terms)
		idx.totalFieldLens[field] += float64(len(terms))

		for _, term := range terms {
			plist := idx.postings[term]
			if len(plist) == 0 || plist[len(plist)-1].doc != n {
				if len(plist) == 0 {
					idx.dirty = true // new vocab entry
				}
				plist = append(plist, posting{doc: n, fields: make(map[string]fieldOccurrence)})
				idx.postings[term] = plist
			}
			occ := plist[len(plist)-1].fields[field]
			occ.TF++
			plist[len(plist)-1].fields[field] = occ
		}
	}

	idx.docs = append(idx.docs, info)
	idx.byID[doc.ID] = n
}

func (idx *Index) vocabulary() []string {
	if idx.dirty || idx.vocab == nil {
		idx.vocab = idx.vocab[:0]
		for term := range idx.postings {
			idx.vocab = append(idx.vocab, term)
		}
		sort.Strings(idx.vocab)
		idx.dirty = false
	}
	return idx.vocab
}

// expand returns the indexed terms starting with prefix, in sorted order.
func (idx *Index) expand(prefix string) []string {
	vocab := idx.vocabulary()
	lo := sort.SearchStrings(vocab, prefix)
	var out []string
	for i := lo; i < len(vocab); i++ {
		if len(vocab[i]) < len(prefix) || vocab[i][:len(prefix)] != prefix {
			break
		}
		out = append(out, vocab[i])
	}
	return out
}

func (idx *Index) avgFieldLen(field string) float64 {
	if len(idx.docs) == 0 {
		return 0
	}
	return idx.totalFieldLens[field] / float64(len(idx.docs))
}
