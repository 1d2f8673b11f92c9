package syncer

import (
	"errors"
	"sort"

	"github.com/civicdata/explorer/internal/socrata"
	"github.com/civicdata/explorer/internal/store"
	"github.com/civicdata/explorer/pkg/text"
)

// Normalize converts one manifest entry into a Dataset record. Tokens are
// regenerated from name+description every time, so two normalizations of the
// same entry are identical.
func Normalize(portal string, e socrata.Entry) (*store.Dataset, error) {
	r := e.Resource
	if r.ID == "" {
		return nil, errors.New("entry missing resource id")
	}
	if r.Name == "" {
		return nil, errors.New("entry missing resource name")
	}

	d := &store.Dataset{
		ID:            r.ID,
		Portal:        portal,
		Name:          r.Name,
		Description:   r.Description,
		Attribution:   r.Attribution,
		Department:    e.Classification.Department(),
		DownloadCount: r.DownloadCount,
		Tags:          e.Classification.DomainTags,
		Categories:    e.Classification.Categories,
		Columns:       r.ColumnsName,
		ColumnFields:  r.ColumnsFieldName,
		Tokens:        text.Tokenize(r.Name, r.Description),
	}
	if !r.CreatedAt.IsZero() {
		d.CreatedAt = r.CreatedAt.UnixMilli()
	}
	if !r.UpdatedAt.IsZero() {
		d.UpdatedAt = r.UpdatedAt.UnixMilli()
	}
	if r.PageViews != nil {
		v := r.PageViews.Total
		d.PageViews = &v
	}
	return d, nil
}

// DeriveLookups recomputes the denormalized filter rows from the full dataset
// set of a portal. Output is sorted by name so recomputation is deterministic.
func DeriveLookups(portal string, datasets []*store.Dataset) map[store.LookupKind][]store.Lookup {
	counts := map[store.LookupKind]map[string]int{
		store.LookupTag:        {},
		store.LookupCategory:   {},
		store.LookupColumn:     {},
		store.LookupDepartment: {},
	}

	for _, d := range datasets {
		for _, t := range d.Tags {
			counts[store.LookupTag][t]++
		}
		for _, c := range d.Categories {
			counts[store.LookupCategory][c]++
		}
		for _, c := range d.Columns {
			counts[store.LookupColumn][c]++
		}
		if d.Department != "" {
			counts[store.LookupDepartment][d.Department]++
		}
	}

	result := make(map[store.LookupKind][]store.Lookup, len(counts))
	for kind, byName := range counts {
		lookups := make([]store.Lookup, 0, len(byName))
		for name, count := range byName {
			lookups = append(lookups, store.Lookup{Portal: portal, Name: name, Count: count})
		}
		sort.Slice(lookups, func(i, j int) bool { return lookups[i].Name < lookups[j].Name })
		result[kind] = lookups
	}
	return result
}
