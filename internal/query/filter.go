package query

import "github.com/civicdata/explorer/internal/store"

// Predicate decides whether a dataset passes one filter dimension.
type Predicate func(*store.Dataset) bool

// anyOf passes when the dataset carries at least one of the selected values.
// An empty selection means the dimension is inactive and everything passes.
func anyOf(selected []string, extract func(*store.Dataset) []string) Predicate {
	if len(selected) == 0 {
		return func(*store.Dataset) bool { return true }
	}
	want := make(map[string]bool, len(selected))
	for _, v := range selected {
		want[v] = true
	}
	return func(d *store.Dataset) bool {
		for _, v := range extract(d) {
			if want[v] {
				return true
			}
		}
		return false
	}
}

// allOf combines dimension predicates; every active dimension must pass.
func allOf(preds ...Predicate) Predicate {
	return func(d *store.Dataset) bool {
		for _, p := range preds {
			if !p(d) {
				return false
			}
		}
		return true
	}
}

// compile builds the AND-of-ORs predicate for a filter selection.
func compile(f Filters) Predicate {
	return allOf(
		anyOf(f.Tags, func(d *store.Dataset) []string { return d.Tags }),
		anyOf(f.Categories, func(d *store.Dataset) []string { return d.Categories }),
		anyOf(f.Columns, func(d *store.Dataset) []string { return d.Columns }),
		anyOf(f.Departments, func(d *store.Dataset) []string {
			if d.Department == "" {
				return nil
			}
			return []string{d.Department}
		}),
	)
}
