package query

import (
	"sort"
	"strings"

	"github.com/civicdata/explorer/internal/store"
)

// SortField selects the dataset attribute to order by.
type SortField int

const (
	SortName SortField = iota
	SortCreated
	SortUpdated
	SortDownloads
	SortViews
)

// SortBy orders datasets in place. While a search term is active relevance
// order is authoritative, so the sort is a no-op. The sort is stable; a
// missing value orders below any present value and two missing values keep
// their input order.
func SortBy(datasets []*store.Dataset, field SortField, asc, searchActive bool) {
	if searchActive {
		return
	}

	sort.SliceStable(datasets, func(i, j int) bool {
		c := compare(datasets[i], datasets[j], field)
		if !asc {
			c = -c
		}
		return c < 0
	})
}

func compare(a, b *store.Dataset, field SortField) int {
	switch field {
	case SortName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case SortCreated:
		return compareInt64(a.CreatedAt, b.CreatedAt)
	case SortUpdated:
		return compareInt64(a.UpdatedAt, b.UpdatedAt)
	case SortDownloads:
		return compareInt64(a.DownloadCount, b.DownloadCount)
	case SortViews:
		return compareOptional(a.PageViews, b.PageViews)
	}
	return 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareOptional treats nil as smaller than any value; two nils are equal so
// the stable sort keeps their input order in either direction.
func compareOptional(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return compareInt64(*a, *b)
}
