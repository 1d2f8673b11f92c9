package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdata/explorer/pkg/text"
)

func buildIndex(docs ...Document) *Index {
	idx := NewIndex()
	for _, d := range docs {
		idx.Add(d)
	}
	return idx
}

func ids(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestSearchRanksNameAboveDescription(t *testing.T) {
	idx := buildIndex(
		Document{ID: "desc", Name: "Annual Report", Description: "subway ridership by station"},
		Document{ID: "name", Name: "Subway Ridership", Description: "counts of riders"},
	)

	results := idx.Search("subway")
	require.Len(t, results, 2)
	assert.Equal(t, []string{"name", "desc"}, ids(results))
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchPrefixExpandsFinalToken(t *testing.T) {
	idx := buildIndex(
		Document{ID: "a", Name: "Subway Ridership"},
		Document{ID: "b", Name: "Substation Outages"},
		Document{ID: "c", Name: "Park Inspections"},
	)

	results := idx.Search("sub")
	assert.ElementsMatch(t, []string{"a", "b"}, ids(results))

	// Non-final tokens are exact.
	results = idx.Search("sub ridership")
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestSearchCoverageFavorsMoreTermsMatched(t *testing.T) {
	idx := buildIndex(
		Document{ID: "one", Name: "Subway Map"},
		Document{ID: "both", Name: "Subway Ridership"},
	)

	results := idx.Search("subway ridership")
	require.Len(t, results, 2)
	assert.Equal(t, "both", results[0].ID)
}

func TestSearchMatchSpansFallInsideField(t *testing.T) {
	idx := buildIndex(
		Document{ID: "a", Name: "Subway Ridership", Description: "Daily subway ridership, by station."},
	)

	results := idx.Search("subway")
	require.Len(t, results, 1)
	require.NotEmpty(t, results[0].Matches)

	normalized := map[string]string{
		FieldName:        text.Normalize("Subway Ridership"),
		FieldDescription: text.Normalize("Daily subway ridership, by station."),
	}

	for _, fm := range results[0].Matches {
		content, ok := normalized[fm.Field]
		require.True(t, ok)
		require.NotEmpty(t, fm.Spans)
		for _, sp := range fm.Spans {
			require.GreaterOrEqual(t, sp.Start, 0)
			require.LessOrEqual(t, sp.End, len(content))
			assert.True(t, strings.HasPrefix(content[sp.Start:], "subway"))
		}
	}
}

func TestSearchEmptyTermReturnsNil(t *testing.T) {
	idx := buildIndex(Document{ID: "a", Name: "Subway Ridership"})

	assert.Nil(t, idx.Search(""))
	assert.Nil(t, idx.Search("   "))
	assert.Nil(t, idx.Search("of the")) // all stop words
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	idx := buildIndex(
		Document{ID: "first", Name: "Subway Map"},
		Document{ID: "second", Name: "Subway Map"},
	)

	results := idx.Search("subway")
	assert.Equal(t, []string{"first", "second"}, ids(results))
}

func TestSearchNoMatches(t *testing.T) {
	idx := buildIndex(Document{ID: "a", Name: "Park Inspections"})
	assert.Empty(t, idx.Search("subway"))
}
