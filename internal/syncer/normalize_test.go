package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdata/explorer/internal/socrata"
	"github.com/civicdata/explorer/internal/store"
)

func manifestEntry(id, name string) socrata.Entry {
	return socrata.Entry{
		Resource: socrata.Resource{
			ID:               id,
			Name:             name,
			Description:      "Counts of things",
			CreatedAt:        time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			UpdatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			DownloadCount:    7,
			PageViews:        &socrata.PageViews{Total: 99},
			ColumnsName:      []string{"Borough"},
			ColumnsFieldName: []string{"borough"},
		},
		Classification: socrata.Classification{
			DomainTags: []string{"transit"},
			Categories: []string{"Transportation"},
			DomainMetadata: []socrata.MetadataPair{
				{Key: "Dataset-Information_Agency", Value: "DOT"},
			},
		},
	}
}

func TestNormalize(t *testing.T) {
	d, err := Normalize("data.city.gov", manifestEntry("abcd-1234", "Subway Ridership"))
	require.NoError(t, err)

	assert.Equal(t, "abcd-1234", d.ID)
	assert.Equal(t, "data.city.gov", d.Portal)
	assert.Equal(t, "DOT", d.Department)
	assert.Equal(t, []string{"transit"}, d.Tags)
	assert.Equal(t, []string{"borough"}, d.ColumnFields)
	require.NotNil(t, d.PageViews)
	assert.Equal(t, int64(99), *d.PageViews)
	assert.Contains(t, d.Tokens, "subway")
	assert.Contains(t, d.Tokens, "counts")
}

func TestNormalizeDeterministicTokens(t *testing.T) {
	a, err := Normalize("data.city.gov", manifestEntry("abcd-1234", "Subway Ridership"))
	require.NoError(t, err)
	b, err := Normalize("data.city.gov", manifestEntry("abcd-1234", "Subway Ridership"))
	require.NoError(t, err)
	assert.Equal(t, a.Tokens, b.Tokens)
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	_, err := Normalize("data.city.gov", socrata.Entry{})
	require.Error(t, err)

	e := manifestEntry("abcd-1234", "")
	_, err = Normalize("data.city.gov", e)
	require.Error(t, err)
}

func TestDeriveLookups(t *testing.T) {
	datasets := []*store.Dataset{
		{ID: "a", Tags: []string{"transit", "daily"}, Categories: []string{"Transportation"}, Columns: []string{"Borough"}, Department: "DOT"},
		{ID: "b", Tags: []string{"transit"}, Categories: []string{"Health"}, Columns: []string{"Borough", "Year"}, Department: ""},
	}

	lookups := DeriveLookups("data.city.gov", datasets)

	tags := lookups[store.LookupTag]
	require.Len(t, tags, 2)
	assert.Equal(t, "daily", tags[0].Name)
	assert.Equal(t, 1, tags[0].Count)
	assert.Equal(t, "transit", tags[1].Name)
	assert.Equal(t, 2, tags[1].Count)

	columns := lookups[store.LookupColumn]
	require.Len(t, columns, 2)
	assert.Equal(t, 2, columns[0].Count) // Borough

	departments := lookups[store.LookupDepartment]
	require.Len(t, departments, 1, "empty department not counted")
	assert.Equal(t, "DOT", departments[0].Name)
}
