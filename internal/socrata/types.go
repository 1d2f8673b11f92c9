// Package socrata talks to Socrata-style open-data portals: the catalog
// manifest endpoint and the per-dataset metadata endpoint. It is the only
// code that knows the remote wire shapes.
package socrata

import "time"

// Manifest is a portal's full catalog listing in the remote's native shape.
type Manifest struct {
	Results       []Entry `json:"results"`
	ResultSetSize int     `json:"resultSetSize"`
}

// Entry is one dataset descriptor as the catalog endpoint returns it.
type Entry struct {
	Resource       Resource       `json:"resource"`
	Classification Classification `json:"classification"`
	Metadata       EntryMetadata  `json:"metadata"`
}

// Resource holds the core descriptor fields.
type Resource struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Attribution      string     `json:"attribution"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	DownloadCount    int64      `json:"download_count"`
	PageViews        *PageViews `json:"page_views"`
	ColumnsName      []string   `json:"columns_name"`
	ColumnsFieldName []string   `json:"columns_field_name"`
}

// PageViews nests the view counters; some portals omit it entirely.
type PageViews struct {
	Total int64 `json:"page_views_total"`
}

// Classification carries tags, categories and free-form domain metadata.
type Classification struct {
	Categories     []string        `json:"categories"`
	DomainCategory string          `json:"domain_category"`
	DomainTags     []string        `json:"domain_tags"`
	DomainMetadata []MetadataPair  `json:"domain_metadata"`
}

// MetadataPair is a portal-defined key/value attribute.
type MetadataPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// agencyKey is the domain-metadata attribute portals use for the owning
// department/agency.
const agencyKey = "Dataset-Information_Agency"

// Department returns the owning agency, or "" when the portal doesn't set it.
func (c Classification) Department() string {
	for _, m := range c.DomainMetadata {
		if m.Key == agencyKey {
			return m.Value
		}
	}
	return ""
}

// EntryMetadata holds the owning domain of an entry.
type EntryMetadata struct {
	Domain string `json:"domain"`
}

// DatasetRef points at a dataset on a specific portal.
type DatasetRef struct {
	Portal string
	ID     string
}

// DatasetMetadata is the per-dataset metadata document
// (/api/views/metadata/v1/{id}).
type DatasetMetadata struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Attribution string   `json:"attribution"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Domain      string   `json:"domain"`
}
