// Package store provides the durable local replica of portal catalogs.
// This is the on-device table set the sync worker writes into and the
// query layer reads from.
package store

import (
	"fmt"
	"time"
)

// Dataset is one catalog entry, keyed by (portal, id).
// Tokens are derived from name+description at upsert time and never
// hand-edited; upserts replace the whole record (last write wins).
type Dataset struct {
	ID            string   `json:"id"`
	Portal        string   `json:"portal"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Attribution   string   `json:"attribution"`
	Department    string   `json:"department"`
	CreatedAt     int64    `json:"createdAt"` // unix ms
	UpdatedAt     int64    `json:"updatedAt"` // unix ms
	DownloadCount int64    `json:"downloadCount"`
	PageViews     *int64   `json:"pageViews,omitempty"` // absent for some portals
	Tags          []string `json:"tags"`
	Categories    []string `json:"categories"`
	Columns       []string `json:"columns"`
	ColumnFields  []string `json:"columnFields"`
	Tokens        []string `json:"tokens"`
}

// LookupKind names a denormalized filter table.
type LookupKind string

const (
	LookupTag        LookupKind = "tag"
	LookupCategory   LookupKind = "category"
	LookupColumn     LookupKind = "column"
	LookupDepartment LookupKind = "department"
)

// Lookup is one denormalized filter row, scoped to a portal. Rows are
// recomputed from the dataset set on every sync, never independently mutated.
type Lookup struct {
	Portal string `json:"portal"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// Field names a queryable dataset field.
type Field string

const (
	FieldPortal      Field = "portal"
	FieldTokens      Field = "tokens"
	FieldName        Field = "name"
	FieldDepartment  Field = "department"
	FieldTag         Field = "tag"
	FieldCategory    Field = "category"
	FieldColumn      Field = "column"
	FieldColumnField Field = "columnField"
)

// PortalUpdate records the last successful sync for one portal.
type PortalUpdate struct {
	Portal    string    `json:"portal"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CacheMeta is the singleton cache-metadata blob (fixed key). The whole
// per-portal list is replaced on write; fields are never patched one by one.
type CacheMeta struct {
	LastUpdated []PortalUpdate `json:"lastUpdated"`
}

// StorageError wraps a local store write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storer defines the local replica contract.
// SQLiteStore is the durable implementation; MemStore backs tests.
type Storer interface {
	// Datasets
	Get(id string) (*Dataset, error)
	BulkGet(ids []string) ([]*Dataset, error) // preserves input order, nil for missing
	UpsertMany(portal string, datasets []*Dataset) error
	QueryByPrefix(field Field, prefix, portal string) ([]*Dataset, error)
	QueryByExact(field Field, value, portal string) ([]*Dataset, error) // empty portal = all portals
	Count(portal string) (int, error)
	IDIndex(portal string) (map[string]int64, error) // id -> updatedAt, for diffing

	// Derived filter tables
	ReplaceLookups(portal string, kind LookupKind, lookups []Lookup) error
	Lookups(kind LookupKind, portal string) ([]Lookup, error)

	// Cache metadata singleton
	PutCacheMeta(meta *CacheMeta) error
	GetCacheMeta() (*CacheMeta, error)

	// Lifecycle
	Close() error
}
