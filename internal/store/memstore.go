// In-memory Storer implementation for tests and ephemeral sessions.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemStore keeps the replica in process memory. It mirrors SQLiteStore
// behavior so the same test suite runs against both.
type MemStore struct {
	mu        sync.RWMutex
	datasets  map[string]*Dataset           // key: portal + "\x00" + id
	lookups   map[string][]Lookup           // key: portal + "\x00" + kind
	cacheMeta *CacheMeta
}

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		datasets: make(map[string]*Dataset),
		lookups:  make(map[string][]Lookup),
	}
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error { return nil }

func key(portal, id string) string { return portal + "\x00" + id }

func copyDataset(d *Dataset) *Dataset {
	c := *d
	c.Tags = append([]string(nil), d.Tags...)
	c.Categories = append([]string(nil), d.Categories...)
	c.Columns = append([]string(nil), d.Columns...)
	c.ColumnFields = append([]string(nil), d.ColumnFields...)
	c.Tokens = append([]string(nil), d.Tokens...)
	if d.PageViews != nil {
		v := *d.PageViews
		c.PageViews = &v
	}
	return &c
}

// =============================================================================
// Datasets
// =============================================================================

func (s *MemStore) Get(id string) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.datasets {
		if d.ID == id {
			return copyDataset(d), nil
		}
	}
	return nil, nil
}

func (s *MemStore) BulkGet(ids []string) ([]*Dataset, error) {
	result := make([]*Dataset, len(ids))
	for i, id := range ids {
		d, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		result[i] = d
	}
	return result, nil
}

func (s *MemStore) UpsertMany(portal string, datasets []*Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range datasets {
		d.Portal = portal
		s.datasets[key(portal, d.ID)] = copyDataset(d)
	}
	return nil
}

func (s *MemStore) QueryByPrefix(field Field, prefix, portal string) ([]*Dataset, error) {
	if field != FieldTokens {
		return nil, fmt.Errorf("prefix query unsupported for field %q", field)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix = strings.ToLower(prefix)
	var result []*Dataset
	for _, d := range s.datasets {
		if d.Portal != portal {
			continue
		}
		for _, tok := range d.Tokens {
			if strings.HasPrefix(tok, prefix) {
				result = append(result, copyDataset(d))
				break
			}
		}
	}
	sortByID(result)
	return result, nil
}

func (s *MemStore) QueryByExact(field Field, value, portal string) ([]*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Dataset
	for _, d := range s.datasets {
		if portal != "" && d.Portal != portal {
			continue
		}
		match := false
		switch field {
		case FieldPortal:
			match = d.Portal == value
		case FieldName:
			match = d.Name == value
		case FieldDepartment:
			match = d.Department == value
		case FieldTag, FieldCategory, FieldColumn:
			match = containsValue(d, field, value)
		case FieldColumnField:
			for _, f := range d.ColumnFields {
				if f == value {
					match = true
					break
				}
			}
		default:
			return nil, fmt.Errorf("exact query unsupported for field %q", field)
		}
		if match {
			result = append(result, copyDataset(d))
		}
	}
	sortByID(result)
	return result, nil
}

func (s *MemStore) Count(portal string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if portal == "" {
		return len(s.datasets), nil
	}
	count := 0
	for _, d := range s.datasets {
		if d.Portal == portal {
			count++
		}
	}
	return count, nil
}

func (s *MemStore) IDIndex(portal string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[string]int64)
	for _, d := range s.datasets {
		if d.Portal == portal {
			index[d.ID] = d.UpdatedAt
		}
	}
	return index, nil
}

// =============================================================================
// Lookups
// =============================================================================

func (s *MemStore) ReplaceLookups(portal string, kind LookupKind, lookups []Lookup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]Lookup, len(lookups))
	copy(copied, lookups)
	sort.Slice(copied, func(i, j int) bool { return copied[i].Name < copied[j].Name })
	s.lookups[key(portal, string(kind))] = copied
	return nil
}

func (s *MemStore) Lookups(kind LookupKind, portal string) ([]Lookup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.lookups[key(portal, string(kind))]
	result := make([]Lookup, len(stored))
	copy(result, stored)
	return result, nil
}

// =============================================================================
// Cache metadata
// =============================================================================

func (s *MemStore) PutCacheMeta(meta *CacheMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := CacheMeta{LastUpdated: append([]PortalUpdate(nil), meta.LastUpdated...)}
	s.cacheMeta = &c
	return nil
}

func (s *MemStore) GetCacheMeta() (*CacheMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cacheMeta == nil {
		return nil, nil
	}
	c := CacheMeta{LastUpdated: append([]PortalUpdate(nil), s.cacheMeta.LastUpdated...)}
	return &c, nil
}

func sortByID(datasets []*Dataset) {
	sort.Slice(datasets, func(i, j int) bool { return datasets[i].ID < datasets[j].ID })
}

// Compile-time interface check
var _ Storer = (*MemStore)(nil)
