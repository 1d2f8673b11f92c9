// SQLite-backed replica store using ncruces/go-sqlite3 through database/sql.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStore is the durable local replica.
// Thread-safe; sync worker writes and query layer reads may interleave.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// schema defines the persisted layout. It must stay stable across sessions:
// datasets plus the dataset_tokens/dataset_fields side tables (multi-entry
// indexes), the per-portal lookup tables and the cache_meta singleton.
const schema = `
CREATE TABLE IF NOT EXISTS datasets (
    portal TEXT NOT NULL,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    attribution TEXT NOT NULL DEFAULT '',
    department TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL DEFAULT 0,
    download_count INTEGER NOT NULL DEFAULT 0,
    page_views INTEGER,
    tags TEXT,
    categories TEXT,
    columns TEXT,
    column_fields TEXT,
    tokens TEXT,
    PRIMARY KEY (portal, id)
);

CREATE INDEX IF NOT EXISTS idx_datasets_id ON datasets(id);
CREATE INDEX IF NOT EXISTS idx_datasets_department ON datasets(portal, department);
CREATE INDEX IF NOT EXISTS idx_datasets_name ON datasets(portal, name);

-- Multi-entry indexes: one row per token / column field identifier.
CREATE TABLE IF NOT EXISTS dataset_tokens (
    portal TEXT NOT NULL,
    id TEXT NOT NULL,
    token TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tokens_lookup ON dataset_tokens(portal, token);

CREATE TABLE IF NOT EXISTS dataset_fields (
    portal TEXT NOT NULL,
    id TEXT NOT NULL,
    field TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fields_field ON dataset_fields(field);
CREATE INDEX IF NOT EXISTS idx_fields_portal ON dataset_fields(portal, field);

-- Denormalized filter rows (Tags/Categories/Columns/Departments), one table
-- discriminated by kind. Replaced wholesale on every sync.
CREATE TABLE IF NOT EXISTS lookups (
    portal TEXT NOT NULL,
    kind TEXT NOT NULL,
    name TEXT NOT NULL,
    count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (portal, kind, name)
);

CREATE INDEX IF NOT EXISTS idx_lookups_kind ON lookups(portal, kind);

-- Singleton cache-metadata row at fixed key 0.
CREATE TABLE IF NOT EXISTS cache_meta (
    id INTEGER PRIMARY KEY CHECK (id = 0),
    data TEXT NOT NULL
);
`

// NewSQLiteStore creates an in-memory store, mostly useful for tests.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store at a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Datasets
// =============================================================================

const datasetColumns = `portal, id, name, description, attribution, department,
	created_at, updated_at, download_count, page_views,
	tags, categories, columns, column_fields, tokens`

// Get retrieves a dataset by id alone. Catalog ids are unique per portal and
// do not collide across portals in practice; the first match wins.
func (s *SQLiteStore) Get(id string) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+datasetColumns+` FROM datasets WHERE id = ? LIMIT 1`, id)
	d, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// BulkGet retrieves datasets preserving input order, nil for missing ids.
func (s *SQLiteStore) BulkGet(ids []string) ([]*Dataset, error) {
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

// UpsertMany replaces or inserts datasets for a portal as a single
// transaction. Callers are responsible for emitting change events after a
// successful return; the store does not notify.
func (s *SQLiteStore) UpsertMany(portal string, datasets []*Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Op: "upsert begin", Err: err}
	}
	defer tx.Rollback()

	for _, d := range datasets {
		d.Portal = portal

		tags, _ := json.Marshal(d.Tags)
		categories, _ := json.Marshal(d.Categories)
		columns, _ := json.Marshal(d.Columns)
		columnFields, _ := json.Marshal(d.ColumnFields)
		tokens, _ := json.Marshal(d.Tokens)

		var pageViews interface{}
		if d.PageViews != nil {
			pageViews = *d.PageViews
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO datasets (portal, id, name, description, attribution,
				department, created_at, updated_at, download_count, page_views,
				tags, categories, columns, column_fields, tokens)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, portal, d.ID, d.Name, d.Description, d.Attribution, d.Department,
			d.CreatedAt, d.UpdatedAt, d.DownloadCount, pageViews,
			string(tags), string(categories), string(columns), string(columnFields), string(tokens))
		if err != nil {
			return &StorageError{Op: "upsert dataset " + d.ID, Err: err}
		}

		if _, err = tx.Exec(`DELETE FROM dataset_tokens WHERE portal = ? AND id = ?`, portal, d.ID); err != nil {
			return &StorageError{Op: "clear tokens " + d.ID, Err: err}
		}
		for _, tok := range d.Tokens {
			if _, err = tx.Exec(`INSERT INTO dataset_tokens (portal, id, token) VALUES (?, ?, ?)`,
				portal, d.ID, tok); err != nil {
				return &StorageError{Op: "index token " + d.ID, Err: err}
			}
		}

		if _, err = tx.Exec(`DELETE FROM dataset_fields WHERE portal = ? AND id = ?`, portal, d.ID); err != nil {
			return &StorageError{Op: "clear fields " + d.ID, Err: err}
		}
		for _, f := range d.ColumnFields {
			if _, err = tx.Exec(`INSERT INTO dataset_fields (portal, id, field) VALUES (?, ?, ?)`,
				portal, d.ID, f); err != nil {
				return &StorageError{Op: "index field " + d.ID, Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "upsert commit", Err: err}
	}
	return nil
}

// QueryByPrefix returns datasets whose indexed field starts with prefix.
// Only the token index supports prefix queries.
func (s *SQLiteStore) QueryByPrefix(field Field, prefix, portal string) ([]*Dataset, error) {
	if field != FieldTokens {
		return nil, fmt.Errorf("prefix query unsupported for field %q", field)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern := escapeLike(strings.ToLower(prefix)) + "%"
	rows, err := s.db.Query(`
		SELECT DISTINCT `+prefixed(datasetColumns, "d.")+`
		FROM datasets d
		JOIN dataset_tokens t ON t.portal = d.portal AND t.id = d.id
		WHERE d.portal = ? AND t.token LIKE ? ESCAPE '\'
		ORDER BY d.id
	`, portal, pattern)
	if err != nil {
		return nil, err
	}
	return collectDatasets(rows)
}

// QueryByExact returns datasets matching value on the given field. An empty
// portal matches every portal (used for cross-portal join candidates).
func (s *SQLiteStore) QueryByExact(field Field, value, portal string) ([]*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch field {
	case FieldPortal:
		rows, err := s.db.Query(`SELECT `+datasetColumns+` FROM datasets WHERE portal = ? ORDER BY id`, value)
		if err != nil {
			return nil, err
		}
		return collectDatasets(rows)

	case FieldName, FieldDepartment:
		col := "name"
		if field == FieldDepartment {
			col = "department"
		}
		q := `SELECT ` + datasetColumns + ` FROM datasets WHERE ` + col + ` = ?`
		args := []interface{}{value}
		if portal != "" {
			q += ` AND portal = ?`
			args = append(args, portal)
		}
		rows, err := s.db.Query(q+` ORDER BY id`, args...)
		if err != nil {
			return nil, err
		}
		return collectDatasets(rows)

	case FieldColumnField:
		q := `
			SELECT DISTINCT ` + prefixed(datasetColumns, "d.") + `
			FROM datasets d
			JOIN dataset_fields f ON f.portal = d.portal AND f.id = d.id
			WHERE f.field = ?`
		args := []interface{}{value}
		if portal != "" {
			q += ` AND d.portal = ?`
			args = append(args, portal)
		}
		rows, err := s.db.Query(q+` ORDER BY d.id`, args...)
		if err != nil {
			return nil, err
		}
		return collectDatasets(rows)

	case FieldTag, FieldCategory, FieldColumn:
		// List fields live as JSON arrays on the row; scan and filter here.
		// Exact queries on these are rare (filter UIs go through Lookups).
		q := `SELECT ` + datasetColumns + ` FROM datasets`
		var args []interface{}
		if portal != "" {
			q += ` WHERE portal = ?`
			args = append(args, portal)
		}
		rows, err := s.db.Query(q+` ORDER BY id`, args...)
		if err != nil {
			return nil, err
		}
		all, err := collectDatasets(rows)
		if err != nil {
			return nil, err
		}
		var result []*Dataset
		for _, d := range all {
			if containsValue(d, field, value) {
				result = append(result, d)
			}
		}
		return result, nil

	default:
		return nil, fmt.Errorf("exact query unsupported for field %q", field)
	}
}

// Count returns the number of datasets for a portal, or all when empty.
func (s *SQLiteStore) Count(portal string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	var err error
	if portal == "" {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM datasets`).Scan(&count)
	} else {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM datasets WHERE portal = ?`, portal).Scan(&count)
	}
	return count, err
}

// IDIndex returns id -> updatedAt for every dataset of a portal.
func (s *SQLiteStore) IDIndex(portal string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, updated_at FROM datasets WHERE portal = ?`, portal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	index := make(map[string]int64)
	for rows.Next() {
		var id string
		var updatedAt int64
		if err := rows.Scan(&id, &updatedAt); err != nil {
			return nil, err
		}
		index[id] = updatedAt
	}
	return index, rows.Err()
}

// =============================================================================
// Lookups
// =============================================================================

// ReplaceLookups swaps the full lookup set for (portal, kind) in one
// transaction.
func (s *SQLiteStore) ReplaceLookups(portal string, kind LookupKind, lookups []Lookup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Op: "lookups begin", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM lookups WHERE portal = ? AND kind = ?`, portal, kind); err != nil {
		return &StorageError{Op: "lookups clear", Err: err}
	}
	for _, l := range lookups {
		if _, err := tx.Exec(`INSERT INTO lookups (portal, kind, name, count) VALUES (?, ?, ?, ?)`,
			portal, kind, l.Name, l.Count); err != nil {
			return &StorageError{Op: "lookups insert", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "lookups commit", Err: err}
	}
	return nil
}

// Lookups returns the filter rows of a kind for a portal, sorted by name.
func (s *SQLiteStore) Lookups(kind LookupKind, portal string) ([]Lookup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT portal, name, count FROM lookups
		WHERE portal = ? AND kind = ? ORDER BY name
	`, portal, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lookups []Lookup
	for rows.Next() {
		var l Lookup
		if err := rows.Scan(&l.Portal, &l.Name, &l.Count); err != nil {
			return nil, err
		}
		lookups = append(lookups, l)
	}
	return lookups, rows.Err()
}

// =============================================================================
// Cache metadata
// =============================================================================

// PutCacheMeta replaces the singleton metadata blob.
func (s *SQLiteStore) PutCacheMeta(meta *CacheMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(meta)
	if err != nil {
		return &StorageError{Op: "cache meta marshal", Err: err}
	}
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO cache_meta (id, data) VALUES (0, ?)`, string(data)); err != nil {
		return &StorageError{Op: "cache meta write", Err: err}
	}
	return nil
}

// GetCacheMeta returns the metadata blob, or nil when never written.
func (s *SQLiteStore) GetCacheMeta() (*CacheMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRow(`SELECT data FROM cache_meta WHERE id = 0`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var meta CacheMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// =============================================================================
// Helpers
// =============================================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row rowScanner) (*Dataset, error) {
	var d Dataset
	var pageViews sql.NullInt64
	var tags, categories, columns, columnFields, tokens sql.NullString

	err := row.Scan(
		&d.Portal, &d.ID, &d.Name, &d.Description, &d.Attribution, &d.Department,
		&d.CreatedAt, &d.UpdatedAt, &d.DownloadCount, &pageViews,
		&tags, &categories, &columns, &columnFields, &tokens,
	)
	if err != nil {
		return nil, err
	}

	if pageViews.Valid {
		v := pageViews.Int64
		d.PageViews = &v
	}
	d.Tags = fromJSONList(tags.String)
	d.Categories = fromJSONList(categories.String)
	d.Columns = fromJSONList(columns.String)
	d.ColumnFields = fromJSONList(columnFields.String)
	d.Tokens = fromJSONList(tokens.String)

	return &d, nil
}

func collectDatasets(rows *sql.Rows) ([]*Dataset, error) {
	defer rows.Close()

	var datasets []*Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

func fromJSONList(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil
	}
	return list
}

func containsValue(d *Dataset, field Field, value string) bool {
	var list []string
	switch field {
	case FieldTag:
		list = d.Tags
	case FieldCategory:
		list = d.Categories
	case FieldColumn:
		list = d.Columns
	}
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// prefixed rewrites a comma-separated column list with a table alias.
func prefixed(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
