// Package similarity finds thematically related datasets. Datasets embed
// into fixed-dimension vectors (see Embed) held in an HNSW index under
// cosine distance; dataset ids map to the index's uint32 keys.
package similarity

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	"github.com/hack-pad/hackpadfs"
	kvector "github.com/kshard/vector"
)

// Index maps dataset ids to embedding vectors and answers nearest-neighbor
// queries. Safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	index *hnsw.HNSW[vector.VF32]

	fs   hackpadfs.FS
	path string

	ids  []string          // key -> dataset id, insertion order
	keys map[string]uint32 // dataset id -> key
	vecs map[uint32][]float32
}

// snapshot is the gob persistence format.
type snapshot struct {
	Nodes hnsw.Nodes[vector.VF32]
	IDs   []string
	Vecs  map[uint32][]float32
}

// NewIndex opens the index at path, loading a previously saved snapshot when
// one exists and starting fresh otherwise.
func NewIndex(fs hackpadfs.FS, path string) (*Index, error) {
	x := &Index{
		fs:   fs,
		path: path,
		keys: make(map[string]uint32),
		vecs: make(map[uint32][]float32),
	}
	if err := x.load(); err != nil {
		x.index = hnsw.New[vector.VF32](vector.SurfaceVF32(kvector.Cosine()))
	}
	return x, nil
}

// NewEmptyIndex creates a fresh index that saves to path, ignoring any
// existing snapshot there.
func NewEmptyIndex(fs hackpadfs.FS, path string) *Index {
	return &Index{
		fs:    fs,
		path:  path,
		keys:  make(map[string]uint32),
		vecs:  make(map[uint32][]float32),
		index: hnsw.New[vector.VF32](vector.SurfaceVF32(kvector.Cosine())),
	}
}

// Len reports the number of indexed datasets.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// Add indexes a dataset's embedding. Re-adding an id is an error; rebuild
// the index from the store instead.
func (x *Index) Add(id string, vec []float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(vec) != Dim {
		return fmt.Errorf("similarity: vector dimension %d, want %d", len(vec), Dim)
	}
	if _, exists := x.keys[id]; exists {
		return fmt.Errorf("similarity: %s already indexed", id)
	}

	key := uint32(len(x.ids))
	x.ids = append(x.ids, id)
	x.keys[id] = key
	x.vecs[key] = vec

	x.index.Insert(vector.VF32{Key: key, Vec: vec})
	return nil
}

// Similar returns up to k dataset ids nearest to the given dataset, nearest
// first and excluding the dataset itself. Unknown ids are an error.
func (x *Index) Similar(id string, k int) ([]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	key, ok := x.keys[id]
	if !ok {
		return nil, fmt.Errorf("similarity: %s not indexed", id)
	}

	// Ask for one extra; the query point matches itself.
	ef := (k + 1) * 2
	if ef < 100 {
		ef = 100
	}
	results := x.index.Search(vector.VF32{Vec: x.vecs[key]}, k+1, ef)

	out := make([]string, 0, k)
	for _, r := range results {
		if r.Key == key {
			continue
		}
		out = append(out, x.ids[r.Key])
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// Save persists the index through the filesystem abstraction.
func (x *Index) Save() error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	snap := snapshot{
		Nodes: x.index.Nodes(),
		IDs:   x.ids,
		Vecs:  x.vecs,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("similarity: encode index: %w", err)
	}
	if err := hackpadfs.WriteFullFile(x.fs, x.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("similarity: write index: %w", err)
	}
	return nil
}

func (x *Index) load() error {
	content, err := hackpadfs.ReadFile(x.fs, x.path)
	if err != nil {
		return err
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(content)).Decode(&snap); err != nil {
		return fmt.Errorf("similarity: decode index: %w", err)
	}

	x.index = hnsw.FromNodes[vector.VF32](vector.SurfaceVF32(kvector.Cosine()), snap.Nodes)
	x.ids = snap.IDs
	x.vecs = snap.Vecs
	x.keys = make(map[string]uint32, len(snap.IDs))
	for key, id := range snap.IDs {
		x.keys[id] = uint32(key)
	}
	return nil
}
