package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdata/explorer/internal/socrata"
	"github.com/civicdata/explorer/internal/store"
)

type fakeFetcher struct {
	manifest *socrata.Manifest
	err      error
	calls    int
}

func (f *fakeFetcher) FetchManifest(ctx context.Context, domain string) (*socrata.Manifest, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.manifest, nil
}

// failingStore fails UpsertMany on a chosen call number, otherwise delegates.
type failingStore struct {
	store.Storer
	failOnCall int
	calls      int
}

func (s *failingStore) UpsertMany(portal string, datasets []*store.Dataset) error {
	s.calls++
	if s.calls == s.failOnCall {
		return &store.StorageError{Op: "upsert", Err: errors.New("disk full")}
	}
	return s.Storer.UpsertMany(portal, datasets)
}

func testManifest(n int) *socrata.Manifest {
	m := &socrata.Manifest{ResultSetSize: n}
	for i := 0; i < n; i++ {
		id := string(rune('a'+i%26)) + "zzz-000" + string(rune('0'+i/26))
		m.Results = append(m.Results, manifestEntry(id, "Dataset "+id))
	}
	return m
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestSyncHappyPath(t *testing.T) {
	s := store.NewMemStore()
	fetcher := &fakeFetcher{manifest: testManifest(5)}
	w := NewWorker(fetcher, s, nil)
	w.SetBatchSize(2)

	events := drain(w.StartSync(context.Background(), "data.city.gov"))

	// 3 batches of <=2, then all_loaded.
	require.Len(t, events, 4)
	for _, ev := range events[:3] {
		assert.Equal(t, EventDatabaseUpdated, ev.Type)
		assert.Equal(t, "data.city.gov", ev.Portal)
	}
	last := events[3]
	assert.Equal(t, EventAllLoaded, last.Type)
	assert.Equal(t, 5, last.Count)

	count, err := s.Count("data.city.gov")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	assert.Equal(t, StateIdle, w.State())

	// Lookups recomputed from the synced set.
	tags, err := s.Lookups(store.LookupTag, "data.city.gov")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "transit", tags[0].Name)
	assert.Equal(t, 5, tags[0].Count)
}

func TestSyncIdempotent(t *testing.T) {
	s := store.NewMemStore()
	fetcher := &fakeFetcher{manifest: testManifest(4)}
	w := NewWorker(fetcher, s, nil)

	drain(w.StartSync(context.Background(), "data.city.gov"))
	first, err := s.QueryByExact(store.FieldPortal, "data.city.gov", "")
	require.NoError(t, err)

	events := drain(w.StartSync(context.Background(), "data.city.gov"))
	second, err := s.QueryByExact(store.FieldPortal, "data.city.gov", "")
	require.NoError(t, err)

	assert.Equal(t, first, second, "second sync of same manifest changes nothing")

	// Unchanged records produce no upsert batches, just completion.
	require.Len(t, events, 1)
	assert.Equal(t, EventAllLoaded, events[0].Type)
}

func TestSyncFetchFailure(t *testing.T) {
	s := store.NewMemStore()
	fetcher := &fakeFetcher{err: &socrata.PortalUnavailable{Domain: "data.city.gov", StatusCode: 503}}
	w := NewWorker(fetcher, s, nil)

	events := drain(w.StartSync(context.Background(), "data.city.gov"))

	require.Len(t, events, 1)
	assert.Equal(t, EventSyncFailed, events[0].Type)

	var unavailable *socrata.PortalUnavailable
	require.ErrorAs(t, events[0].Err, &unavailable)

	// No automatic retry.
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, StateIdle, w.State())
}

func TestSyncSkipsMalformedEntries(t *testing.T) {
	s := store.NewMemStore()
	manifest := testManifest(3)
	manifest.Results = append(manifest.Results, socrata.Entry{}) // no id, no name
	fetcher := &fakeFetcher{manifest: manifest}
	w := NewWorker(fetcher, s, nil)

	events := drain(w.StartSync(context.Background(), "data.city.gov"))

	last := events[len(events)-1]
	assert.Equal(t, EventAllLoaded, last.Type)
	assert.Equal(t, 3, last.Count, "malformed entry skipped, rest kept")

	count, err := s.Count("data.city.gov")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSyncPartialFailureKeepsCommittedBatches(t *testing.T) {
	mem := store.NewMemStore()
	s := &failingStore{Storer: mem, failOnCall: 2}
	fetcher := &fakeFetcher{manifest: testManifest(6)}
	w := NewWorker(fetcher, s, nil)
	w.SetBatchSize(2)

	events := drain(w.StartSync(context.Background(), "data.city.gov"))

	// One committed batch, then the failure.
	require.Len(t, events, 2)
	assert.Equal(t, EventDatabaseUpdated, events[0].Type)
	assert.Equal(t, EventSyncFailed, events[1].Type)

	count, err := mem.Count("data.city.gov")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "committed batch remains queryable")

	// A later full resync restores completeness.
	s.failOnCall = 0
	drain(w.StartSync(context.Background(), "data.city.gov"))
	count, err = mem.Count("data.city.gov")
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}
