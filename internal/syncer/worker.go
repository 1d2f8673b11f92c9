// Package syncer keeps the local replica in step with remote portal catalogs.
// A worker run walks Idle → Fetching → Diffing → Upserting → Done, with
// Failed reachable from Fetching and Upserting, and reports progress through
// typed events instead of shared state.
package syncer

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicdata/explorer/internal/socrata"
	"github.com/civicdata/explorer/internal/store"
)

// EventType identifies a sync lifecycle event.
type EventType string

const (
	// EventDatabaseUpdated fires after each committed batch.
	EventDatabaseUpdated EventType = "database_updated"
	// EventAllLoaded fires once every batch for the portal is committed.
	EventAllLoaded EventType = "all_loaded"
	// EventSyncFailed carries the terminal error of a failed run.
	EventSyncFailed EventType = "sync_failed"
)

// Event is one lifecycle message from a sync run.
type Event struct {
	Type   EventType
	Portal string
	RunID  string
	Batch  int
	Count  int
	Err    error
}

// State is the worker's position in the sync state machine.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateDiffing
	StateUpserting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateDiffing:
		return "diffing"
	case StateUpserting:
		return "upserting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Fetcher retrieves a portal's catalog manifest.
type Fetcher interface {
	FetchManifest(ctx context.Context, domain string) (*socrata.Manifest, error)
}

// DefaultBatchSize is how many dataset records go into one upsert call.
const DefaultBatchSize = 500

// Worker runs catalog syncs against the local replica. There is no guard
// against two concurrent runs for the same portal: upserts are idempotent, so
// a duplicate run wastes a fetch but cannot corrupt the store. Callers are
// expected to start at most one run per portal.
type Worker struct {
	fetcher   Fetcher
	store     store.Storer
	log       *zap.Logger
	batchSize int
	state     atomic.Int32
}

// NewWorker creates a sync worker.
func NewWorker(fetcher Fetcher, s store.Storer, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		fetcher:   fetcher,
		store:     s,
		log:       log,
		batchSize: DefaultBatchSize,
	}
}

// SetBatchSize overrides the upsert batch size.
func (w *Worker) SetBatchSize(n int) {
	if n > 0 {
		w.batchSize = n
	}
}

// State returns the worker's current state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
}

// StartSync launches a sync run for a portal on its own goroutine and returns
// the event stream. The channel is closed when the run finishes; callers must
// drain it. There is no automatic retry on failure.
func (w *Worker) StartSync(ctx context.Context, portal string) <-chan Event {
	events := make(chan Event, 16)
	go w.run(ctx, portal, events)
	return events
}

func (w *Worker) run(ctx context.Context, portal string, events chan<- Event) {
	defer close(events)

	runID := uuid.NewString()
	log := w.log.With(zap.String("portal", portal), zap.String("run_id", runID))

	fail := func(err error) {
		w.setState(StateFailed)
		log.Error("sync failed", zap.Error(err))
		events <- Event{Type: EventSyncFailed, Portal: portal, RunID: runID, Err: err}
		w.setState(StateIdle)
	}

	w.setState(StateFetching)
	log.Info("sync started")

	manifest, err := w.fetcher.FetchManifest(ctx, portal)
	if err != nil {
		fail(err)
		return
	}

	w.setState(StateDiffing)

	existing, err := w.store.IDIndex(portal)
	if err != nil {
		fail(err)
		return
	}

	records := make([]*store.Dataset, 0, len(manifest.Results))
	skipped := 0
	for _, entry := range manifest.Results {
		d, err := Normalize(portal, entry)
		if err != nil {
			// One malformed entry must not cost the whole sync.
			skipped++
			log.Warn("skipping malformed manifest entry",
				zap.String("resource_id", entry.Resource.ID),
				zap.Error(err))
			continue
		}
		records = append(records, d)
	}
	if skipped > 0 {
		log.Warn("manifest entries skipped", zap.Int("skipped", skipped))
	}

	changed := diff(existing, records)
	log.Info("manifest diffed",
		zap.Int("manifest", len(records)),
		zap.Int("changed", len(changed)))

	w.setState(StateUpserting)

	for i := 0; i < len(changed); i += w.batchSize {
		end := i + w.batchSize
		if end > len(changed) {
			end = len(changed)
		}
		batch := changed[i:end]

		if err := w.store.UpsertMany(portal, batch); err != nil {
			// Earlier batches stay committed; they are idempotent and a later
			// full resync restores completeness.
			fail(err)
			return
		}
		events <- Event{
			Type:   EventDatabaseUpdated,
			Portal: portal,
			RunID:  runID,
			Batch:  i/w.batchSize + 1,
			Count:  len(batch),
		}
	}

	if err := w.rebuildLookups(portal); err != nil {
		fail(err)
		return
	}

	w.setState(StateDone)
	log.Info("sync complete", zap.Int("upserted", len(changed)))
	events <- Event{Type: EventAllLoaded, Portal: portal, RunID: runID, Count: len(records)}
	w.setState(StateIdle)
}

// rebuildLookups recomputes the filter tables from the full post-sync set.
func (w *Worker) rebuildLookups(portal string) error {
	all, err := w.store.QueryByExact(store.FieldPortal, portal, "")
	if err != nil {
		return err
	}
	for kind, lookups := range DeriveLookups(portal, all) {
		if err := w.store.ReplaceLookups(portal, kind, lookups); err != nil {
			return err
		}
	}
	return nil
}

// diff returns the records that are new or changed relative to the local id
// index, ordered by id so batching is reproducible.
func diff(existing map[string]int64, records []*store.Dataset) []*store.Dataset {
	var changed []*store.Dataset
	for _, d := range records {
		if updatedAt, ok := existing[d.ID]; !ok || updatedAt != d.UpdatedAt {
			changed = append(changed, d)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].ID < changed[j].ID })
	return changed
}
