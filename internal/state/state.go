// Package state holds the process-wide reactive replica state: the loaded
// flag, per-portal last-sync timestamps and the refresh counter dependent
// queries key off. Subscribers get a snapshot on every transition; nothing
// here is tied to a particular UI.
package state

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/civicdata/explorer/internal/store"
	"github.com/civicdata/explorer/internal/syncer"
)

// Snapshot is an immutable view of the replica state.
type Snapshot struct {
	Loaded      bool
	LastUpdated []store.PortalUpdate
	RefreshedAt time.Time
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.LastUpdated = append([]store.PortalUpdate(nil), s.LastUpdated...)
	return c
}

// LastUpdatedFor returns the last-sync timestamp for a portal, nil if never.
func (s Snapshot) LastUpdatedFor(portal string) *time.Time {
	for _, u := range s.LastUpdated {
		if u.Portal == portal {
			t := u.UpdatedAt
			return &t
		}
	}
	return nil
}

// Store owns the replica state. All mutation goes through the defined
// transitions; reads go through Current or a subscription.
type Store struct {
	mu      sync.Mutex
	current Snapshot
	subs    map[int]chan Snapshot
	nextSub int

	persist store.Storer
	log     *zap.Logger
	now     func() time.Time
}

// NewStore creates a state store. Changes to LastUpdated are written through
// to the local store's cache metadata whenever the loaded flag is set.
func NewStore(persist store.Storer, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		subs:    make(map[int]chan Snapshot),
		persist: persist,
		log:     log,
		now:     time.Now,
	}
}

// Current returns the latest snapshot.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// Subscribe registers a listener. The returned channel receives a snapshot
// after every transition; slow listeners miss intermediate snapshots rather
// than blocking transitions. The cancel func removes the subscription.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 1)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// notify must be called with the lock held.
func (s *Store) notify() {
	snap := s.current.clone()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot and leave the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// writeThrough persists LastUpdated to the cache metadata singleton.
// Must be called with the lock held.
func (s *Store) writeThrough() {
	if !s.current.Loaded || s.persist == nil {
		return
	}
	meta := &store.CacheMeta{
		LastUpdated: append([]store.PortalUpdate(nil), s.current.LastUpdated...),
	}
	if err := s.persist.PutCacheMeta(meta); err != nil {
		s.log.Error("cache metadata write-through failed", zap.Error(err))
	}
}

// =============================================================================
// Transitions
// =============================================================================

// Hydrate merges a restored snapshot into the state (cache metadata restore).
func (s *Store) Hydrate(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.LastUpdated != nil {
		s.current.LastUpdated = append([]store.PortalUpdate(nil), snap.LastUpdated...)
	}
	if snap.Loaded {
		s.current.Loaded = true
	}
	if !snap.RefreshedAt.IsZero() {
		s.current.RefreshedAt = snap.RefreshedAt
	}
	s.notify()
}

// DatabaseUpdated bumps the refresh counter; every dependent query re-runs.
func (s *Store) DatabaseUpdated() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.RefreshedAt = s.now()
	s.notify()
}

// SetLoaded marks the replica ready for reads.
func (s *Store) SetLoaded() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Loaded = true
	s.writeThrough()
	s.notify()
}

// SetPortalUpdated stamps a portal's last-sync time, inserting the portal if
// absent and updating in place otherwise.
func (s *Store) SetPortalUpdated(portal string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	found := false
	for i, u := range s.current.LastUpdated {
		if u.Portal == portal {
			s.current.LastUpdated[i].UpdatedAt = now
			found = true
			break
		}
	}
	if !found {
		s.current.LastUpdated = append(s.current.LastUpdated,
			store.PortalUpdate{Portal: portal, UpdatedAt: now})
	}

	s.writeThrough()
	s.notify()
}

// Apply bridges a sync worker event into state transitions.
func (s *Store) Apply(ev syncer.Event) {
	switch ev.Type {
	case syncer.EventDatabaseUpdated:
		s.DatabaseUpdated()
		s.SetLoaded()
	case syncer.EventAllLoaded:
		s.DatabaseUpdated()
		s.SetLoaded()
		s.SetPortalUpdated(ev.Portal)
	case syncer.EventSyncFailed:
		s.log.Warn("sync failed",
			zap.String("portal", ev.Portal),
			zap.Error(ev.Err))
	}
}
