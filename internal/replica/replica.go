// Package replica ties the pieces together for one client session: on portal
// selection it consults the cache metadata, lets the staleness policy decide
// between reusing the local replica and resyncing, and pumps worker events
// into the reactive state store.
package replica

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/civicdata/explorer/internal/state"
	"github.com/civicdata/explorer/internal/store"
	"github.com/civicdata/explorer/internal/syncer"
)

// Session coordinates replica freshness for one client. It owns the informal
// single-writer discipline: callers go through EnsurePortal instead of
// starting workers themselves.
type Session struct {
	store      store.Storer
	state      *state.Store
	worker     *syncer.Worker
	staleAfter time.Duration
	log        *zap.Logger
	now        func() time.Time
}

// NewSession creates a session. A zero staleAfter falls back to the default
// 24h window.
func NewSession(s store.Storer, st *state.Store, w *syncer.Worker, staleAfter time.Duration, log *zap.Logger) *Session {
	if staleAfter <= 0 {
		staleAfter = syncer.DefaultStaleAfter
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		store:      s,
		state:      st,
		worker:     w,
		staleAfter: staleAfter,
		log:        log,
		now:        time.Now,
	}
}

// State exposes the reactive store for subscribers.
func (s *Session) State() *state.Store { return s.state }

// EnsurePortal makes the local replica of a portal usable: either hydrates
// from cache metadata when fresh enough, or runs a full sync. It returns when
// the replica is ready (or the sync failed); the sync itself runs on the
// worker's goroutine with events bridged into the state store.
func (s *Session) EnsurePortal(ctx context.Context, portal string) error {
	meta, err := s.store.GetCacheMeta()
	if err != nil {
		return err
	}

	var last *time.Time
	if meta != nil {
		for _, u := range meta.LastUpdated {
			if u.Portal == portal {
				t := u.UpdatedAt
				last = &t
				break
			}
		}
	}

	if meta != nil && !syncer.IsStale(last, s.now(), s.staleAfter) {
		s.log.Debug("replica fresh, hydrating from cache",
			zap.String("portal", portal),
			zap.Timep("last_synced", last))
		s.state.Hydrate(state.Snapshot{LastUpdated: meta.LastUpdated})
		s.state.SetLoaded()
		return nil
	}

	s.log.Info("replica stale, syncing", zap.String("portal", portal))
	for ev := range s.worker.StartSync(ctx, portal) {
		s.state.Apply(ev)
		if ev.Type == syncer.EventSyncFailed {
			return ev.Err
		}
	}
	return nil
}
