// Package sync maintains the canonical in-memory copy of one user's items.
//
// A Session owns at most one live store subscription at a time. Every
// accepted snapshot replaces the canonical set atomically; registered
// listeners are notified synchronously in registration order and only ever
// observe either the empty set or a fully applied snapshot.
package sync

import (
	"context"
	"log/slog"
	stdsync "sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/shoplist-sync/internal/domain"
	"github.com/heartmarshall/shoplist-sync/internal/store"
)

// ListenerFunc receives the canonical item set after each accepted change.
// The slice is owned by the session; listeners must not retain or modify it.
type ListenerFunc func(items []domain.Item)

// Session binds one authenticated owner to one live store subscription.
type Session struct {
	log   *slog.Logger
	store store.Store

	mu          stdsync.Mutex
	gen         uint64 // bumped on every Start/Stop; fences late callbacks
	active      bool
	ownerID     uuid.UUID
	cancel      func()
	items       []domain.Item
	revision    int64
	listeners   map[int]ListenerFunc
	listenOrder []int
	nextListen  int
}

// NewSession creates a session over the given store. It is idle until Start.
func NewSession(logger *slog.Logger, s store.Store) *Session {
	return &Session{
		log:       logger.With("component", "sync_session"),
		store:     s,
		listeners: make(map[int]ListenerFunc),
	}
}

// Start opens a subscription scoped to ownerID. Any previous subscription is
// torn down first, so exactly one is active at any time. The canonical set
// is empty until the first snapshot for the new owner arrives.
func (s *Session) Start(ctx context.Context, ownerID uuid.UUID) error {
	s.Stop()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.active = true
	s.ownerID = ownerID
	s.revision = 0
	s.mu.Unlock()

	cancel, err := s.store.Subscribe(ctx, ownerID, func(snap store.Snapshot) {
		s.apply(gen, snap)
	})
	if err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.active = false
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.gen != gen {
		// Stop (or another Start) won the race; drop the fresh subscription.
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.cancel = cancel
	s.mu.Unlock()

	s.log.Debug("session started", slog.String("owner_id", ownerID.String()))
	return nil
}

// Stop cancels the active subscription, if any, and clears the canonical
// set. Listeners are notified once with the empty set so derived views
// reset immediately rather than keeping the previous owner's data.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	ownerID := s.ownerID
	s.gen++
	s.active = false
	s.cancel = nil
	s.items = nil
	s.revision = 0
	fns := s.orderedListenersLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, fn := range fns {
		fn(nil)
	}

	s.log.Debug("session stopped", slog.String("owner_id", ownerID.String()))
}

// Items returns a copy of the canonical item set.
func (s *Session) Items() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]domain.Item, len(s.items))
	copy(items, s.items)
	return items
}

// Count returns the size of the canonical item set.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Owner returns the owner of the active subscription, or false when idle.
func (s *Session) Owner() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerID, s.active
}

// OnChange registers a listener invoked after every accepted snapshot and on
// Stop. Listeners fire synchronously in registration order. The returned
// function removes the listener.
func (s *Session) OnChange(fn ListenerFunc) func() {
	s.mu.Lock()
	id := s.nextListen
	s.nextListen++
	s.listeners[id] = fn
	s.listenOrder = append(s.listenOrder, id)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
		for i, lid := range s.listenOrder {
			if lid == id {
				s.listenOrder = append(s.listenOrder[:i], s.listenOrder[i+1:]...)
				break
			}
		}
	}
}

// apply installs a snapshot as the canonical set. Deliveries from a stale
// subscription generation or with a non-increasing revision are discarded,
// so an out-of-order delivery can never roll the set back.
func (s *Session) apply(gen uint64, snap store.Snapshot) {
	s.mu.Lock()
	if !s.active || s.gen != gen {
		s.mu.Unlock()
		return
	}
	if snap.Revision <= s.revision {
		s.mu.Unlock()
		s.log.Debug("stale snapshot discarded",
			slog.Int64("revision", snap.Revision),
		)
		return
	}
	s.revision = snap.Revision
	s.items = snap.Items
	items := s.items
	fns := s.orderedListenersLocked()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(items)
	}
}

func (s *Session) orderedListenersLocked() []ListenerFunc {
	fns := make([]ListenerFunc, 0, len(s.listenOrder))
	for _, id := range s.listenOrder {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}
