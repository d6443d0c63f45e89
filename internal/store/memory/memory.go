// Package memory implements an in-process record store.
//
// It backs unit tests and the standalone (single-device) mode. Semantics
// match the remote contract: full-set snapshots per change, last write wins,
// store-assigned IDs and creation timestamps.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/shoplist-sync/internal/domain"
	"github.com/heartmarshall/shoplist-sync/internal/store"
)

// Store holds all items in memory and fans changes out to subscribers.
type Store struct {
	mu      sync.Mutex
	items   map[uuid.UUID]domain.Item
	subs    map[int]*subscription
	nextSub int
	lastTS  time.Time

	now func() time.Time
}

type subscription struct {
	ownerID uuid.UUID
	fn      store.SnapshotFunc

	// deliverMu serializes deliveries and fences them against cancellation:
	// unsubscribe takes it before marking the subscription closed, so no
	// callback can fire after unsubscribe returns.
	deliverMu sync.Mutex
	closed    bool
	revision  int64
	delivered int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		items: make(map[uuid.UUID]domain.Item),
		subs:  make(map[int]*subscription),
		now:   time.Now,
	}
}

// Subscribe registers a live query for the owner's items and synchronously
// delivers the initial snapshot before returning.
func (s *Store) Subscribe(_ context.Context, ownerID uuid.UUID, onSnapshot store.SnapshotFunc) (func(), error) {
	s.mu.Lock()
	sub := &subscription{ownerID: ownerID, fn: onSnapshot}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub

	sub.revision++
	initial := store.Snapshot{Revision: sub.revision, Items: s.ownerItemsLocked(ownerID)}
	s.mu.Unlock()

	sub.deliver(initial)

	unsubscribe := func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()

		sub.deliverMu.Lock()
		sub.closed = true
		sub.deliverMu.Unlock()
	}
	return unsubscribe, nil
}

// Add persists a new item, assigning its ID and CreatedAt.
func (s *Store) Add(_ context.Context, item domain.Item) (uuid.UUID, error) {
	s.mu.Lock()
	item.ID = uuid.New()
	item.CreatedAt = s.nextTimestampLocked()
	s.items[item.ID] = item
	pending := s.snapshotsForLocked(item.OwnerID)
	s.mu.Unlock()

	deliverAll(pending)
	return item.ID, nil
}

// Update applies a partial patch to an existing item.
func (s *Store) Update(_ context.Context, id uuid.UUID, patch domain.ItemPatch) error {
	s.mu.Lock()
	item, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}

	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	if patch.Description != nil {
		item.Description = patch.Description
	}
	if patch.Category != nil {
		item.Category = patch.Category
	}
	s.items[id] = item
	pending := s.snapshotsForLocked(item.OwnerID)
	s.mu.Unlock()

	deliverAll(pending)
	return nil
}

// Delete removes the item. Deleting an absent item returns ErrNotFound.
func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	item, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	delete(s.items, id)
	pending := s.snapshotsForLocked(item.OwnerID)
	s.mu.Unlock()

	deliverAll(pending)
	return nil
}

// nextTimestampLocked returns a strictly increasing creation timestamp so
// CreatedAt is a total order even for back-to-back writes.
func (s *Store) nextTimestampLocked() time.Time {
	ts := s.now()
	if !ts.After(s.lastTS) {
		ts = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = ts
	return ts
}

// ownerItemsLocked returns the owner's items ordered by CreatedAt descending.
func (s *Store) ownerItemsLocked(ownerID uuid.UUID) []domain.Item {
	items := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if item.OwnerID == ownerID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items
}

type pendingDelivery struct {
	sub  *subscription
	snap store.Snapshot
}

// snapshotsForLocked builds the next snapshot for every subscription scoped
// to the owner. Revisions are assigned under the store lock so they reflect
// capture order.
func (s *Store) snapshotsForLocked(ownerID uuid.UUID) []pendingDelivery {
	var pending []pendingDelivery
	for _, sub := range s.subs {
		if sub.ownerID != ownerID {
			continue
		}
		sub.revision++
		pending = append(pending, pendingDelivery{
			sub:  sub,
			snap: store.Snapshot{Revision: sub.revision, Items: s.ownerItemsLocked(ownerID)},
		})
	}
	return pending
}

func deliverAll(pending []pendingDelivery) {
	for _, p := range pending {
		p.sub.deliver(p.snap)
	}
}

func (sub *subscription) deliver(snap store.Snapshot) {
	sub.deliverMu.Lock()
	defer sub.deliverMu.Unlock()

	if sub.closed || snap.Revision <= sub.delivered {
		return
	}
	sub.delivered = snap.Revision
	sub.fn(snap)
}
