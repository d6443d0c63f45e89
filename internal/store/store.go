// Package store defines the record store contract shared by all backends.
//
// The store is a remote, multi-writer, last-write-wins collection of
// shopping-list items keyed by generated UUID and scoped by owner. Backends
// provide CRUD plus live owner-scoped subscriptions that deliver the full
// current set on every change.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/heartmarshall/shoplist-sync/internal/domain"
)

// Snapshot is the full ordered set of one owner's items at a point in time,
// ordered by CreatedAt descending. Revision increases with every delivery on
// a subscription; consumers use it to discard deliveries that arrive after a
// newer one has already been applied.
type Snapshot struct {
	Revision int64
	Items    []domain.Item
}

// SnapshotFunc receives snapshots from a subscription.
type SnapshotFunc func(Snapshot)

// Store is the remote collection of shopping-list items.
//
// All methods may fail with transport errors. Update and Delete return an
// error wrapping domain.ErrNotFound when the target id does not exist.
// Delivery failures on the read path are handled inside the backend: they
// are logged and skipped, keeping the subscriber's last-known-good set.
type Store interface {
	// Subscribe opens a live query over the owner's items. onSnapshot is
	// invoked with the full current set on every change, the initial load
	// included. It runs on the store's delivery goroutine and must not
	// block or call back into the store. The returned function cancels the
	// subscription; once it returns, onSnapshot is never invoked again.
	Subscribe(ctx context.Context, ownerID uuid.UUID, onSnapshot SnapshotFunc) (func(), error)

	// Add persists a new item, assigning its ID and CreatedAt, and returns
	// the assigned ID.
	Add(ctx context.Context, item domain.Item) (uuid.UUID, error)

	// Update applies a partial patch to an existing item. ID and OwnerID
	// are never modified.
	Update(ctx context.Context, id uuid.UUID, patch domain.ItemPatch) error

	// Delete removes the item. Deleting an absent item returns
	// domain.ErrNotFound and leaves every other item untouched.
	Delete(ctx context.Context, id uuid.UUID) error
}
