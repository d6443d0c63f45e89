package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/shoplist-sync/internal/domain"
	"github.com/heartmarshall/shoplist-sync/internal/store"
	"github.com/heartmarshall/shoplist-sync/internal/store/postgres"
	"github.com/heartmarshall/shoplist-sync/internal/store/postgres/testhelper"
)

// newStore sets up a test DB and returns a ready Store.
func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return postgres.New(logger, pool)
}

func buildItem(ownerID uuid.UUID, name string, price float64) domain.Item {
	return domain.Item{
		OwnerID: ownerID,
		Name:    name,
		Price:   price,
	}
}

// waitForSnapshot blocks until a snapshot satisfying ok arrives on ch.
func waitForSnapshot(t *testing.T, ch <-chan store.Snapshot, ok func(store.Snapshot) bool) store.Snapshot {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case snap := <-ch:
			if ok(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestStore_Add_AssignsIDAndCreatedAt(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	ctx := context.Background()
	ownerID := uuid.New()

	id, err := st.Add(ctx, buildItem(ownerID, "Rice", 12.5))
	if err != nil {
		t.Fatalf("Add: unexpected error: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("Add: expected non-zero id")
	}

	ch := make(chan store.Snapshot, 16)
	unsubscribe, err := st.Subscribe(ctx, ownerID, func(snap store.Snapshot) { ch <- snap })
	if err != nil {
		t.Fatalf("Subscribe: unexpected error: %v", err)
	}
	defer unsubscribe()

	snap := waitForSnapshot(t, ch, func(s store.Snapshot) bool { return len(s.Items) == 1 })
	got := snap.Items[0]
	if got.ID != id {
		t.Errorf("ID mismatch: got %s, want %s", got.ID, id)
	}
	if got.Name != "Rice" || got.Price != 12.5 {
		t.Errorf("unexpected item: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be stamped by the database")
	}
}

func TestStore_Subscribe_DeliversNewestFirst(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	ctx := context.Background()
	ownerID := uuid.New()

	names := []string{"Rice", "Milk", "Butter"}
	for _, name := range names {
		if _, err := st.Add(ctx, buildItem(ownerID, name, 1)); err != nil {
			t.Fatalf("Add %s: unexpected error: %v", name, err)
		}
	}

	ch := make(chan store.Snapshot, 16)
	unsubscribe, err := st.Subscribe(ctx, ownerID, func(snap store.Snapshot) { ch <- snap })
	if err != nil {
		t.Fatalf("Subscribe: unexpected error: %v", err)
	}
	defer unsubscribe()

	snap := waitForSnapshot(t, ch, func(s store.Snapshot) bool { return len(s.Items) == 3 })
	for i, want := range []string{"Butter", "Milk", "Rice"} {
		if snap.Items[i].Name != want {
			t.Errorf("position %d: got %s, want %s", i, snap.Items[i].Name, want)
		}
	}
}

func TestStore_Subscribe_ScopedToOwner(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	if _, err := st.Add(ctx, buildItem(alice, "Rice", 1)); err != nil {
		t.Fatalf("Add: unexpected error: %v", err)
	}
	if _, err := st.Add(ctx, buildItem(bob, "Milk", 2)); err != nil {
		t.Fatalf("Add: unexpected error: %v", err)
	}

	ch := make(chan store.Snapshot, 16)
	unsubscribe, err := st.Subscribe(ctx, alice, func(snap store.Snapshot) { ch <- snap })
	if err != nil {
		t.Fatalf("Subscribe: unexpected error: %v", err)
	}
	defer unsubscribe()

	snap := waitForSnapshot(t, ch, func(s store.Snapshot) bool { return len(s.Items) > 0 })
	for _, item := range snap.Items {
		if item.OwnerID != alice {
			t.Errorf("snapshot leaked item of owner %s", item.OwnerID)
		}
	}
}

func TestStore_Subscribe_PushesWrites(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	ctx := context.Background()
	ownerID := uuid.New()

	ch := make(chan store.Snapshot, 16)
	unsubscribe, err := st.Subscribe(ctx, ownerID, func(snap store.Snapshot) { ch <- snap })
	if err != nil {
		t.Fatalf("Subscribe: unexpected error: %v", err)
	}
	defer unsubscribe()

	waitForSnapshot(t, ch, func(s store.Snapshot) bool { return len(s.Items) == 0 })

	id, err := st.Add(ctx, buildItem(ownerID, "Rice", 12.5))
	if err != nil {
		t.Fatalf("Add: unexpected error: %v", err)
	}
	waitForSnapshot(t, ch, func(s store.Snapshot) bool { return len(s.Items) == 1 })

	newName := "Brown rice"
	if err := st.Update(ctx, id, domain.ItemPatch{Name: &newName}); err != nil {
		t.Fatalf("Update: unexpected error: %v", err)
	}
	waitForSnapshot(t, ch, func(s store.Snapshot) bool {
		return len(s.Items) == 1 && s.Items[0].Name == newName
	})

	if err := st.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: unexpected error: %v", err)
	}
	waitForSnapshot(t, ch, func(s store.Snapshot) bool { return len(s.Items) == 0 })
}

func TestStore_Subscribe_RevisionsStrictlyIncrease(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	ctx := context.Background()
	ownerID := uuid.New()

	ch := make(chan store.Snapshot, 64)
	unsubscribe, err := st.Subscribe(ctx, ownerID, func(snap store.Snapshot) { ch <- snap })
	if err != nil {
		t.Fatalf("Subscribe: unexpected error: %v", err)
	}
	defer unsubscribe()

	for i := 0; i < 3; i++ {
		if _, err := st.Add(ctx, buildItem(ownerID, "Item number", float64(i+1))); err != nil {
			t.Fatalf("Add: unexpected error: %v", err)
		}
	}
	waitForSnapshot(t, ch, func(s store.Snapshot) bool { return len(s.Items) == 3 })

	var last int64
	for {
		select {
		case snap := <-ch:
			if snap.Revision <= last {
				t.Fatalf("revision went backwards: %d after %d", snap.Revision, last)
			}
			last = snap.Revision
		default:
			if last == 0 {
				t.Fatal("expected at least one snapshot")
			}
			return
		}
	}
}

func TestStore_Update_ClearsOptionalFields(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	ctx := context.Background()
	ownerID := uuid.New()

	item := buildItem(ownerID, "Rice", 12.5)
	desc := "long grain"
	item.Description = &desc
	id, err := st.Add(ctx, item)
	if err != nil {
		t.Fatalf("Add: unexpected error: %v", err)
	}

	empty := ""
	if err := st.Update(ctx, id, domain.ItemPatch{Description: &empty}); err != nil {
		t.Fatalf("Update: unexpected error: %v", err)
	}

	ch := make(chan store.Snapshot, 16)
	unsubscribe, err := st.Subscribe(ctx, ownerID, func(snap store.Snapshot) { ch <- snap })
	if err != nil {
		t.Fatalf("Subscribe: unexpected error: %v", err)
	}
	defer unsubscribe()

	snap := waitForSnapshot(t, ch, func(s store.Snapshot) bool { return len(s.Items) == 1 })
	if snap.Items[0].Description != nil {
		t.Errorf("expected cleared description, got %q", *snap.Items[0].Description)
	}
}

func TestStore_Update_EmptyPatchIsNoop(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	ctx := context.Background()

	if err := st.Update(ctx, uuid.New(), domain.ItemPatch{}); err != nil {
		t.Fatalf("Update with empty patch: unexpected error: %v", err)
	}
}

func TestStore_Update_NotFound(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	ctx := context.Background()

	name := "Rice"
	err := st.Update(ctx, uuid.New(), domain.ItemPatch{Name: &name})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestStore_Delete_NotFound(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	ctx := context.Background()

	err := st.Delete(ctx, uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestStore_Add_CheckViolationMapsToValidation(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	ctx := context.Background()

	_, err := st.Add(ctx, buildItem(uuid.New(), "Rice", -1))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got: %v", err)
	}
}

func TestStore_Unsubscribe_StopsDelivery(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	ctx := context.Background()
	ownerID := uuid.New()

	ch := make(chan store.Snapshot, 16)
	unsubscribe, err := st.Subscribe(ctx, ownerID, func(snap store.Snapshot) { ch <- snap })
	if err != nil {
		t.Fatalf("Subscribe: unexpected error: %v", err)
	}
	waitForSnapshot(t, ch, func(s store.Snapshot) bool { return len(s.Items) == 0 })

	unsubscribe()

	if _, err := st.Add(ctx, buildItem(ownerID, "Rice", 1)); err != nil {
		t.Fatalf("Add: unexpected error: %v", err)
	}

	// Give the listener time to (wrongly) deliver before asserting silence.
	time.Sleep(500 * time.Millisecond)
	select {
	case snap := <-ch:
		if len(snap.Items) != 0 {
			t.Fatalf("received snapshot after unsubscribe: %+v", snap)
		}
	default:
	}
}
