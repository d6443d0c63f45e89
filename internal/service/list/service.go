// Package list implements the mutation coordinator for shopping-list items.
//
// The service validates create/update/delete intents before any store call
// and holds at most one in-flight mutation per logical target. Writes are
// never applied to the local canonical set directly; the user-visible list
// changes only when the store round-trips the write through the
// subscription.
package list

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/shoplist-sync/internal/domain"
	"github.com/heartmarshall/shoplist-sync/pkg/ctxutil"
)

// newTarget is the in-flight key for creations: one pending create at a time.
const newTarget = "new"

// recordStore defines the store operations needed by the list service.
type recordStore interface {
	Add(ctx context.Context, item domain.Item) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.ItemPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// itemCounter reports the current size of the owner's canonical item set.
type itemCounter interface {
	Count() int
}

// Service validates and submits item mutations.
type Service struct {
	log      *slog.Logger
	store    recordStore
	counter  itemCounter
	maxItems int

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService creates a new list service. counter may be nil, in which case
// the per-user item limit is not enforced.
func NewService(logger *slog.Logger, store recordStore, counter itemCounter, maxItems int) *Service {
	return &Service{
		log:      logger.With("service", "list"),
		store:    store,
		counter:  counter,
		maxItems: maxItems,
		inflight: make(map[string]struct{}),
	}
}

// Save creates a new item (input.ID == nil) or updates an existing one.
// It returns the id of the saved item. While a submission for the same
// target is in flight, further submissions fail with domain.ErrBusy.
func (s *Service) Save(ctx context.Context, input SaveInput) (uuid.UUID, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return uuid.Nil, err
	}

	name := strings.TrimSpace(input.Name)
	description := trimOptional(input.Description)
	category := trimOptional(input.Category)

	target := newTarget
	if input.ID != nil {
		target = input.ID.String()
	}
	if !s.acquire(target) {
		return uuid.Nil, domain.ErrBusy
	}
	defer s.release(target)

	if input.ID == nil {
		if s.counter != nil && s.maxItems > 0 && s.counter.Count() >= s.maxItems {
			return uuid.Nil, domain.NewValidationError("items", fmt.Sprintf("limit reached (%d)", s.maxItems))
		}

		id, err := s.store.Add(ctx, domain.Item{
			OwnerID:     userID,
			Name:        name,
			Price:       input.Price,
			Description: nilIfEmpty(description),
			Category:    nilIfEmpty(category),
		})
		if err != nil {
			return uuid.Nil, fmt.Errorf("add item: %w", err)
		}

		s.log.DebugContext(ctx, "item created",
			slog.String("user_id", userID.String()),
			slog.String("item_id", id.String()),
		)
		return id, nil
	}

	// Description and Category are always part of the patch: an empty value
	// clears the field, it does not mean "unchanged".
	err := s.store.Update(ctx, *input.ID, domain.ItemPatch{
		Name:        &name,
		Price:       &input.Price,
		Description: &description,
		Category:    &category,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("update item %s: %w", *input.ID, err)
	}

	s.log.DebugContext(ctx, "item updated",
		slog.String("user_id", userID.String()),
		slog.String("item_id", input.ID.String()),
	)
	return *input.ID, nil
}

// Delete removes an item. The caller is responsible for user confirmation.
// A target that is already gone counts as success; transport failures
// propagate and may be retried.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}

	if id == uuid.Nil {
		return domain.NewValidationError("id", "required")
	}

	if !s.acquire(id.String()) {
		return domain.ErrBusy
	}
	defer s.release(id.String())

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.DebugContext(ctx, "item already deleted",
				slog.String("user_id", userID.String()),
				slog.String("item_id", id.String()),
			)
			return nil
		}
		return fmt.Errorf("delete item %s: %w", id, err)
	}

	s.log.DebugContext(ctx, "item deleted",
		slog.String("user_id", userID.String()),
		slog.String("item_id", id.String()),
	)
	return nil
}

// acquire marks the target as in flight. It fails when a submission for the
// same target has not finished yet.
func (s *Service) acquire(target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[target]; busy {
		return false
	}
	s.inflight[target] = struct{}{}
	return true
}

func (s *Service) release(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, target)
}

func trimOptional(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func nilIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
