// Package postgres implements the item store on PostgreSQL.
//
// Change delivery uses LISTEN/NOTIFY. A trigger on the items table emits
// the owner id on the "items_changed" channel after every write; each
// subscription holds a dedicated connection, re-queries the owner's items
// on every matching notification and delivers the result as a fresh
// snapshot. A failed re-query is logged and skipped, so a transport error
// never produces a partial or empty snapshot.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/shoplist-sync/internal/domain"
	"github.com/heartmarshall/shoplist-sync/internal/store"
)

const notifyChannel = "items_changed"

var itemColumns = []string{"id", "owner_id", "name", "price", "description", "category", "created_at"}

// Store provides item persistence and change delivery backed by PostgreSQL.
type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// New creates a new store over the given pool.
func New(logger *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{
		log:  logger.With("component", "postgres_store"),
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Subscribe opens a dedicated LISTEN connection for ownerID and delivers an
// initial snapshot before returning. Later snapshots arrive from a
// background goroutine, one per matching notification.
func (s *Store) Subscribe(ctx context.Context, ownerID uuid.UUID, onSnapshot store.SnapshotFunc) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	conn, err := pgx.ConnectConfig(subCtx, s.pool.Config().ConnConfig.Copy())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("connect for listen: %w", err)
	}

	if _, err := conn.Exec(subCtx, "LISTEN "+notifyChannel); err != nil {
		_ = conn.Close(context.Background())
		cancel()
		return nil, fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	items, err := s.queryItems(subCtx, ownerID)
	if err != nil {
		_ = conn.Close(context.Background())
		cancel()
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}

	sub := &subscription{fn: onSnapshot}
	sub.deliver(items)

	go s.listen(subCtx, conn, ownerID, sub)

	return func() {
		cancel()
		sub.close()
	}, nil
}

// listen owns the dedicated connection until the subscription is canceled.
func (s *Store) listen(ctx context.Context, conn *pgx.Conn, ownerID uuid.UUID, sub *subscription) {
	defer func() {
		_ = conn.Close(context.Background())
	}()

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error("notification wait failed",
				slog.String("owner_id", ownerID.String()),
				slog.String("error", err.Error()),
			)
			return
		}
		if notification.Payload != ownerID.String() {
			continue
		}

		items, err := s.queryItems(ctx, ownerID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Keep the previous snapshot; the next notification retries.
			s.log.Error("snapshot query failed",
				slog.String("owner_id", ownerID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		sub.deliver(items)
	}
}

// Add inserts a new item and returns its id. created_at is stamped by the
// database so ordering is consistent across clients.
func (s *Store) Add(ctx context.Context, item domain.Item) (uuid.UUID, error) {
	id := uuid.New()

	query := s.sb.Insert("items").
		Columns("id", "owner_id", "name", "price", "description", "category").
		Values(id, item.OwnerID, item.Name, item.Price, item.Description, item.Category)

	sql, args, err := query.ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return uuid.Nil, mapError(err, id)
	}
	return id, nil
}

// Update applies the non-nil patch fields to an existing item. An empty
// Description or Category value clears the column.
func (s *Store) Update(ctx context.Context, id uuid.UUID, patch domain.ItemPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	query := s.sb.Update("items").Where(sq.Eq{"id": id})
	if patch.Name != nil {
		query = query.Set("name", *patch.Name)
	}
	if patch.Price != nil {
		query = query.Set("price", *patch.Price)
	}
	if patch.Description != nil {
		query = query.Set("description", nullable(*patch.Description))
	}
	if patch.Category != nil {
		query = query.Set("category", nullable(*patch.Category))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes an item by id.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	query := s.sb.Delete("items").Where(sq.Eq{"id": id})

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// queryItems loads the owner's full item set, newest first.
func (s *Store) queryItems(ctx context.Context, ownerID uuid.UUID) ([]domain.Item, error) {
	query := s.sb.Select(itemColumns...).
		From("items").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC", "id DESC")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, ownerID)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(
			&item.ID,
			&item.OwnerID,
			&item.Name,
			&item.Price,
			&item.Description,
			&item.Category,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, ownerID)
	}
	return items, nil
}

// subscription serializes snapshot delivery for one subscriber. Revisions
// are assigned at delivery time on a single goroutine, so they are strictly
// increasing and consistent with capture order.
type subscription struct {
	mu       sync.Mutex
	closed   bool
	revision int64
	fn       store.SnapshotFunc
}

func (sub *subscription) deliver(items []domain.Item) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	sub.revision++
	sub.fn(store.Snapshot{Revision: sub.revision, Items: items})
}

// close blocks until any in-flight delivery finishes, so no callback runs
// after unsubscribe returns.
func (sub *subscription) close() {
	sub.mu.Lock()
	sub.closed = true
	sub.mu.Unlock()
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
