package app

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/shoplist-sync/internal/auth"
	"github.com/heartmarshall/shoplist-sync/internal/config"
	"github.com/heartmarshall/shoplist-sync/internal/domain"
	"github.com/heartmarshall/shoplist-sync/internal/service/list"
	"github.com/heartmarshall/shoplist-sync/internal/store"
	"github.com/heartmarshall/shoplist-sync/internal/sync"
	"github.com/heartmarshall/shoplist-sync/internal/view"
	"github.com/heartmarshall/shoplist-sync/pkg/ctxutil"
)

// View is the render-ready projection of the canonical item set under the
// current search and category parameters.
type View struct {
	Items      []domain.Item
	Categories []string
	Total      float64
}

// Shoplist ties the identity provider, the sync session, the mutation
// service and the view derivations together behind one frontend-facing
// surface. Signing in starts a session for that user, signing out or
// switching users tears the previous one down first.
type Shoplist struct {
	log     *slog.Logger
	auth    auth.Provider
	session *sync.Session
	service *list.Service

	mu         stdsync.Mutex
	started    bool
	search     string
	category   *string
	watchers   map[int]func(View)
	watchOrder []int
	nextWatch  int
	stopAuth   func()
	stopItems  func()
}

// NewShoplist wires the application over the given identity provider and
// store backend.
func NewShoplist(logger *slog.Logger, provider auth.Provider, st store.Store, cfg config.ListConfig) *Shoplist {
	session := sync.NewSession(logger, st)
	return &Shoplist{
		log:      logger.With("component", "app"),
		auth:     provider,
		session:  session,
		service:  list.NewService(logger, st, session, cfg.MaxItemsPerUser),
		watchers: make(map[int]func(View)),
	}
}

// Start begins following the identity provider. If a user is already
// signed in, their session starts immediately. ctx scopes all
// subscriptions opened on the user's behalf.
func (a *Shoplist) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("already started")
	}
	a.started = true
	a.mu.Unlock()

	stopItems := a.session.OnChange(func([]domain.Item) {
		a.notify()
	})
	stopAuth := a.auth.OnChange(func(userID uuid.UUID, signedIn bool) {
		a.onAuthChange(ctx, userID, signedIn)
	})

	a.mu.Lock()
	a.stopItems = stopItems
	a.stopAuth = stopAuth
	a.mu.Unlock()

	if userID, ok := a.auth.CurrentUserID(); ok {
		if err := a.session.Start(ctx, userID); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
	}
	return nil
}

// Stop detaches from the identity provider and tears down the active
// session.
func (a *Shoplist) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	stopAuth, stopItems := a.stopAuth, a.stopItems
	a.stopAuth, a.stopItems = nil, nil
	a.mu.Unlock()

	if stopAuth != nil {
		stopAuth()
	}
	a.session.Stop()
	if stopItems != nil {
		stopItems()
	}
}

func (a *Shoplist) onAuthChange(ctx context.Context, userID uuid.UUID, signedIn bool) {
	if !signedIn {
		a.session.Stop()
		return
	}
	if err := a.session.Start(ctx, userID); err != nil {
		a.log.Error("session start failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// SetSearch updates the search text and recomputes the view.
func (a *Shoplist) SetSearch(search string) {
	a.mu.Lock()
	a.search = search
	a.mu.Unlock()
	a.notify()
}

// SetCategory updates the category filter. nil means all categories.
func (a *Shoplist) SetCategory(category *string) {
	a.mu.Lock()
	a.category = category
	a.mu.Unlock()
	a.notify()
}

// CurrentView derives the view from the canonical set and the current
// parameters. Categories always cover the full set so the picker does not
// shrink while a filter is applied.
func (a *Shoplist) CurrentView() View {
	items := a.session.Items()
	a.mu.Lock()
	search, category := a.search, a.category
	a.mu.Unlock()

	filtered := view.Filter(items, search, category)
	return View{
		Items:      filtered,
		Categories: view.Categories(items),
		Total:      view.Total(filtered),
	}
}

// OnViewChange registers a callback invoked after every canonical set or
// parameter change. The returned function removes the callback.
func (a *Shoplist) OnViewChange(fn func(View)) func() {
	a.mu.Lock()
	id := a.nextWatch
	a.nextWatch++
	a.watchers[id] = fn
	a.watchOrder = append(a.watchOrder, id)
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.watchers, id)
		for i, wid := range a.watchOrder {
			if wid == id {
				a.watchOrder = append(a.watchOrder[:i], a.watchOrder[i+1:]...)
				break
			}
		}
	}
}

// Save validates and submits an item create or update on behalf of the
// signed-in user.
func (a *Shoplist) Save(ctx context.Context, input list.SaveInput) (uuid.UUID, error) {
	return a.service.Save(a.userCtx(ctx), input)
}

// Delete removes an item on behalf of the signed-in user. Deleting an item
// that is already gone is not an error.
func (a *Shoplist) Delete(ctx context.Context, id uuid.UUID) error {
	return a.service.Delete(a.userCtx(ctx), id)
}

// userCtx stamps the acting user onto the context. Without a signed-in
// user the context passes through unchanged and the service rejects the
// call.
func (a *Shoplist) userCtx(ctx context.Context) context.Context {
	if userID, ok := a.auth.CurrentUserID(); ok {
		return ctxutil.WithUserID(ctx, userID)
	}
	return ctx
}

func (a *Shoplist) notify() {
	v := a.CurrentView()
	a.mu.Lock()
	fns := make([]func(View), 0, len(a.watchOrder))
	for _, id := range a.watchOrder {
		if fn, ok := a.watchers[id]; ok {
			fns = append(fns, fn)
		}
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
