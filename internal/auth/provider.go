// Package auth resolves the acting user from access tokens and publishes
// sign-in and sign-out transitions to interested components.
package auth

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Provider exposes the current authenticated user, if any, and notifies
// registered callbacks when the identity changes.
type Provider interface {
	// CurrentUserID returns the signed-in user and true, or false when
	// nobody is signed in.
	CurrentUserID() (uuid.UUID, bool)
	// OnChange registers a callback invoked on every sign-in and sign-out.
	// The returned function removes the callback.
	OnChange(fn func(userID uuid.UUID, signedIn bool)) func()
}

// TokenProvider derives the identity from JWT access tokens handed to
// SetToken. Implementations of the rest of the system never see tokens,
// only the resulting user ID.
type TokenProvider struct {
	log     *slog.Logger
	manager *JWTManager

	mu       sync.Mutex
	userID   uuid.UUID
	signedIn bool
	watchers map[int]func(uuid.UUID, bool)
	nextID   int
}

// NewTokenProvider creates a provider in the signed-out state.
func NewTokenProvider(logger *slog.Logger, manager *JWTManager) *TokenProvider {
	return &TokenProvider{
		log:      logger.With("component", "auth_provider"),
		manager:  manager,
		watchers: make(map[int]func(uuid.UUID, bool)),
	}
}

// SetToken validates the token and switches the current identity to its
// subject. An invalid token leaves the previous identity in place.
func (p *TokenProvider) SetToken(token string) error {
	userID, err := p.manager.ValidateAccessToken(token)
	if err != nil {
		return fmt.Errorf("validate token: %w", err)
	}

	p.mu.Lock()
	if p.signedIn && p.userID == userID {
		p.mu.Unlock()
		return nil
	}
	p.userID = userID
	p.signedIn = true
	fns := p.watchersLocked()
	p.mu.Unlock()

	p.log.Debug("user signed in", slog.String("user_id", userID.String()))
	for _, fn := range fns {
		fn(userID, true)
	}
	return nil
}

// ClearToken signs the current user out. Calling it while signed out is a
// no-op.
func (p *TokenProvider) ClearToken() {
	p.mu.Lock()
	if !p.signedIn {
		p.mu.Unlock()
		return
	}
	prev := p.userID
	p.userID = uuid.Nil
	p.signedIn = false
	fns := p.watchersLocked()
	p.mu.Unlock()

	p.log.Debug("user signed out", slog.String("user_id", prev.String()))
	for _, fn := range fns {
		fn(uuid.Nil, false)
	}
}

// CurrentUserID implements Provider.
func (p *TokenProvider) CurrentUserID() (uuid.UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userID, p.signedIn
}

// OnChange implements Provider.
func (p *TokenProvider) OnChange(fn func(userID uuid.UUID, signedIn bool)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.watchers, id)
		p.mu.Unlock()
	}
}

// watchersLocked snapshots the callbacks in registration order. Callers
// must hold p.mu and invoke the result after releasing it.
func (p *TokenProvider) watchersLocked() []func(uuid.UUID, bool) {
	ids := make([]int, 0, len(p.watchers))
	for id := range p.watchers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(uuid.UUID, bool), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, p.watchers[id])
	}
	return fns
}
