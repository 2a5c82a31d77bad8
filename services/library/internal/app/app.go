package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"settle/internal/usertoken"
	"settle/pkg/store"
)

// TokenManager issues and verifies user access tokens.
type TokenManager interface {
	Issue(userID int64, username, role string) (string, error)
	Verify(token string) (usertoken.Claims, error)
}

// Config wires the application's dependencies.
type Config struct {
	Store  store.Store
	Tokens TokenManager
}

// App holds the auth and book services over one store.
type App struct {
	store  store.Store
	tokens TokenManager
}

// New constructs the application. The store and token manager are built by the
// caller so that tests can substitute the in-memory store.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("app requires a store")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("app requires a token manager")
	}
	return &App{
		store:  cfg.Store,
		tokens: cfg.Tokens,
	}, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ready reports whether the backing store is reachable. Stores without a
// connection to check are always ready.
func (a *App) Ready(ctx context.Context) error {
	p, ok := a.store.(pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	return nil
}
