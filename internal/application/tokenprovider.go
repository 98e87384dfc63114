// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// Credential store service keys.
const (
	CredentialBackendToken = "backend/token"
	CredentialGitHubToken  = "github/token"
)

// TokenProvider holds the current backend bearer token behind a mutex and
// mirrors it into the credential store so a restart picks the session back
// up. It is the single shared mutable credential in the process: written on
// login success, cleared on logout, read on every authenticated request.
type TokenProvider struct {
	store  driven.CredentialStore
	logger *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewTokenProvider creates a provider backed by the given store. store may
// be a keyless repo; persistence failures are logged, never surfaced, so
// the in-memory session keeps working without an encryption key.
func NewTokenProvider(store driven.CredentialStore, logger *slog.Logger) *TokenProvider {
	return &TokenProvider{store: store, logger: logger}
}

// Load restores a persisted token into memory. Called once at boot.
func (p *TokenProvider) Load(ctx context.Context) {
	token, err := p.store.Get(ctx, CredentialBackendToken)
	if err != nil {
		if !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			p.logger.Warn("failed to load stored token", "error", err)
		}
		return
	}
	if token == "" {
		return
	}

	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
	p.logger.Info("restored backend token from credential store")
}

// Token returns the current bearer token, or "" when logged out.
// It implements the backend client's token source.
func (p *TokenProvider) Token(_ context.Context) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// Replace swaps in a new token and persists it best-effort.
func (p *TokenProvider) Replace(ctx context.Context, token string) {
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()

	if err := p.store.Set(ctx, CredentialBackendToken, token); err != nil {
		if !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			p.logger.Warn("failed to persist token", "error", err)
		}
	}
}

// Clear drops the token from memory and from the store.
func (p *TokenProvider) Clear(ctx context.Context) {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()

	if err := p.store.Delete(ctx, CredentialBackendToken); err != nil {
		p.logger.Warn("failed to delete stored token", "error", err)
	}
}

// HasToken reports whether a bearer token is currently held.
func (p *TokenProvider) HasToken() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token != ""
}
