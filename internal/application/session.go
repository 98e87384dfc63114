package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// SessionService holds the current user identity in process memory. It is
// constructed once at boot and passed to every consumer; there is no
// package-level session state. Refresh fails open: any failure of the
// identity check resolves to "logged out" rather than an error, so the UI
// is never blocked on a flaky backend.
type SessionService struct {
	backend  driven.ReviewBackend
	profiles driven.ProfileSource // nil disables enrichment
	tokens   *TokenProvider
	logger   *slog.Logger

	mu      sync.RWMutex
	user    *model.Identity
	loading bool
}

// NewSessionService creates a SessionService. profiles may be nil when no
// GitHub token is configured; identity enrichment is then skipped silently.
func NewSessionService(
	backend driven.ReviewBackend,
	profiles driven.ProfileSource,
	tokens *TokenProvider,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		backend:  backend,
		profiles: profiles,
		tokens:   tokens,
		logger:   logger,
	}
}

// Refresh re-resolves the session identity from the backend. It returns
// the new identity, or nil when unauthenticated. Transport and protocol
// failures are logged and mapped to nil; they never propagate. Repeated
// calls are idempotent, which is what makes the login-completion signal
// safe to deliver more than once.
func (s *SessionService) Refresh(ctx context.Context) *model.Identity {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	identity, err := s.backend.Me(ctx)
	if err != nil {
		s.logger.Info("identity check failed, treating as unauthenticated", "error", err)
		identity = nil
	}

	if identity != nil && s.profiles != nil && (identity.Name == "" || identity.AvatarURL == "") {
		if profile, perr := s.profiles.Profile(ctx, identity.Login); perr != nil {
			s.logger.Debug("profile enrichment failed", "login", identity.Login, "error", perr)
		} else {
			if identity.Name == "" {
				identity.Name = profile.Name
			}
			if identity.AvatarURL == "" {
				identity.AvatarURL = profile.AvatarURL
			}
		}
	}

	s.mu.Lock()
	s.user = identity
	s.loading = false
	s.mu.Unlock()

	return identity
}

// Logout terminates the backend session best-effort and unconditionally
// clears the local identity and the stored credential.
func (s *SessionService) Logout(ctx context.Context) {
	if err := s.backend.Logout(ctx); err != nil {
		s.logger.Warn("backend logout failed", "error", err)
	}

	s.tokens.Clear(ctx)

	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

// Current returns the authenticated identity, or nil.
func (s *SessionService) Current() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	copied := *s.user
	return &copied
}

// Loading reports whether an identity check is in flight.
func (s *SessionService) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// IsAuthenticated reports whether a user identity is present.
func (s *SessionService) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}
