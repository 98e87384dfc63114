package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// SettingsService manages per-user preferences. The auto-fix toggle is
// optimistic: the in-memory view flips immediately, the store write
// follows, and on failure the captured pre-image is restored so the view
// never drifts from what is actually persisted.
type SettingsService struct {
	store        driven.SettingsStore
	defaultModel string
	logger       *slog.Logger

	mu    sync.Mutex
	cache map[string]model.UserSettings
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(store driven.SettingsStore, defaultModel string, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		store:        store,
		defaultModel: defaultModel,
		logger:       logger,
		cache:        make(map[string]model.UserSettings),
	}
}

// Get returns the current settings for a user, loading them from the
// store on first access and falling back to defaults when none are saved.
func (s *SettingsService) Get(ctx context.Context, githubID string) (model.UserSettings, error) {
	s.mu.Lock()
	if cached, ok := s.cache[githubID]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	stored, err := s.store.Get(ctx, githubID)
	if err != nil {
		return model.UserSettings{}, fmt.Errorf("loading settings for %q: %w", githubID, err)
	}

	settings := model.DefaultSettings(githubID, s.defaultModel)
	if stored != nil {
		settings = *stored
	}

	s.mu.Lock()
	s.cache[githubID] = settings
	s.mu.Unlock()

	return settings, nil
}

// SetAutoFix flips the auto-fix toggle optimistically. The pre-image is
// captured before the change; if the store write fails, the pre-image is
// restored and both it and the error are returned so the caller can show
// the reverted value.
func (s *SettingsService) SetAutoFix(ctx context.Context, githubID string, enabled bool) (model.UserSettings, error) {
	current, err := s.Get(ctx, githubID)
	if err != nil {
		return model.UserSettings{}, err
	}

	preImage := current
	updated := current
	updated.AutoFix = enabled

	s.mu.Lock()
	s.cache[githubID] = updated
	s.mu.Unlock()

	if err := s.store.Upsert(ctx, updated); err != nil {
		s.mu.Lock()
		s.cache[githubID] = preImage
		s.mu.Unlock()
		s.logger.Warn("auto-fix toggle rolled back", "github_id", githubID, "error", err)
		return preImage, fmt.Errorf("saving auto-fix setting: %w", err)
	}

	return updated, nil
}

// Update writes preferred model and theme through to the store and
// refreshes the cached view on success.
func (s *SettingsService) Update(ctx context.Context, settings model.UserSettings) error {
	if err := s.store.Upsert(ctx, settings); err != nil {
		return fmt.Errorf("saving settings for %q: %w", settings.GitHubID, err)
	}

	s.mu.Lock()
	s.cache[settings.GitHubID] = settings
	s.mu.Unlock()

	return nil
}
