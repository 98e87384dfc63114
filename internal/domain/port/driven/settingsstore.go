package driven

import (
	"context"

	"github.com/dkmv/dkmv/internal/domain/model"
)

// SettingsStore defines the driven port for per-user settings persistence.
type SettingsStore interface {
	// Get returns the settings for the given user, or nil if none are stored.
	Get(ctx context.Context, githubID string) (*model.UserSettings, error)

	// Upsert stores or replaces the settings row for settings.GitHubID.
	Upsert(ctx context.Context, settings model.UserSettings) error
}
