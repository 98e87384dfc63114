package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SettingsStore = (*SettingsRepo)(nil)

// SettingsRepo is the SQLite implementation of the SettingsStore port.
type SettingsRepo struct {
	db *DB
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the settings row for the given user, or nil if none is stored.
func (r *SettingsRepo) Get(ctx context.Context, githubID string) (*model.UserSettings, error) {
	const query = `SELECT github_id, auto_fix, preferred_model, theme, updated_at FROM user_settings WHERE github_id = ?`

	var s model.UserSettings
	var autoFix int
	var updatedAt string
	err := r.db.Reader.QueryRowContext(ctx, query, githubID).Scan(
		&s.GitHubID, &autoFix, &s.PreferredModel, &s.Theme, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings for %q: %w", githubID, err)
	}

	s.AutoFix = autoFix != 0
	s.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at for settings %q: %w", githubID, err)
	}

	return &s, nil
}

// Upsert stores or replaces the settings row for settings.GitHubID.
func (r *SettingsRepo) Upsert(ctx context.Context, settings model.UserSettings) error {
	const query = `
		INSERT INTO user_settings (github_id, auto_fix, preferred_model, theme, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(github_id) DO UPDATE SET
			auto_fix = excluded.auto_fix,
			preferred_model = excluded.preferred_model,
			theme = excluded.theme,
			updated_at = CURRENT_TIMESTAMP`

	autoFix := 0
	if settings.AutoFix {
		autoFix = 1
	}

	_, err := r.db.Writer.ExecContext(ctx, query, settings.GitHubID, autoFix, settings.PreferredModel, settings.Theme)
	if err != nil {
		return fmt.Errorf("upsert settings for %q: %w", settings.GitHubID, err)
	}
	return nil
}
