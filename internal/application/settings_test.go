package application

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkmv/dkmv/internal/domain/model"
)

func TestSettingsService_GetFallsBackToDefaults(t *testing.T) {
	svc := NewSettingsService(newMockSettingsStore(), "openai/gpt-4", slog.Default())

	settings, err := svc.Get(context.Background(), "583231")
	require.NoError(t, err)
	assert.Equal(t, "583231", settings.GitHubID)
	assert.Equal(t, "openai/gpt-4", settings.PreferredModel)
	assert.Equal(t, "dark", settings.Theme)
	assert.False(t, settings.AutoFix)
}

func TestSettingsService_GetReturnsStoredRow(t *testing.T) {
	store := newMockSettingsStore()
	store.rows["583231"] = model.UserSettings{
		GitHubID:       "583231",
		AutoFix:        true,
		PreferredModel: "anthropic/claude-3",
		Theme:          "light",
	}
	svc := NewSettingsService(store, "openai/gpt-4", slog.Default())

	settings, err := svc.Get(context.Background(), "583231")
	require.NoError(t, err)
	assert.True(t, settings.AutoFix)
	assert.Equal(t, "anthropic/claude-3", settings.PreferredModel)
}

func TestSettingsService_SetAutoFixPersists(t *testing.T) {
	store := newMockSettingsStore()
	svc := NewSettingsService(store, "openai/gpt-4", slog.Default())

	updated, err := svc.SetAutoFix(context.Background(), "583231", true)
	require.NoError(t, err)
	assert.True(t, updated.AutoFix)
	assert.True(t, store.rows["583231"].AutoFix)
}

func TestSettingsService_SetAutoFixRollsBackOnStoreFailure(t *testing.T) {
	store := newMockSettingsStore()
	svc := NewSettingsService(store, "openai/gpt-4", slog.Default())

	// Seed the cache with the pre-image.
	_, err := svc.Get(context.Background(), "583231")
	require.NoError(t, err)

	store.upsertErr = errors.New("disk full")
	reverted, err := svc.SetAutoFix(context.Background(), "583231", true)
	require.Error(t, err)
	assert.False(t, reverted.AutoFix, "returned settings must be the pre-image")

	// The cached view must also show the pre-image.
	store.upsertErr = nil
	current, err := svc.Get(context.Background(), "583231")
	require.NoError(t, err)
	assert.False(t, current.AutoFix)
}

func TestSettingsService_UpdateWritesThrough(t *testing.T) {
	store := newMockSettingsStore()
	svc := NewSettingsService(store, "openai/gpt-4", slog.Default())

	err := svc.Update(context.Background(), model.UserSettings{
		GitHubID:       "583231",
		PreferredModel: "anthropic/claude-3",
		Theme:          "light",
	})
	require.NoError(t, err)

	settings, err := svc.Get(context.Background(), "583231")
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3", settings.PreferredModel)
	assert.Equal(t, "light", settings.Theme)
}

func TestSettingsService_UpdateFailureKeepsCache(t *testing.T) {
	store := newMockSettingsStore()
	svc := NewSettingsService(store, "openai/gpt-4", slog.Default())

	_, err := svc.Get(context.Background(), "583231")
	require.NoError(t, err)

	store.upsertErr = errors.New("disk full")
	err = svc.Update(context.Background(), model.UserSettings{
		GitHubID:       "583231",
		PreferredModel: "anthropic/claude-3",
	})
	require.Error(t, err)

	settings, getErr := svc.Get(context.Background(), "583231")
	require.NoError(t, getErr)
	assert.Equal(t, "openai/gpt-4", settings.PreferredModel, "failed update must not change the view")
}
