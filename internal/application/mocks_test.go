package application

import (
	"context"
	"sync/atomic"

	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// mockBackend implements driven.ReviewBackend with overridable functions.
// Unset functions return zero values.
type mockBackend struct {
	meFn         func(ctx context.Context) (*model.Identity, error)
	logoutFn     func(ctx context.Context) error
	mintDebugFn  func(ctx context.Context, login string) (string, error)
	mintVSCodeFn func(ctx context.Context) (string, error)
	listUsersFn  func(ctx context.Context) ([]model.Identity, error)
	listFn       func(ctx context.Context, limit int) ([]model.ReviewItem, error)
	getFn        func(ctx context.Context, id int64) (*model.ReviewItem, error)
	createFn     func(ctx context.Context, req model.ReviewRequest) (int64, error)
	fixFn        func(ctx context.Context, reviewID int64, code string) (string, error)
	statsModelFn func(ctx context.Context) ([]model.ModelStat, error)
	statsUserFn  func(ctx context.Context) ([]model.UserStat, error)

	createCalls atomic.Int32
	logoutCalls atomic.Int32
}

var _ driven.ReviewBackend = (*mockBackend)(nil)

func (m *mockBackend) Me(ctx context.Context) (*model.Identity, error) {
	if m.meFn != nil {
		return m.meFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) Logout(ctx context.Context) error {
	m.logoutCalls.Add(1)
	if m.logoutFn != nil {
		return m.logoutFn(ctx)
	}
	return nil
}

func (m *mockBackend) MintDebugToken(ctx context.Context, login string) (string, error) {
	if m.mintDebugFn != nil {
		return m.mintDebugFn(ctx, login)
	}
	return "", nil
}

func (m *mockBackend) MintVSCodeToken(ctx context.Context) (string, error) {
	if m.mintVSCodeFn != nil {
		return m.mintVSCodeFn(ctx)
	}
	return "", nil
}

func (m *mockBackend) ListUsers(ctx context.Context) ([]model.Identity, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) ListReviews(ctx context.Context, limit int) ([]model.ReviewItem, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockBackend) GetReview(ctx context.Context, id int64) (*model.ReviewItem, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.ReviewItem{ReviewID: id}, nil
}

func (m *mockBackend) CreateReview(ctx context.Context, req model.ReviewRequest) (int64, error) {
	m.createCalls.Add(1)
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return 1, nil
}

func (m *mockBackend) RequestFix(ctx context.Context, reviewID int64, code string) (string, error) {
	if m.fixFn != nil {
		return m.fixFn(ctx, reviewID, code)
	}
	return "", nil
}

func (m *mockBackend) StatsByModel(ctx context.Context) ([]model.ModelStat, error) {
	if m.statsModelFn != nil {
		return m.statsModelFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) StatsByUser(ctx context.Context) ([]model.UserStat, error) {
	if m.statsUserFn != nil {
		return m.statsUserFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) LoginURL() string { return "http://backend.test/auth/github/login" }

// mockCredentialStore is an in-memory driven.CredentialStore.
type mockCredentialStore struct {
	values map[string]string
	setErr error
	getErr error
}

var _ driven.CredentialStore = (*mockCredentialStore)(nil)

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{values: make(map[string]string)}
}

func (m *mockCredentialStore) Get(_ context.Context, service string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.values[service], nil
}

func (m *mockCredentialStore) Set(_ context.Context, service, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[service] = value
	return nil
}

func (m *mockCredentialStore) List(_ context.Context) ([]model.Credential, error) {
	return nil, nil
}

func (m *mockCredentialStore) Delete(_ context.Context, service string) error {
	delete(m.values, service)
	return nil
}

// mockSettingsStore is an in-memory driven.SettingsStore.
type mockSettingsStore struct {
	rows      map[string]model.UserSettings
	upsertErr error
}

var _ driven.SettingsStore = (*mockSettingsStore)(nil)

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{rows: make(map[string]model.UserSettings)}
}

func (m *mockSettingsStore) Get(_ context.Context, githubID string) (*model.UserSettings, error) {
	row, ok := m.rows[githubID]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *mockSettingsStore) Upsert(_ context.Context, settings model.UserSettings) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.rows[settings.GitHubID] = settings
	return nil
}

// mockProfileSource implements driven.ProfileSource.
type mockProfileSource struct {
	profileFn func(ctx context.Context, login string) (*model.Identity, error)
}

var _ driven.ProfileSource = (*mockProfileSource)(nil)

func (m *mockProfileSource) Profile(ctx context.Context, login string) (*model.Identity, error) {
	return m.profileFn(ctx, login)
}
