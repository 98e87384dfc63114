package application

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

func testIdentity() *model.Identity {
	return &model.Identity{ID: 7, Login: "octocat", GitHubID: "583231"}
}

func waitForState(t *testing.T, wf *Workflow, want model.WorkflowState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return wf.Snapshot().State == want
	}, 2*time.Second, 5*time.Millisecond, "workflow never reached %s", want)
}

func TestWorkflow_SubmitValidationNeverReachesBackend(t *testing.T) {
	backend := &mockBackend{}
	wf := NewWorkflow(backend, slog.Default())

	tests := []struct {
		name     string
		identity *model.Identity
		code     string
		model    string
	}{
		{"empty code", testIdentity(), "", "openai/gpt-4"},
		{"no model", testIdentity(), "print(1)", ""},
		{"nil identity", nil, "print(1)", "openai/gpt-4"},
		{"identity without id", &model.Identity{Login: "x"}, "print(1)", "openai/gpt-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wf.Submit(tt.identity, tt.code, tt.model, "python")

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, model.WorkflowIdle, wf.Snapshot().State)
			assert.Equal(t, int32(0), backend.createCalls.Load())
		})
	}
}

func TestWorkflow_HappyPath(t *testing.T) {
	backend := &mockBackend{
		createFn: func(_ context.Context, req model.ReviewRequest) (int64, error) {
			assert.Equal(t, "583231", req.GitHubID)
			assert.Equal(t, "playground", req.Trigger)
			assert.Equal(t, "octocat", req.Actor)
			return 42, nil
		},
		getFn: func(_ context.Context, id int64) (*model.ReviewItem, error) {
			return &model.ReviewItem{ReviewID: id, QualityScore: 88}, nil
		},
	}
	wf := NewWorkflow(backend, slog.Default())

	require.NoError(t, wf.Submit(testIdentity(), "print(1)", "openai/gpt-4", "python"))
	waitForState(t, wf, model.WorkflowFetched)

	snapshot := wf.Snapshot()
	assert.Equal(t, int64(42), snapshot.ReviewID)
	require.NotNil(t, snapshot.Review)
	assert.Equal(t, 88.0, snapshot.Review.QualityScore)
	assert.NotEmpty(t, snapshot.RunID)
	assert.Empty(t, snapshot.Err)
}

func TestWorkflow_SecondSubmitWhileInFlightIsNoOp(t *testing.T) {
	release := make(chan struct{})
	backend := &mockBackend{
		createFn: func(ctx context.Context, _ model.ReviewRequest) (int64, error) {
			select {
			case <-release:
				return 42, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		},
	}
	wf := NewWorkflow(backend, slog.Default())

	require.NoError(t, wf.Submit(testIdentity(), "print(1)", "openai/gpt-4", "python"))
	firstRunID := wf.Snapshot().RunID

	err := wf.Submit(testIdentity(), "print(2)", "openai/gpt-4", "python")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Equal(t, firstRunID, wf.Snapshot().RunID, "in-flight run must be untouched")

	close(release)
	waitForState(t, wf, model.WorkflowFetched)
	assert.Equal(t, int32(1), backend.createCalls.Load(), "only one create call may be issued")
}

func TestWorkflow_CancelSuppressesLateResolution(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	backend := &mockBackend{
		createFn: func(ctx context.Context, _ model.ReviewRequest) (int64, error) {
			close(started)
			<-release
			// Resolve successfully even though the run was cancelled.
			return 42, nil
		},
	}
	wf := NewWorkflow(backend, slog.Default())

	require.NoError(t, wf.Submit(testIdentity(), "print(1)", "openai/gpt-4", "python"))
	<-started

	wf.Cancel()
	assert.Equal(t, model.WorkflowIdle, wf.Snapshot().State)

	close(release)

	// The late resolution must be discarded: state stays idle, no error, no review.
	time.Sleep(50 * time.Millisecond)
	snapshot := wf.Snapshot()
	assert.Equal(t, model.WorkflowIdle, snapshot.State)
	assert.Nil(t, snapshot.Review)
	assert.Empty(t, snapshot.Err)
}

func TestWorkflow_CancelTriggeredRejectionIsNotAnError(t *testing.T) {
	started := make(chan struct{})
	backend := &mockBackend{
		createFn: func(ctx context.Context, _ model.ReviewRequest) (int64, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		},
	}
	wf := NewWorkflow(backend, slog.Default())

	require.NoError(t, wf.Submit(testIdentity(), "print(1)", "openai/gpt-4", "python"))
	<-started

	wf.Cancel()

	time.Sleep(50 * time.Millisecond)
	snapshot := wf.Snapshot()
	assert.Equal(t, model.WorkflowIdle, snapshot.State)
	assert.Empty(t, snapshot.Err)
	assert.Empty(t, snapshot.ErrKind)
}

func TestWorkflow_CancelWhenIdleIsNoOp(t *testing.T) {
	wf := NewWorkflow(&mockBackend{}, slog.Default())

	wf.Cancel()
	wf.Cancel()
	assert.Equal(t, model.WorkflowIdle, wf.Snapshot().State)
}

func TestWorkflow_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{
			"protocol",
			driven.NewAPIError(http.StatusUnprocessableEntity, "code too large", nil),
			ErrKindProtocol,
		},
		{
			"shape",
			driven.ErrMalformedResponse,
			ErrKindShape,
		},
		{
			"transport",
			context.DeadlineExceeded,
			ErrKindTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{
				createFn: func(context.Context, model.ReviewRequest) (int64, error) {
					return 0, tt.err
				},
			}
			wf := NewWorkflow(backend, slog.Default())

			require.NoError(t, wf.Submit(testIdentity(), "print(1)", "openai/gpt-4", "python"))
			waitForState(t, wf, model.WorkflowError)

			snapshot := wf.Snapshot()
			assert.Equal(t, tt.wantKind, snapshot.ErrKind)
			assert.NotEmpty(t, snapshot.Err)
		})
	}
}

func TestWorkflow_FetchFailureAfterCreate(t *testing.T) {
	backend := &mockBackend{
		getFn: func(context.Context, int64) (*model.ReviewItem, error) {
			return nil, driven.NewAPIError(http.StatusNotFound, "not found", nil)
		},
	}
	wf := NewWorkflow(backend, slog.Default())

	require.NoError(t, wf.Submit(testIdentity(), "print(1)", "openai/gpt-4", "python"))
	waitForState(t, wf, model.WorkflowError)
	assert.Equal(t, ErrKindProtocol, wf.Snapshot().ErrKind)
}

func TestWorkflow_ResubmitAfterTerminalState(t *testing.T) {
	backend := &mockBackend{}
	wf := NewWorkflow(backend, slog.Default())

	require.NoError(t, wf.Submit(testIdentity(), "print(1)", "openai/gpt-4", "python"))
	waitForState(t, wf, model.WorkflowFetched)

	require.NoError(t, wf.Submit(testIdentity(), "print(2)", "openai/gpt-4", "python"))
	waitForState(t, wf, model.WorkflowFetched)
	assert.Equal(t, int32(2), backend.createCalls.Load())
}

func TestWorkflow_RequestFixOnlyFromFetched(t *testing.T) {
	wf := NewWorkflow(&mockBackend{}, slog.Default())

	err := wf.RequestFix(context.Background())
	assert.ErrorIs(t, err, ErrNoFetchedReview)
}

func TestWorkflow_RequestFixSuccess(t *testing.T) {
	backend := &mockBackend{
		fixFn: func(_ context.Context, reviewID int64, code string) (string, error) {
			assert.Equal(t, int64(1), reviewID)
			assert.Equal(t, "print(1)", code)
			return "Use logging instead of print.", nil
		},
	}
	wf := NewWorkflow(backend, slog.Default())

	require.NoError(t, wf.Submit(testIdentity(), "print(1)", "openai/gpt-4", "python"))
	waitForState(t, wf, model.WorkflowFetched)

	require.NoError(t, wf.RequestFix(context.Background()))
	snapshot := wf.Snapshot()
	assert.Equal(t, "Use logging instead of print.", snapshot.FixText)
	assert.Empty(t, snapshot.FixErr)
}

func TestWorkflow_RequestFixFailureIsIsolated(t *testing.T) {
	backend := &mockBackend{
		fixFn: func(context.Context, int64, string) (string, error) {
			return "", driven.NewAPIError(http.StatusServiceUnavailable, "fix backend down", nil)
		},
	}
	wf := NewWorkflow(backend, slog.Default())

	require.NoError(t, wf.Submit(testIdentity(), "print(1)", "openai/gpt-4", "python"))
	waitForState(t, wf, model.WorkflowFetched)

	require.NoError(t, wf.RequestFix(context.Background()))
	snapshot := wf.Snapshot()
	assert.Equal(t, model.WorkflowFetched, snapshot.State, "fix failure must not change the terminal state")
	assert.NotNil(t, snapshot.Review)
	assert.NotEmpty(t, snapshot.FixErr)
}

func TestWorkflow_ResetClearsTerminalState(t *testing.T) {
	wf := NewWorkflow(&mockBackend{}, slog.Default())

	require.NoError(t, wf.Submit(testIdentity(), "print(1)", "openai/gpt-4", "python"))
	waitForState(t, wf, model.WorkflowFetched)

	wf.Reset()
	snapshot := wf.Snapshot()
	assert.Equal(t, model.WorkflowIdle, snapshot.State)
	assert.Nil(t, snapshot.Review)
}

func TestWorkflowManager_OneWorkflowPerUser(t *testing.T) {
	manager := NewWorkflowManager(&mockBackend{}, slog.Default())

	a := manager.For("1")
	b := manager.For("2")
	assert.NotSame(t, a, b)
	assert.Same(t, a, manager.For("1"))
}
