package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// payloadVersion tags the review request wire format.
const payloadVersion = "1.0"

// ErrSubmissionInFlight is returned by Submit when a run is already in
// flight. Callers treat it as a no-op: the existing run is untouched and
// no second network call is issued.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// ErrNoFetchedReview is returned by RequestFix before a run has reached
// the fetched state.
var ErrNoFetchedReview = errors.New("no fetched review to request a fix for")

// ValidationError is a pre-flight submission failure. It never reaches
// the network and leaves the workflow state untouched.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string { return e.Reason }

// Error kinds surfaced in run snapshots, mirroring the failure taxonomy:
// a local validation failure, a transport failure, a protocol (non-2xx)
// failure, or a shape failure (2xx with missing fields).
const (
	ErrKindValidation = "validation"
	ErrKindTransport  = "transport"
	ErrKindProtocol   = "protocol"
	ErrKindShape      = "shape"
)

// RunSnapshot is an observable copy of the orchestrator's state, taken
// under lock. The progress UI polls it between transitions.
type RunSnapshot struct {
	State    model.WorkflowState
	RunID    string
	ReviewID int64
	Review   *model.ReviewItem
	ErrKind  string
	Err      string
	FixBusy  bool
	FixText  string
	FixErr   string
}

// Workflow drives one user's review submission through the backend:
// create, then fetch by the returned identifier, with cooperative
// cancellation and an optional follow-up fix request. One instance exists
// per authenticated user; submissions never overlap.
type Workflow struct {
	backend driven.ReviewBackend
	logger  *slog.Logger

	mu       sync.Mutex
	state    model.WorkflowState
	gen      uint64 // run generation; bumped on submit and cancel
	cancel   context.CancelFunc
	runID    string
	reviewID int64
	review   *model.ReviewItem
	errKind  string
	errMsg   string
	code     string // code of the current run, reused by the fix request
	fixBusy  bool
	fixText  string
	fixErr   string
}

// NewWorkflow creates an idle workflow for one user.
func NewWorkflow(backend driven.ReviewBackend, logger *slog.Logger) *Workflow {
	return &Workflow{
		backend: backend,
		logger:  logger,
		state:   model.WorkflowIdle,
	}
}

// Submit validates the inputs and starts an asynchronous run. Preconditions:
// non-empty code, a selected model, and an authenticated identity with a
// known external identifier. A violated precondition returns a
// *ValidationError without any state change or network call. A run already
// in flight returns ErrSubmissionInFlight and is otherwise a no-op.
func (w *Workflow) Submit(identity *model.Identity, code, modelID, language string) error {
	if code == "" {
		return &ValidationError{Reason: "code snippet is empty"}
	}
	if modelID == "" {
		return &ValidationError{Reason: "no model selected"}
	}
	if identity == nil || identity.GitHubID == "" {
		return &ValidationError{Reason: "not signed in"}
	}

	w.mu.Lock()
	if w.state.InFlight() {
		w.mu.Unlock()
		return ErrSubmissionInFlight
	}

	w.gen++
	gen := w.gen
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.state = model.WorkflowRequesting
	w.runID = uuid.NewString()
	w.reviewID = 0
	w.review = nil
	w.errKind = ""
	w.errMsg = ""
	w.code = code
	w.fixBusy = false
	w.fixText = ""
	w.fixErr = ""
	runID := w.runID
	w.mu.Unlock()

	req := model.ReviewRequest{
		GitHubID: identity.GitHubID,
		Version:  payloadVersion,
		Actor:    identity.Login,
		Language: language,
		Trigger:  "playground",
		Model:    modelID,
		Code:     code,
		Audit:    time.Now().UTC(),
	}

	w.logger.Info("review submission started", "run_id", runID, "model", modelID, "github_id", identity.GitHubID)
	go w.run(ctx, gen, req)

	return nil
}

// run executes the create-then-fetch chain. Every state application is
// guarded by the run generation so a cancelled run's late resolution is
// discarded instead of mutating state.
func (w *Workflow) run(ctx context.Context, gen uint64, req model.ReviewRequest) {
	reviewID, err := w.backend.CreateReview(ctx, req)
	if err != nil {
		w.fail(gen, err)
		return
	}

	if !w.advance(gen, model.WorkflowRequested, reviewID) {
		return
	}
	// The fetch is issued immediately; there is no speculative pre-fetch
	// and no delay between obtaining the identifier and using it.
	if !w.advance(gen, model.WorkflowFetching, reviewID) {
		return
	}

	review, err := w.backend.GetReview(ctx, reviewID)
	if err != nil {
		w.fail(gen, err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen {
		return
	}
	w.state = model.WorkflowFetched
	w.review = review
	w.cancel = nil
	w.logger.Info("review fetched", "run_id", w.runID, "review_id", reviewID)
}

// advance moves the run to the given state if it is still the current
// generation. Returns false when the run has been superseded or cancelled.
func (w *Workflow) advance(gen uint64, state model.WorkflowState, reviewID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen {
		return false
	}
	w.state = state
	w.reviewID = reviewID
	return true
}

// fail records a run failure unless the run was cancelled or superseded.
// Cancellation is not an error: an abort-triggered rejection is suppressed
// entirely.
func (w *Workflow) fail(gen uint64, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen {
		return
	}

	w.state = model.WorkflowError
	w.errKind, w.errMsg = classifyError(err)
	w.cancel = nil
	w.logger.Warn("review run failed", "run_id", w.runID, "kind", w.errKind, "error", err)
}

// classifyError maps an error to the failure taxonomy. Shape failures are
// checked before protocol failures because a malformed 2xx body wraps only
// ErrMalformedResponse.
func classifyError(err error) (kind, msg string) {
	if errors.Is(err, driven.ErrMalformedResponse) {
		return ErrKindShape, err.Error()
	}

	var apiErr *driven.APIError
	if errors.As(err, &apiErr) {
		return ErrKindProtocol, fmt.Sprintf("backend rejected the request (status %d): %s", apiErr.Status, apiErr.Message)
	}

	return ErrKindTransport, err.Error()
}

// Cancel aborts the in-flight run, if any, and resets the workflow to
// idle, discarding any partial result. Calling Cancel when nothing is in
// flight is a no-op, and repeated calls are safe.
func (w *Workflow) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.state.InFlight() {
		return
	}

	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.gen++ // invalidate any racing resolution
	w.state = model.WorkflowIdle
	w.reviewID = 0
	w.review = nil
	w.errKind = ""
	w.errMsg = ""
	w.logger.Info("review run cancelled", "run_id", w.runID)
}

// Reset returns an errored or fetched workflow to idle so a new submission
// can start fresh. In-flight runs must be cancelled instead.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.InFlight() {
		return
	}
	w.gen++
	w.state = model.WorkflowIdle
	w.reviewID = 0
	w.review = nil
	w.errKind = ""
	w.errMsg = ""
	w.fixBusy = false
	w.fixText = ""
	w.fixErr = ""
}

// RequestFix issues the follow-up fix call for the fetched review. It is
// only available once the run has reached fetched; its failure lands in an
// isolated error slot and never changes the primary terminal state.
func (w *Workflow) RequestFix(ctx context.Context) error {
	w.mu.Lock()
	if w.state != model.WorkflowFetched {
		w.mu.Unlock()
		return ErrNoFetchedReview
	}
	if w.fixBusy {
		w.mu.Unlock()
		return nil
	}
	reviewID := w.reviewID
	code := w.code
	w.fixBusy = true
	w.fixErr = ""
	w.mu.Unlock()

	text, err := w.backend.RequestFix(ctx, reviewID, code)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.fixBusy = false
	if err != nil {
		w.fixErr = err.Error()
		w.logger.Warn("fix request failed", "review_id", reviewID, "error", err)
		return nil
	}
	w.fixText = text
	return nil
}

// Snapshot returns an observable copy of the current run state.
func (w *Workflow) Snapshot() RunSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snapshot := RunSnapshot{
		State:    w.state,
		RunID:    w.runID,
		ReviewID: w.reviewID,
		ErrKind:  w.errKind,
		Err:      w.errMsg,
		FixBusy:  w.fixBusy,
		FixText:  w.fixText,
		FixErr:   w.fixErr,
	}
	if w.review != nil {
		copied := *w.review
		snapshot.Review = &copied
	}
	return snapshot
}

// WorkflowManager hands out one Workflow per user.
type WorkflowManager struct {
	backend driven.ReviewBackend
	logger  *slog.Logger

	mu    sync.Mutex
	byUID map[string]*Workflow
}

// NewWorkflowManager creates an empty manager.
func NewWorkflowManager(backend driven.ReviewBackend, logger *slog.Logger) *WorkflowManager {
	return &WorkflowManager{
		backend: backend,
		logger:  logger,
		byUID:   make(map[string]*Workflow),
	}
}

// For returns the workflow for the given external identifier, creating it
// on first use.
func (m *WorkflowManager) For(githubID string) *Workflow {
	m.mu.Lock()
	defer m.mu.Unlock()

	wf, ok := m.byUID[githubID]
	if !ok {
		wf = NewWorkflow(m.backend, m.logger.With("github_id", githubID))
		m.byUID[githubID] = wf
	}
	return wf
}
