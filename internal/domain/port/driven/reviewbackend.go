package driven

import (
	"context"
	"errors"

	"github.com/dkmv/dkmv/internal/domain/model"
)

// ErrMalformedResponse is returned when the backend answered with a 2xx
// status but the body is missing an expected section or field (a shape
// failure). It is deliberately distinct from transport and protocol errors
// so callers can tell "server rejected" from "server responded unexpectedly".
var ErrMalformedResponse = errors.New("backend response missing expected fields")

// ReviewBackend defines the driven port for the remote review-generation
// service. All scoring, static analysis, and LLM invocation happen behind
// this interface; the panel consumes results only.
type ReviewBackend interface {
	// Me resolves the current session identity. A nil identity with a nil
	// error means the backend explicitly reported no session (204).
	// Failures are reported as errors and mapped to "unauthenticated" by
	// the session service.
	Me(ctx context.Context) (*model.Identity, error)

	// Logout terminates the backend session. Best-effort; the caller clears
	// local state regardless of the result.
	Logout(ctx context.Context) error

	// MintDebugToken obtains a bearer token for the given login via the
	// backend's debug mint endpoint.
	MintDebugToken(ctx context.Context, login string) (string, error)

	// MintVSCodeToken mints an editor-integration token for the current session.
	MintVSCodeToken(ctx context.Context) (string, error)

	// ListUsers returns all identities known to the backend.
	ListUsers(ctx context.Context) ([]model.Identity, error)

	// ListReviews returns the full accessible review set, newest first as
	// served by the backend. limit <= 0 omits the limit query parameter.
	ListReviews(ctx context.Context, limit int) ([]model.ReviewItem, error)

	// GetReview fetches one review by identifier. A response missing its
	// meta or body section returns ErrMalformedResponse.
	GetReview(ctx context.Context, id int64) (*model.ReviewItem, error)

	// CreateReview submits a review request and returns the server-assigned
	// review identifier. A 2xx response without an extractable identifier
	// returns ErrMalformedResponse.
	CreateReview(ctx context.Context, req model.ReviewRequest) (int64, error)

	// RequestFix asks for a fix suggestion for an existing review. The
	// result is opaque text for display.
	RequestFix(ctx context.Context, reviewID int64, code string) (string, error)

	// StatsByModel and StatsByUser return backend-side aggregates.
	StatsByModel(ctx context.Context) ([]model.ModelStat, error)
	StatsByUser(ctx context.Context) ([]model.UserStat, error)

	// LoginURL returns the absolute URL of the backend's GitHub login
	// entry point. The browser is sent there directly; the OAuth dance is
	// entirely backend-owned.
	LoginURL() string
}
