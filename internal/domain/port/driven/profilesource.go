package driven

import (
	"context"

	"github.com/dkmv/dkmv/internal/domain/model"
)

// ProfileSource defines the driven port for enriching a sparse identity
// with profile data (display name, avatar) from an external directory.
type ProfileSource interface {
	// Profile returns the public profile for the given login.
	Profile(ctx context.Context, login string) (*model.Identity, error)
}
