package model

// Identity is the authenticated user's profile record as known to this panel.
// It is owned by the review backend and read-only here; GitHubID is the
// external identifier used to key reviews.
type Identity struct {
	ID        int64
	Login     string
	Name      string
	AvatarURL string
	GitHubID  string
}

// DisplayName returns the human-facing name, falling back to the login.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Login
}
