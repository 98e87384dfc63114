package reviewapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// wireIdentity mirrors an identity object as served by the backend.
type wireIdentity struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	GitHubID  string `json:"github_id"`
}

func (w wireIdentity) toModel() model.Identity {
	return model.Identity{
		ID:        w.ID,
		Login:     w.Login,
		Name:      w.Name,
		AvatarURL: w.AvatarURL,
		GitHubID:  w.GitHubID,
	}
}

// Me resolves the current session identity. A 204 response is an explicit
// "no session" and returns (nil, nil). Callers treat any error, including
// 401, as "unauthenticated".
func (c *Client) Me(ctx context.Context) (*model.Identity, error) {
	raw, err := c.doRaw(ctx, http.MethodGet, "/api/me", nil, nil)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var w wireIdentity
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decoding identity: %v: %w", err, driven.ErrMalformedResponse)
	}
	if w.Login == "" {
		return nil, fmt.Errorf("identity missing login: %w", driven.ErrMalformedResponse)
	}

	identity := w.toModel()
	if identity.GitHubID == "" {
		// Some backend builds key reviews by login directly.
		identity.GitHubID = identity.Login
	}
	return &identity, nil
}

// Logout terminates the backend session. A 204 response is success.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/github/logout", nil, nil, nil)
}

// MintDebugToken obtains a bearer token for the given login via the
// backend's debug mint endpoint.
func (c *Client) MintDebugToken(ctx context.Context, login string) (string, error) {
	query := url.Values{}
	query.Set("login", login)

	var resp struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/github/debug/mint", query, nil, &resp); err != nil {
		return "", err
	}

	token := resp.Token
	if token == "" {
		token = resp.AccessToken
	}
	if token == "" {
		return "", fmt.Errorf("mint response missing token: %w", driven.ErrMalformedResponse)
	}
	return token, nil
}

// MintVSCodeToken mints an editor-integration token for the current session.
func (c *Client) MintVSCodeToken(ctx context.Context) (string, error) {
	var resp struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/github/vscode/token", nil, nil, &resp); err != nil {
		return "", err
	}

	token := resp.Token
	if token == "" {
		token = resp.AccessToken
	}
	if token == "" {
		return "", fmt.Errorf("vscode token response missing token: %w", driven.ErrMalformedResponse)
	}
	return token, nil
}

// ListUsers returns all identities known to the backend. The endpoint
// serves a plain array rather than the meta/body envelope.
func (c *Client) ListUsers(ctx context.Context) ([]model.Identity, error) {
	var users []wireIdentity
	if err := c.do(ctx, http.MethodGet, "/v1/users", nil, nil, &users); err != nil {
		return nil, err
	}

	identities := make([]model.Identity, 0, len(users))
	for _, w := range users {
		identities = append(identities, w.toModel())
	}
	return identities, nil
}

// LoginURL returns the absolute URL of the backend's GitHub login entry
// point. The browser is sent there directly; the OAuth dance is entirely
// backend-owned.
func (c *Client) LoginURL() string {
	return c.url("/auth/github/login", nil)
}
