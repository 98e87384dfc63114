// Package github implements the ProfileSource port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ProfileSource = (*ProfileClient)(nil)

// ProfileClient implements the driven.ProfileSource port against the
// GitHub REST API. It fills display name and avatar for identities the
// review backend returns sparse (login only).
type ProfileClient struct {
	gh *gh.Client
}

// NewProfileClient creates a GitHub profile client with the following
// transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewProfileClient(token string) *ProfileClient {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &ProfileClient{gh: client}
}

// NewProfileClientWithHTTPClient creates a ProfileClient with a custom
// http.Client and base URL. This constructor is intended for testing,
// allowing injection of an httptest server.
func NewProfileClientWithHTTPClient(httpClient *http.Client, baseURL string) (*ProfileClient, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &ProfileClient{gh: client}, nil
}

// Profile returns the public profile for the given login.
func (c *ProfileClient) Profile(ctx context.Context, login string) (*model.Identity, error) {
	user, resp, err := c.gh.Users.Get(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("fetching profile for %s: %w", login, err)
	}

	logRateLimit(resp, login)

	return &model.Identity{
		ID:        user.GetID(),
		Login:     user.GetLogin(),
		Name:      user.GetName(),
		AvatarURL: user.GetAvatarURL(),
		GitHubID:  user.GetLogin(),
	}, nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, login string) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"login", login,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
