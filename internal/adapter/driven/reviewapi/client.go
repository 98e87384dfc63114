// Package reviewapi implements the ReviewBackend port against the remote
// review-generation service's JSON-over-HTTP API.
package reviewapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReviewBackend = (*Client)(nil)

// TokenSource supplies the bearer credential attached to authenticated
// requests. An empty string means no credential; the request is sent
// without an Authorization header and relies on session cookies.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) string

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) string { return f(ctx) }

// Client talks to the review backend. Every call has the configured
// timeout applied on top of the caller's context; a hung backend request
// cannot block a workflow indefinitely.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
}

// NewClient creates a backend client for the given base origin. tokens may
// be nil for unauthenticated use. A cookie jar is installed so backend
// session cookies survive across calls.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		tokens: tokens,
	}, nil
}

// url builds an absolute URL for path, appending query parameters.
// Parameters with empty values are omitted.
func (c *Client) url(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path

	if query != nil {
		filtered := url.Values{}
		for key, values := range query {
			for _, v := range values {
				if v != "" {
					filtered.Add(key, v)
				}
			}
		}
		u.RawQuery = filtered.Encode()
	}

	return u.String()
}

// do performs one JSON request. A non-nil body is serialized as JSON and
// tagged with the JSON content type. A 204 response resolves without
// touching out. A non-2xx response returns *APIError. A 2xx response that
// fails to decode into out is a shape failure (driven.ErrMalformedResponse).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	raw, err := c.doRaw(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if raw == nil || out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %v: %w", method, path, err, driven.ErrMalformedResponse)
	}
	return nil
}

// doRaw performs one request and returns the raw response bytes for a 2xx
// status, or (nil, nil) for 204 No Content.
func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encoding request body: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s %s: building request: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, data)
	}

	return data, nil
}

// newAPIError normalizes a non-2xx response into a driven.APIError,
// preferring a server-supplied "detail" field as the message.
func newAPIError(status int, body []byte) *driven.APIError {
	message := ""
	var parsedBody map[string]any

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		parsedBody = parsed
		if detail, ok := parsed["detail"].(string); ok && detail != "" {
			message = detail
		}
	} else if text := strings.TrimSpace(string(body)); text != "" {
		message = text
	}

	return driven.NewAPIError(status, message, parsedBody)
}
