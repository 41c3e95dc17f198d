// Package posapi is the authenticated JSON transport shared by the pricing and
// order clients that talk to the POS backend.
package posapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aarluxe/pos-cart/pkg/config"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
)

const (
	defaultTimeout           = 10 * time.Second
	businessIDHeader         = "business-id"
	errorBodyReadLimit int64 = 4096
)

var errBaseURLRequired = errors.New("pos api base url is required")

// Envelope is the outer shape of every POS backend response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client posts JSON payloads to the POS backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	businessID string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token attached to each request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithBusinessID sets the tenant header expected by the backend.
func WithBusinessID(id string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			c.businessID = trimmed
		}
	}
}

// NewClient builds a POS API client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		businessID: "1",
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client, nil
}

// NewFromConfig builds a client from the POS API configuration block.
func NewFromConfig(cfg config.POSAPIConfig, opts ...Option) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithToken(cfg.Token),
		WithBusinessID(cfg.BusinessID),
	}
	return NewClient(cfg.BaseURL, append(base, opts...)...)
}

// PostJSON sends payload to path and decodes a successful response into dest.
// Transport failures and unreadable responses are dependency errors; a non-2xx
// response carrying `success:false` and a message is a business rejection.
func (c *Client) PostJSON(ctx context.Context, path string, payload any, dest any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "pos api client not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(businessIDHeader, c.businessID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		var env Envelope
		if json.Unmarshal(raw, &env) == nil && !env.Success && strings.TrimSpace(env.Message) != "" {
			return pkgerrors.New(pkgerrors.CodeRejected, strings.TrimSpace(env.Message)).
				WithDetails(map[string]any{"status": resp.StatusCode})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), "unexpected response status")
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}
