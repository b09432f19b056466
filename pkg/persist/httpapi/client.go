// Package httpapi implements persist.Store against the placement REST API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chazu/stagehand/pkg/persist"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	headerContentTypeKey  = "Content-Type"
	headerContentTypeJSON = "application/json"
)

// DefaultTimeout bounds a single HTTP attempt.
const DefaultTimeout = 10 * time.Second

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Unwrap maps 404 to persist.ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return persist.ErrNotFound
	}
	return nil
}

// Options configures a Client.
type Options struct {
	// MaxRetries is the number of transport-level retries. The default 0
	// means a failed call is reported once and never repeated.
	MaxRetries int
	Timeout    time.Duration
}

// Client talks to the placement API.
type Client struct {
	baseURL string
	rhc     *retryablehttp.Client
}

var _ persist.Store = (*Client)(nil)

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts Options) *Client {
	rhc := retryablehttp.NewClient()
	rhc.Logger = slog.Default()
	rhc.ResponseLogHook = logResponse
	rhc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rhc.RetryMax = max(opts.MaxRetries, 0)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rhc.HTTPClient.Timeout = timeout
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), rhc: rhc}
}

// HTTPClient returns the underlying transport client.
func (c *Client) HTTPClient() *http.Client {
	return c.rhc.HTTPClient
}

type removeResponse struct {
	RemovedIDs []placement.ID `json:"removedIds"`
}

type duplicateResponse struct {
	Placements []placement.Placement `json:"placements"`
}

type lockRequest struct {
	Locked bool `json:"locked"`
}

func (c *Client) UpdatePlacement(ctx context.Context, id placement.ID, patch persist.Patch) (*placement.Placement, error) {
	var out placement.Placement
	if err := c.do(ctx, http.MethodPatch, c.placementURL(id, ""), patch, &out); err != nil {
		return nil, fmt.Errorf("update placement %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) RemovePlacement(ctx context.Context, id placement.ID, scope persist.Scope) ([]placement.ID, error) {
	u := c.placementURL(id, "")
	if scope != "" {
		u += "?" + url.Values{"scope": {string(scope)}}.Encode()
	}
	var out removeResponse
	if err := c.do(ctx, http.MethodDelete, u, nil, &out); err != nil {
		return nil, fmt.Errorf("remove placement %s: %w", id, err)
	}
	return out.RemovedIDs, nil
}

func (c *Client) DuplicatePlacement(ctx context.Context, id placement.ID) ([]placement.Placement, error) {
	var out duplicateResponse
	if err := c.do(ctx, http.MethodPost, c.placementURL(id, "duplicate"), nil, &out); err != nil {
		return nil, fmt.Errorf("duplicate placement %s: %w", id, err)
	}
	return out.Placements, nil
}

func (c *Client) SetLocked(ctx context.Context, id placement.ID, locked bool) (*placement.Placement, error) {
	var out placement.Placement
	if err := c.do(ctx, http.MethodPut, c.placementURL(id, "lock"), lockRequest{Locked: locked}, &out); err != nil {
		return nil, fmt.Errorf("set locked %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) placementURL(id placement.ID, action string) string {
	u := c.baseURL + "/placements/" + url.PathEscape(string(id))
	if action != "" {
		u += "/" + action
	}
	return u
}

// do sends body as JSON and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, u string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set(headerContentTypeKey, headerContentTypeJSON)
	}
	req.Header.Set("Accept", headerContentTypeJSON)

	resp, err := c.rhc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &StatusError{Method: method, URL: u, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// logResponse is a callback for retryablehttp. It logs HTTP errors, and every
// response when the log level is DEBUG.
func logResponse(_ retryablehttp.Logger, r *http.Response) {
	isDebug := slog.Default().Enabled(context.Background(), slog.LevelDebug)
	isHTTPError := r.StatusCode >= 400
	if !isDebug && !isHTTPError {
		return
	}
	level := slog.LevelDebug
	if isHTTPError {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "Placement API response",
		"method", r.Request.Method,
		"url", r.Request.URL,
		"status", r.StatusCode,
	)
}
