// Package api is the HTTP Client Adapter for the ShopSphere backend. It
// attaches credentials, normalizes every failure into *HTTPError and turns
// the backend's list responses into a single Page shape.
//
// Usage:
//
//	c := api.NewClient("https://api.shopsphere.example", api.WithTokenSource(creds))
//	raw, err := c.Do(ctx, http.MethodGet, "/superAdmin/api/vendors/", nil, nil)
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single request. The backend gives no guarantee
// that a hung request ever completes.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 16 << 20

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means the request is sent unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Observer receives one callback per completed request. telemetry.Metrics
// implements it.
type Observer interface {
	ObserveRequest(method, path string, status int, kind ErrorKind, elapsed time.Duration)
}

// Doer is the request contract the stores and the mutation facade depend on.
type Doer interface {
	Do(ctx context.Context, method, path string, body any, query Query) (json.RawMessage, error)
}

// Option configures the Client.
type Option func(*Client)

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver registers a request observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// Client is the ShopSphere HTTP Client Adapter. It is safe for concurrent use.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
}

var _ Doer = (*Client)(nil)

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends one request. path is relative to the base URL, body (if non-nil)
// is encoded as JSON and query is appended to the URL. On a 2xx response the
// raw JSON body is returned (nil for an empty body); every failure is an
// *HTTPError.
func (c *Client) Do(ctx context.Context, method, path string, body any, query Query) (json.RawMessage, error) {
	start := time.Now()
	reqID := uuid.NewString()

	raw, status, err := c.do(ctx, method, path, body, query, reqID)

	var kind ErrorKind
	if err != nil {
		var he *HTTPError
		if errors.As(err, &he) {
			he.RequestID = reqID
			kind = he.Kind
		}
	}
	if c.observer != nil {
		c.observer.ObserveRequest(method, path, status, kind, time.Since(start))
	}
	if err != nil {
		c.logger.Debug("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.String("request_id", reqID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	c.logger.Debug("request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("request_id", reqID),
		slog.Duration("elapsed", time.Since(start)),
	)
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, query Query, reqID string) (json.RawMessage, int, error) {
	u, err := c.resolve(path, query)
	if err != nil {
		return nil, 0, &HTTPError{Kind: KindTransport, Message: "invalid request url: " + err.Error()}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, &HTTPError{Kind: KindTransport, Message: "encode request body: " + err.Error()}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, 0, &HTTPError{Kind: KindTransport, Message: "create request: " + err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &HTTPError{Kind: KindTransport, Message: "network error: " + transportCause(err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, &HTTPError{Kind: KindTransport, Status: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, statusError(resp.StatusCode, data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, resp.StatusCode, nil
	}
	if !json.Valid(data) {
		return nil, resp.StatusCode, &HTTPError{Kind: KindDecode, Status: resp.StatusCode, Message: "malformed JSON response"}
	}
	return json.RawMessage(data), resp.StatusCode, nil
}

// token asks the TokenSource for a bearer token. Errors are treated as "no
// credentials": the backend will reject the call with a proper auth error.
func (c *Client) token(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	t, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.Debug("no credentials available", slog.String("error", err.Error()))
		return ""
	}
	return t
}

func (c *Client) resolve(path string, query Query) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// transportCause strips the "Get \"url\": " prefix url.Error adds, keeping
// messages short enough for a status bar.
func transportCause(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		if ue.Timeout() {
			return "request timed out"
		}
		return ue.Err.Error()
	}
	return err.Error()
}

// DoJSON sends a request and decodes a successful body into out. A nil out
// discards the body.
func DoJSON(ctx context.Context, d Doer, method, path string, body any, query Query, out any) error {
	raw, err := d.Do(ctx, method, path, body, query)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &HTTPError{Kind: KindDecode, Message: fmt.Sprintf("unexpected response shape: %v", err)}
	}
	return nil
}
