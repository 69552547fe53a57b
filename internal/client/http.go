package client

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
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Endpoint paths relative to the API base URL.
const (
	PathMe          = "/auth/me"
	PathLogin       = "/auth/login"
	PathLogout      = "/auth/logout"
	PathRefresh     = "/auth/refresh-token"
	PathTodayOrders = "/orders/reports/today"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 8 << 20
)

// Request describes one API call. It is never modified after construction so
// the same value can be reissued after a session renewal.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any // JSON-encoded; nil sends no body
	Header http.Header

	// LoginAttempt marks credential submissions. A 401 on them is a plain
	// failure and never starts a renewal.
	LoginAttempt bool
}

// Response is a fully read HTTP response.
type Response struct {
	Method     string
	Path       string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns an *APIError for a non-2xx response, nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return newAPIError(r.Method, r.Path, r.StatusCode, r.Body)
}

// Decode unmarshals the JSON body into out.
func (r *Response) Decode(out any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("%s %s: empty response body", r.Method, r.Path)
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", r.Method, r.Path, err)
	}
	return nil
}

// HTTPClient sends cookie-authenticated requests to the GK Store API and
// renews the session once when a request comes back 401.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	renewals singleflight.Group

	mu        sync.Mutex
	onExpired []func(error)
}

// NewHTTPClient creates a client for baseURL (e.g. "http://localhost:6005/v1/api").
// The jar carries the session cookies; a nil jar disables them.
func NewHTTPClient(baseURL string, jar http.CookieJar, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout, Jar: jar},
		logger:  logger.With("component", "http"),
	}
}

// BaseURL returns the API base URL.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// OnSessionExpired registers fn to run when a renewal fails. The client itself
// never navigates or clears state.
func (c *HTTPClient) OnSessionExpired(fn func(error)) {
	c.mu.Lock()
	c.onExpired = append(c.onExpired, fn)
	c.mu.Unlock()
}

// Send performs req. Any status other than an unrecoverable 401 is returned
// as a Response; transport failures and expired sessions are errors.
func (c *HTTPClient) Send(ctx context.Context, req Request) (*Response, error) {
	return c.send(ctx, req, 0)
}

func (c *HTTPClient) send(ctx context.Context, req Request, attempt int) (*Response, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !renewable(req, attempt) {
		return resp, nil
	}

	c.logger.Debug("unauthorized, renewing session", "method", req.Method, "path", req.Path)
	if err := c.renew(ctx); err != nil {
		expired := &SessionExpiredError{Cause: err}
		c.logger.Warn("session renewal failed", "path", req.Path, "error", err)
		c.expire(expired)
		return nil, expired
	}
	return c.send(ctx, req, attempt+1)
}

// renewable reports whether a 401 on req may start a renewal. Logout clears
// the session locally whatever the server says, so it never renews.
func renewable(req Request, attempt int) bool {
	if attempt > 0 || req.LoginAttempt {
		return false
	}
	switch req.Path {
	case PathMe, PathRefresh, PathLogout:
		return false
	}
	return true
}

// renew calls the refresh endpoint. Concurrent callers share one in-flight call.
func (c *HTTPClient) renew(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	_, err, shared := c.renewals.Do("refresh", func() (any, error) {
		resp, err := c.do(ctx, Request{Method: http.MethodPost, Path: PathRefresh, Body: struct{}{}})
		if err != nil {
			return nil, err
		}
		return nil, resp.Err()
	})
	if shared {
		c.logger.Debug("joined in-flight session renewal")
	}
	return err
}

func (c *HTTPClient) expire(err error) {
	c.mu.Lock()
	hooks := append([]func(error){}, c.onExpired...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn(err)
	}
}

func (c *HTTPClient) do(ctx context.Context, req Request) (*Response, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", req.Method, req.Path, err)
	}

	c.logger.Debug("request",
		"method", req.Method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	return &Response{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}
