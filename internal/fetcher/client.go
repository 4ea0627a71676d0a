// Package fetcher provides the pooled HTTP client used for sitemap discovery
// and page fetching, including robots.txt handling with per-host caching.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Failure reasons recorded for failed fetches.
const (
	ReasonTimeout    = "timeout"
	ReasonStatus     = "status"
	ReasonConnection = "connection"
	ReasonRedirects  = "too_many_redirects"
	ReasonRequest    = "request"
	ReasonReadBody   = "read_body"
	ReasonCancelled  = "cancelled"
)

const (
	statusSuccessLow  = 200
	statusSuccessHigh = 300
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// Result is the outcome of fetching one URL: either a body or a failure
// reason. It is consumed immediately and never persisted.
type Result struct {
	URL        string
	StatusCode int
	Body       []byte
	Err        error
	Reason     string
	Duration   time.Duration
}

// OK reports whether the fetch produced a 2xx body.
func (r Result) OK() bool {
	return r.Err == nil
}

// Getter fetches pages. Client implements it; tests substitute fakes.
type Getter interface {
	Get(ctx context.Context, rawURL string) Result
}

// Client wraps an http.Client whose connection pool is sized to the
// configured concurrency.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// NewClient creates a client from cfg (defaults applied).
func NewClient(cfg Config) *Client {
	cfg = cfg.WithDefaults()

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Concurrency,
		MaxIdleConnsPerHost: cfg.Concurrency,
		MaxConnsPerHost:     cfg.Concurrency,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}

	return &Client{
		httpClient: &http.Client{
			Transport:     transport,
			Timeout:       cfg.RequestTimeout,
			CheckRedirect: RedirectPolicy(cfg.MaxRedirects),
		},
		cfg: cfg,
	}
}

// NewClientWithHTTP wraps an existing http.Client; used by tests.
func NewClientWithHTTP(httpClient *http.Client, cfg Config) *Client {
	cfg = cfg.WithDefaults()
	if httpClient.Timeout == 0 {
		httpClient.Timeout = cfg.RequestTimeout
	}
	return &Client{httpClient: httpClient, cfg: cfg}
}

// HTTPClient exposes the underlying client for collaborators such as the
// robots checker.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// UserAgent returns the configured user agent.
func (c *Client) UserAgent() string {
	return c.cfg.UserAgent
}

// Get fetches rawURL and reads at most MaxBodyBytes of its body. Non-2xx
// responses, timeouts and transport errors come back as a failed Result.
func (c *Client) Get(ctx context.Context, rawURL string) Result {
	start := time.Now()
	result := Result{URL: rawURL}

	req, err := c.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return c.fail(result, start, ReasonRequest, err)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL comes from the crawled site's sitemap
	if err != nil {
		return c.fail(result, start, classify(ctx, err), err)
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if !isSuccessStatus(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
		return c.fail(result, start, ReasonStatus, &StatusError{URL: rawURL, Code: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return c.fail(result, start, classify(ctx, err), fmt.Errorf("read body: %w", err))
	}

	result.Body = body
	result.Duration = time.Since(start)
	return result
}

// Head issues a HEAD request and returns the status code. Servers that
// reject HEAD with 405 are retried with a GET whose body is discarded.
func (c *Client) Head(ctx context.Context, rawURL string) (int, error) {
	status, err := c.statusOnly(ctx, http.MethodHead, rawURL)
	if err != nil {
		return 0, err
	}
	if status == http.StatusMethodNotAllowed {
		return c.statusOnly(ctx, http.MethodGet, rawURL)
	}
	return status, nil
}

func (c *Client) statusOnly(ctx context.Context, method, rawURL string) (int, error) {
	req, err := c.newRequest(ctx, method, rawURL)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // probe of well-known sitemap paths
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))

	return resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", c.cfg.AcceptLanguage)
	return req, nil
}

func (c *Client) fail(result Result, start time.Time, reason string, err error) Result {
	result.Err = err
	result.Reason = reason
	result.Duration = time.Since(start)
	return result
}

// classify maps a transport error to a failure reason.
func classify(ctx context.Context, err error) string {
	if errors.Is(err, ErrTooManyRedirects) {
		return ReasonRedirects
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return ReasonCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonConnection
}

// isSuccessStatus returns true if the HTTP status code is in the 2xx range.
func isSuccessStatus(statusCode int) bool {
	return statusCode >= statusSuccessLow && statusCode < statusSuccessHigh
}
