// Package fetch performs the single outbound GET behind every upstream query. It sends
// browser-like headers and returns the body untouched; interpreting it is the caller's job.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/gabriel/anime-manga-browser/internal/cache"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	AcceptHTML       = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptJSON       = "application/json"

	maxBodyBytes = 16 << 20
)

// Error is returned for transport failures and non-2xx upstream responses.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err carries an upstream 404.
func IsNotFound(err error) bool {
	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return fetchErr.StatusCode == http.StatusNotFound
	}
	return false
}

type Options struct {
	UserAgent string
	// Limiter throttles outbound requests; cache hits are not throttled.
	Limiter  *rate.Limiter
	Cache    cache.Store
	CacheTTL time.Duration
	Logger   *slog.Logger
}

type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	cache      cache.Store
	cacheTTL   time.Duration
	logger     *slog.Logger
}

func NewClient(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		userAgent:  opts.UserAgent,
		limiter:    opts.Limiter,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		logger:     opts.Logger,
	}
}

// Text fetches an HTML page.
func (c *Client) Text(ctx context.Context, endpoint string) (string, error) {
	body, err := c.get(ctx, endpoint, AcceptHTML, true)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// JSON fetches endpoint and decodes the body into out.
func (c *Client) JSON(ctx context.Context, endpoint string, out any) error {
	body, err := c.get(ctx, endpoint, AcceptJSON, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// Probe issues an uncached GET and reports only whether the upstream answered with a 2xx.
func (c *Client) Probe(ctx context.Context, endpoint string) error {
	_, err := c.get(ctx, endpoint, AcceptHTML+","+AcceptJSON, false)
	return err
}

func (c *Client) get(ctx context.Context, endpoint string, accept string, useCache bool) ([]byte, error) {
	cacheable := useCache && c.cache != nil && c.cacheTTL > 0
	if cacheable {
		cached, ok, err := c.cache.Get(ctx, endpoint)
		if err != nil {
			c.logger.Warn("payload cache read failed", "url", endpoint, "error", err)
		} else if ok {
			c.logger.Debug("payload cache hit", "url", endpoint)
			return cached, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{URL: endpoint, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{URL: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{URL: endpoint, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &Error{URL: endpoint, StatusCode: res.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{URL: endpoint, StatusCode: res.StatusCode, Err: fmt.Errorf("read response body: %w", err)}
	}

	if cacheable {
		if err := c.cache.Set(ctx, endpoint, body, c.cacheTTL); err != nil {
			c.logger.Warn("payload cache write failed", "url", endpoint, "error", err)
		}
	}

	return body, nil
}
