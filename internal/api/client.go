// Package api holds the HTTP clients for the external data feeds. A
// shared Client provides retries with exponential backoff, a token
// bucket rate limiter and an on-disk response cache; the per-feed
// clients add authentication and endpoint shapes on top.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	backoffBase    = 2 * time.Second
)

// StatusError is returned for non-2xx responses, with any message the
// API put in the body.
type StatusError struct {
	Code    int
	Message string
	URL     string
}

func (e *StatusError) Error() string {
	msg := statusHint(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return fmt.Sprintf("%s (HTTP %d, %s)", msg, e.Code, e.URL)
}

// Retryable reports whether the request may succeed on retry.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

func statusHint(code int) string {
	switch {
	case code == http.StatusBadRequest:
		return "bad request, check parameters"
	case code == http.StatusUnauthorized:
		return "unauthorized, check API key"
	case code == http.StatusForbidden:
		return "forbidden, insufficient plan"
	case code == http.StatusNotFound:
		return "not found"
	case code == http.StatusTooManyRequests:
		return "rate limit exceeded"
	case code >= 500:
		return "server error"
	default:
		return "request failed"
	}
}

// ClientConfig tunes a Client for one upstream API.
type ClientConfig struct {
	BaseURL           string
	RequestsPerMinute int
	Cache             *FileCache
	// Auth decorates each request with the API's auth scheme.
	Auth func(req *http.Request, params url.Values) url.Values
	// OnUpstream fires once per request that actually reached the
	// API. Cache hits do not trigger it.
	OnUpstream func()
}

// Client is the shared HTTP plumbing for both feed clients.
type Client struct {
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	cache      *FileCache
	auth       func(*http.Request, url.Values) url.Values
	onUpstream func()
	logger     *zap.Logger
}

func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		http:       &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		cache:      cfg.Cache,
		auth:       cfg.Auth,
		onUpstream: cfg.OnUpstream,
		logger:     logger,
	}
}

// Get fetches endpoint with params, decodes the JSON body into out and
// caches successful responses. Cached bodies never count against the
// rate limit or upstream quota.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, out any) error {
	fullURL := c.baseURL + endpoint

	if c.cache != nil {
		if body := c.cache.Get(fullURL, params); body != nil {
			c.logger.Debug("cache hit", zap.String("url", fullURL))
			return json.Unmarshal(body, out)
		}
	}

	body, err := c.fetch(ctx, fullURL, params)
	if err != nil {
		return err
	}
	if c.onUpstream != nil {
		c.onUpstream()
	}

	if c.cache != nil {
		c.cache.Set(fullURL, params, body)
	}
	return json.Unmarshal(body, out)
}

func (c *Client) fetch(ctx context.Context, fullURL string, params url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoffBase << (attempt - 1)
			c.logger.Warn("retrying request",
				zap.String("url", fullURL),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.do(ctx, fullURL, params)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, err
		}
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, fullURL string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	q := params
	if c.auth != nil {
		q = c.auth(req, cloneValues(params))
	}
	if len(q) > 0 {
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Code: resp.StatusCode, URL: fullURL}
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil {
			se.Message = apiErr.Message
		}
		return nil, se
	}
	return body, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
