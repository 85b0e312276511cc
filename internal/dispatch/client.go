package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultRetryAttempts  = 6
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 8 * time.Second
	defaultConnectTimeout = 5 * time.Second
)

// ErrUpstreamUnavailable indicates the retry budget against an external
// processing service was exhausted.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// Request describes one unit of work handed to an external service: where to
// read source files, where to write results, and the address to call back on
// completion.
type Request struct {
	Source   string
	Dst      string
	Callback string
}

// Client submits work to external processing services over HTTP with a
// bounded retry policy: exponential backoff from the base delay, doubled per
// attempt and capped, no jitter. Connects and writes are bounded; reads are
// not, since a service may hold the request open while it works.
type Client struct {
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the retry count (defaults to 6).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.retryMaxAttempts = attempts
		}
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient constructs a dispatch client. connectTimeout bounds dialing and
// TLS handshakes; there is deliberately no overall response deadline.
func NewClient(connectTimeout time.Duration, opts ...Option) *Client {
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: 0,
	}

	client := &Client{
		httpClient:       &http.Client{Transport: transport},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		sleeper:          time.Sleep,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Send performs the dispatch request against targetURL, retrying transient
// failures until the attempt budget runs out.
func (c *Client) Send(ctx context.Context, targetURL string, req Request) error {
	query := url.Values{}
	query.Set("source", req.Source)
	query.Set("dst", req.Dst)
	if req.Callback != "" {
		query.Set("callback", req.Callback)
	}
	full := strings.TrimRight(targetURL, "/") + "/?" + query.Encode()

	delay := c.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = c.attempt(ctx, full)
		if lastErr == nil {
			return nil
		}
		if attempt == c.retryMaxAttempts {
			break
		}
		c.sleeper(delay)
		if next := delay * 2; next <= c.retryMaxDelay {
			delay = next
		} else {
			delay = c.retryMaxDelay
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %w", ErrUpstreamUnavailable, targetURL, c.retryMaxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, fullURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return nil
}
