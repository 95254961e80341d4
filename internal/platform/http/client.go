package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics
const maxErrorBody = 4 << 10

// Client is a wrapper for HTTP client with outbound pacing and bounded retries
type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	opts       ClientOptions
}

// ClientOptions holds options for creating a new Client
type ClientOptions struct {
	Timeout        time.Duration // per attempt
	RequestsPerSec int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// OnRetry is called before sleeping between attempts
	OnRetry func(err error, wait time.Duration)
}

// RequestFunc builds a fresh request for every attempt, since a request body
// can only be read once.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// NewClient creates a new HTTP client with pacing and retries
func NewClient(opts ClientOptions) *Client {
	// Set default values if not provided
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = 5 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
		},
		Limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		opts:    opts,
	}
}

// Do performs the request with pacing and retries. Network errors, 5xx and
// 429 responses are retried up to MaxAttempts; any other non-2xx status is
// returned at once as *HTTPStatusError. On success the caller owns resp.Body.
func (c *Client) Do(ctx context.Context, newReq RequestFunc) (*http.Response, int, error) {
	var resp *http.Response
	attempts := 0

	operation := func() error {
		attempts++

		// Wait for rate limiter
		if err := c.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := newReq(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}

		r, err := c.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("HTTP request failed: %w", err)
		}

		if r.StatusCode >= 200 && r.StatusCode < 300 {
			resp = r
			return nil
		}

		statusErr := newStatusError(r)
		if retryable(r.StatusCode) {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.InitialInterval = c.opts.InitialBackoff
	backoffStrategy.MaxInterval = c.opts.MaxBackoff
	backoffStrategy.MaxElapsedTime = 0

	strategy := backoff.WithContext(
		backoff.WithMaxRetries(backoffStrategy, uint64(c.opts.MaxAttempts-1)),
		ctx,
	)

	if err := backoff.RetryNotify(operation, strategy, c.opts.OnRetry); err != nil {
		return nil, attempts, err
	}

	return resp, attempts, nil
}

func retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

func newStatusError(r *http.Response) *HTTPStatusError {
	defer r.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(r.Body, maxErrorBody))
	return &HTTPStatusError{StatusCode: r.StatusCode, Body: string(body)}
}

// HTTPStatusError represents an error due to a non-2xx HTTP status code
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether the status is worth retrying
func (e *HTTPStatusError) Temporary() bool {
	return retryable(e.StatusCode)
}
