// Package httpclient holds the HTTP plumbing shared by the hosting-platform
// clients: a transport with a timeout, bearer-token authentication and a
// bounded retry for transient failures.
package httpclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	perrors "github.com/valksor/go-phaseflow/internal/provider/errors"
)

// Defaults keep a briefing from stalling on a slow platform.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 2
	DefaultBackoff    = 500 * time.Millisecond
	MaxBackoff        = 5 * time.Second

	// DefaultRequestRate paces paginated reads below GitHub's secondary
	// rate limit.
	DefaultRequestRate  = 10
	DefaultRequestBurst = 10
)

// Retry controls how often a read is repeated after a transient failure.
// The zero value makes a single attempt.
type Retry struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Limiter, when set, is waited on before every attempt.
	Limiter *rate.Limiter
}

// DefaultRetry returns the retry policy used by the platform clients.
func DefaultRetry() Retry {
	return Retry{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultBackoff,
		MaxBackoff:     MaxBackoff,
		Limiter:        NewLimiter(),
	}
}

// NewLimiter returns a limiter allowing DefaultRequestRate requests per
// second with bursts of DefaultRequestBurst.
func NewLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(DefaultRequestRate), DefaultRequestBurst)
}

// Retryable reports whether err is a transport failure or a gateway error.
// Rate limiting is not retried: the reset window is far longer than any
// backoff worth waiting for inside a single action.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, perrors.ErrNetworkError) || errors.Is(err, perrors.ErrUnavailable)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the retry
// budget is spent. Backoff doubles after each attempt up to r.MaxBackoff.
func Do[T any](ctx context.Context, r Retry, fn func() (T, error)) (T, error) {
	backoff := r.InitialBackoff

	for attempt := 0; ; attempt++ {
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				var zero T
				return zero, err
			}
		}

		v, err := fn()
		if err == nil || !Retryable(err) || attempt >= r.MaxRetries {
			return v, err
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}

		backoff *= 2
		if r.MaxBackoff > 0 && backoff > r.MaxBackoff {
			backoff = r.MaxBackoff
		}
	}
}

// New returns an http.Client with DefaultTimeout.
func New() *http.Client {
	return NewWithTimeout(DefaultTimeout)
}

// NewWithTimeout returns an http.Client with the given timeout.
func NewWithTimeout(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewAuthenticated returns a client that sends tok as a bearer token over
// base. A nil base uses New(). An empty token returns base unchanged.
func NewAuthenticated(base *http.Client, tok string) *http.Client {
	if base == nil {
		base = New()
	}
	if tok == "" {
		return base
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	c := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok}))
	c.Timeout = base.Timeout
	return c
}
