package linker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/googleapi"
)

// RetryPolicy bounds retries of transient provider failures with exponential
// backoff. A nil policy disables retries entirely; every call is then a
// single attempt whose failure propagates to the caller.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is suitable for operator-triggered, low-frequency use.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:      4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
	}
}

func (p *RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// IsTransient reports whether a provider failure is worth retrying. Rate
// limiting and server-side errors are transient; other structured API errors
// (bad request, unauthorized, conflict) are permanent. Failures without a
// status code are transport-level (connection reset, DNS) and treated as
// transient, except context cancellation.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	return true
}

// retry runs op under the configured policy. Permanent failures short-circuit
// immediately; transient ones are re-attempted until the policy or the
// context gives up.
func (l *Linker) retry(ctx context.Context, op func() error) error {
	if l.retryPolicy == nil {
		return op()
	}

	return backoff.Retry(func() error {
		if err := op(); err != nil {
			if IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}, l.retryPolicy.backOff(ctx))
}
