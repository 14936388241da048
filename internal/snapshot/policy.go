package snapshot

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds every round-trip made while refreshing.
type RetryPolicy struct {
	MaxPages       int           // hard cap on pages per refresh
	PageSize       int           // records requested per page
	MaxAttempts    int           // attempts per request, including the first
	Backoff        time.Duration // wait after the first failure, doubled each retry
	MaxBackoff     time.Duration // ceiling for a single wait
	RequestTimeout time.Duration // deadline for a single attempt
}

// DefaultRetryPolicy is 3 pages of 100, 3 attempts, 1s backoff capped at
// 10s, 30s per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxPages:       3,
		PageSize:       100,
		MaxAttempts:    3,
		Backoff:        time.Second,
		MaxBackoff:     10 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultRetryPolicy.
func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxPages <= 0 {
		p.MaxPages = d.MaxPages
	}
	if p.PageSize <= 0 {
		p.PageSize = d.PageSize
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = d.RequestTimeout
	}
	return p
}

// apiError is implemented by source errors that know whether a retry can
// help.
type apiError interface {
	Temporary() bool
	RetryAfter() time.Duration
}

// retryAfter is implemented by errors carrying a server-requested delay.
type retryAfter interface {
	RetryAfter() time.Duration
}

// Do runs op until it succeeds, returns a permanent error, or MaxAttempts
// is reached. Each attempt gets its own RequestTimeout. It returns the
// number of attempts made.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) (int, error) {
	p = p.withDefaults()
	wait := p.Backoff

	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.RequestTimeout)
		err := op(attemptCtx)
		cancel()

		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if attempt >= p.MaxAttempts || !shouldRetry(err) {
			return attempt, err
		}

		delay := wait
		var ra retryAfter
		if errors.As(err, &ra) && ra.RetryAfter() > delay {
			delay = ra.RetryAfter()
		}
		if delay > p.MaxBackoff {
			delay = p.MaxBackoff
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}

		wait *= 2
		if wait > p.MaxBackoff {
			wait = p.MaxBackoff
		}
	}
}

// shouldRetry retries transport failures and temporary API errors.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr apiError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}
