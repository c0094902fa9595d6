package trino

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy wraps an HTTP call with exponential backoff, retrying
// transient transport errors and 503/504 responses up to MaxAttempts
// times (spec §4.2). MaxAttempts == 1 disables retrying: the call is
// made once and its result (success, error, or non-2xx response) is
// returned as-is.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialInterval, Multiplier and MaxInterval parameterize the
	// exponential backoff between attempts.
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration

	// ExtraTransient is consulted, in addition to the built-in transport
	// transient set, so an installed Auth capability can contribute its
	// own retryable error types (spec §6 "Auth capability").
	ExtraTransient func(error) bool
}

// DefaultRetryPolicy returns the policy the teacher-derived defaults use:
// 3 attempts, starting at 50ms and doubling up to 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     DefaultMaxAttempts,
		InitialInterval: 50 * time.Millisecond,
		Multiplier:      2,
		MaxInterval:     2 * time.Second,
	}
}

func (p RetryPolicy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0 // attempts are bounded by MaxAttempts, not elapsed time
	return b
}

// Do executes fn, retrying per the policy. fn returns the HTTP response
// (possibly non-2xx) and/or a transport-level error. Do retries when err
// is in the transient set or resp.StatusCode is 503/504; any other error
// or response is returned immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func() (*http.Response, error)) (*http.Response, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	if maxAttempts == 1 {
		return fn()
	}

	b := backoff.WithContext(p.newBackOff(), ctx)

	var resp *http.Response
	var err error
	attempt := 0

	operation := func() error {
		attempt++
		resp, err = fn()
		if err != nil {
			if isTransientTransportError(err) || (p.ExtraTransient != nil && p.ExtraTransient(err)) {
				return err
			}
			return backoff.Permanent(err)
		}
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusGatewayTimeout {
			return errRetryableStatus
		}
		return nil
	}

	retryErr := backoff.Retry(operation, backoff.WithMaxRetries(b, uint64(maxAttempts-1)))
	if retryErr != nil && !errors.Is(retryErr, errRetryableStatus) {
		return nil, NewTransportError(unwrapPermanent(retryErr))
	}
	return resp, nil
}

// errRetryableStatus is a sentinel signalling "retry, the response itself
// (503/504) is the reason", distinct from a transport error.
var errRetryableStatus = errors.New("trino: retryable http status")

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// isTransientTransportError reports whether err is a connection-level
// failure worth retrying: connection refused/reset, or a timeout.
func isTransientTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
