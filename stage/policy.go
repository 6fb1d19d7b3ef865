package stage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy configures the retry behavior of one lifecycle phase
// (bootstrap, work, or teardown), per §4.1: up to 20 attempts, exponential
// backoff starting at 1s, doubling, capped at 60s, not dismissible by
// default.
type RetryPolicy struct {
	MaxRetries    int
	BackoffUnit   time.Duration
	BackoffFactor float64
	MaxBackoff    time.Duration
	Dismissible   bool
}

// DefaultRetryPolicy returns the spec's non-dismissible default policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    20,
		BackoffUnit:   time.Second,
		BackoffFactor: 2,
		MaxBackoff:    60 * time.Second,
		Dismissible:   false,
	}
}

// Policy bundles the retry policy for each of a stage's three phases.
type Policy struct {
	Bootstrap RetryPolicy
	Work      RetryPolicy
	Teardown  RetryPolicy
}

// DefaultPolicy applies DefaultRetryPolicy to every phase.
func DefaultPolicy() Policy {
	d := DefaultRetryPolicy()
	return Policy{Bootstrap: d, Work: d, Teardown: d}
}

// backOff builds a cenkalti/backoff exponential policy from a RetryPolicy,
// matching the teacher's convention of wrapping well-known third-party
// constructors rather than hand-rolling sleep loops (SPEC_FULL.md §6.5).
func (p RetryPolicy) backOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BackoffUnit
	eb.Multiplier = p.BackoffFactor
	eb.MaxInterval = p.MaxBackoff
	eb.MaxElapsedTime = 0 // bounded by MaxRetries instead of wall time
	return backoff.WithMaxRetries(eb, uint64(p.MaxRetries))
}

// retry runs op under p's policy. A Restart-class error is retried;
// exceeding MaxRetries or any Panic-class error escalates immediately
// (§7: "policy-exhausted... escalates to Panic").
func (p RetryPolicy) retry(ctx context.Context, op func() error) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if IsPanic(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.Retry(wrapped, backoff.WithContext(p.backOff(), ctx))
	if err == nil {
		return nil
	}
	if IsPanic(err) {
		return err
	}
	// Retries exhausted on a Restart-class error: policy-exhausted escalates
	// to Panic (§7).
	return Panic("retries exhausted", err)
}
