package stage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultPolicyMatchesSpec(t *testing.T) {
	p := DefaultPolicy()
	for _, rp := range []RetryPolicy{p.Bootstrap, p.Work, p.Teardown} {
		if rp.MaxRetries != 20 {
			t.Errorf("MaxRetries = %d, want 20", rp.MaxRetries)
		}
		if rp.BackoffUnit != time.Second {
			t.Errorf("BackoffUnit = %v, want 1s", rp.BackoffUnit)
		}
		if rp.BackoffFactor != 2 {
			t.Errorf("BackoffFactor = %v, want 2", rp.BackoffFactor)
		}
		if rp.MaxBackoff != 60*time.Second {
			t.Errorf("MaxBackoff = %v, want 60s", rp.MaxBackoff)
		}
		if rp.Dismissible {
			t.Errorf("Dismissible = true, want false by default")
		}
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, BackoffUnit: time.Millisecond, BackoffFactor: 2, MaxBackoff: 10 * time.Millisecond}
	attempts := 0
	err := p.retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return Restart("op", errors.New("transient"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryEscalatesExhaustedRestartsToPanic(t *testing.T) {
	p := RetryPolicy{MaxRetries: 2, BackoffUnit: time.Millisecond, BackoffFactor: 2, MaxBackoff: 5 * time.Millisecond}
	attempts := 0
	err := p.retry(context.Background(), func() error {
		attempts++
		return Restart("op", errors.New("still down"))
	})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if !IsPanic(err) {
		t.Fatalf("expected exhausted retries to escalate to Panic, got %v", err)
	}
}

func TestRetryPropagatesPanicImmediately(t *testing.T) {
	p := RetryPolicy{MaxRetries: 20, BackoffUnit: time.Millisecond, BackoffFactor: 2, MaxBackoff: 5 * time.Millisecond}
	attempts := 0
	err := p.retry(context.Background(), func() error {
		attempts++
		return Panic("op", errors.New("malformed record"))
	})
	if !IsPanic(err) {
		t.Fatalf("expected Panic error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry on Panic-class)", attempts)
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	p := RetryPolicy{MaxRetries: 20, BackoffUnit: 50 * time.Millisecond, BackoffFactor: 2, MaxBackoff: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.retry(ctx, func() error {
		return Restart("op", errors.New("down"))
	})
	if err == nil {
		t.Fatalf("expected an error when context is already canceled")
	}
}
