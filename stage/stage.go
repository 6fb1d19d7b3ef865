package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Worker is the behavior a stage author implements; Spawn drives it
// through the bootstrap → (schedule → execute)* → teardown lifecycle
// (§4.1). Schedule returning ok=false with a nil error signals the stage
// has naturally run out of work (e.g. a source stage reached its
// finalize condition) and the lifecycle proceeds straight to teardown.
type Worker interface {
	Bootstrap(ctx context.Context) error
	Schedule(ctx context.Context) (unit any, ok bool, err error)
	Execute(ctx context.Context, unit any) error
	Teardown(ctx context.Context) error
}

// Spawn starts w running under policy and returns a Tether for
// supervising it. The stage runs on its own goroutine until it ends,
// either because Schedule signaled natural completion, ctx was canceled,
// DismissStage was called, or a Panic-class error (or a recovered Go
// panic) ended it.
func Spawn(ctx context.Context, name string, w Worker, policy Policy) *Tether {
	t := newTether(name)
	go run(ctx, t, w, policy)
	return t
}

func run(ctx context.Context, t *Tether, w Worker, policy Policy) {
	defer func() {
		if r := recover(); r != nil {
			t.markEnded(Panic(t.name, fmt.Errorf("recovered panic: %v", r)))
		}
	}()

	ctx, cancel := withDismiss(ctx, t)
	defer cancel()

	if err := policy.Bootstrap.retry(ctx, func() error { return w.Bootstrap(ctx) }); err != nil {
		t.markEnded(err)
		return
	}

	t.setState(State{Phase: PhaseWorking})
	err := work(ctx, t, w, policy)

	t.setState(State{Phase: PhaseTeardown})
	teardownErr := policy.Teardown.retry(ctx, func() error { return w.Teardown(ctx) })

	if err == nil {
		err = teardownErr
	}
	t.markEnded(err)
}

// work runs the schedule/execute loop until natural completion,
// cancellation, dismissal, or an unrecoverable error. A Restart-class
// Execute failure retries the same unit in place, consuming one attempt
// of the Work policy's backoff budget and rerunning Bootstrap before each
// attempt (§4.1, §7): the original gasket model this mirrors retries the
// unit that failed, not the next one off the channel, which matters for a
// stage holding mid-block state across units (a storage backend's open
// transaction, say) since the channel is one-way and an already-consumed
// unit cannot be re-read from it. A Restart-class Schedule failure has no
// unit in hand, so it simply schedules again after the same backoff.
// Exceeding the Work policy's retry budget escalates to a Panic-class
// error.
func work(ctx context.Context, t *Tether, w Worker, policy Policy) error {
	retryBackoff := backoff.WithMaxRetries(
		withPolicy(policy.Work), uint64(policy.Work.MaxRetries),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.dismissed():
			return nil
		default:
		}

		unit, ok, err := w.Schedule(ctx)
		if err == nil && !ok {
			return nil
		}
		if err != nil {
			end, retErr := recoverFromFailure(ctx, t, w, policy, retryBackoff, err)
			if end {
				return retErr
			}
			continue
		}

		t.metrics.incScheduled()

		for {
			err := w.Execute(ctx, unit)
			if err == nil {
				t.metrics.incExecuted()
				retryBackoff.Reset()
				break
			}
			end, retErr := recoverFromFailure(ctx, t, w, policy, retryBackoff, err)
			if end {
				return retErr
			}
		}
	}
}

// recoverFromFailure handles one Schedule or Execute failure: a Panic-class
// error (or a retry budget exhausted on a Restart-class one) ends the
// stage immediately. Otherwise it reboostraps and waits out the next
// backoff interval, reporting end=false so the caller retries. end=true
// with a nil error means shutdown arrived mid-wait.
func recoverFromFailure(ctx context.Context, t *Tether, w Worker, policy Policy, retryBackoff backoff.BackOff, err error) (end bool, retErr error) {
	if IsPanic(err) {
		return true, err
	}

	t.metrics.incRestarts()
	wait := retryBackoff.NextBackOff()
	if wait == backoff.Stop {
		return true, Panic("work retries exhausted", err)
	}

	if bootErr := policy.Bootstrap.retry(ctx, func() error { return w.Bootstrap(ctx) }); bootErr != nil {
		return true, bootErr
	}

	timer := time.NewTimer(wait)
	select {
	case <-ctx.Done():
		timer.Stop()
		return true, nil
	case <-t.dismissed():
		timer.Stop()
		return true, nil
	case <-timer.C:
		return false, nil
	}
}

// withPolicy builds the underlying exponential backoff for the Work
// policy's per-attempt wait, matching RetryPolicy.backOff's construction.
func withPolicy(p RetryPolicy) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BackoffUnit
	eb.Multiplier = p.BackoffFactor
	eb.MaxInterval = p.MaxBackoff
	eb.MaxElapsedTime = 0
	return eb
}
