package stage

import (
	"errors"
	"fmt"
)

// RestartError marks a transient failure: network hiccups, pool
// exhaustion, backend timeouts. The active phase is retried under policy,
// and on work failures bootstrap re-runs before work resumes (§4.1, §7).
type RestartError struct {
	Op  string
	Err error
}

func (e *RestartError) Error() string {
	return fmt.Sprintf("%s: restart: %v", e.Op, e.Err)
}

func (e *RestartError) Unwrap() error { return e.Err }

// Restart wraps err as a Restart-class failure.
func Restart(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RestartError{Op: op, Err: err}
}

// PanicError marks a fatal failure: protocol invariants violated,
// malformed records, unknown command discriminators, or programmer wiring
// errors. The stage transitions to Ended and the supervisor initiates
// shutdown of the whole pipeline (§4.1, §7).
type PanicError struct {
	Op  string
	Err error
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: panic: %v", e.Op, e.Err)
}

func (e *PanicError) Unwrap() error { return e.Err }

// Panic wraps err as a Panic-class failure.
func Panic(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PanicError{Op: op, Err: err}
}

// IsRestart reports whether err is (or wraps) a Restart-class failure.
func IsRestart(err error) bool {
	var target *RestartError
	return errors.As(err, &target)
}

// IsPanic reports whether err is (or wraps) a Panic-class failure.
func IsPanic(err error) bool {
	var target *PanicError
	return errors.As(err, &target)
}
