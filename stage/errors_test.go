package stage

import (
	"errors"
	"fmt"
	"testing"
)

func TestRestartWrapsAndClassifies(t *testing.T) {
	base := errors.New("connection refused")
	err := Restart("dial", base)

	if !IsRestart(err) {
		t.Fatalf("expected IsRestart true, got false for %v", err)
	}
	if IsPanic(err) {
		t.Fatalf("expected IsPanic false, got true for %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected errors.Is to find the wrapped base error")
	}
}

func TestPanicWrapsAndClassifies(t *testing.T) {
	base := errors.New("unknown command discriminator")
	err := Panic("decode", base)

	if !IsPanic(err) {
		t.Fatalf("expected IsPanic true, got false for %v", err)
	}
	if IsRestart(err) {
		t.Fatalf("expected IsRestart false, got true for %v", err)
	}
}

func TestRestartNilIsNil(t *testing.T) {
	if err := Restart("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := Panic("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestClassificationThroughWrapping(t *testing.T) {
	base := Restart("dial", errors.New("timeout"))
	wrapped := fmt.Errorf("retry failed: %w", base)

	if !IsRestart(wrapped) {
		t.Fatalf("expected IsRestart to see through fmt.Errorf wrapping")
	}
}
