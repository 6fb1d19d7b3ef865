package stage

import "testing"

func TestMetricsSnapshot(t *testing.T) {
	m := newMetrics()
	m.incScheduled()
	m.incScheduled()
	m.incExecuted()
	m.incRestarts()

	scheduled, executed, restarts := m.Snapshot()
	if scheduled != 2 || executed != 1 || restarts != 1 {
		t.Fatalf("Snapshot() = (%d, %d, %d), want (2, 1, 1)", scheduled, executed, restarts)
	}
}

func TestTetherDismissIsIdempotent(t *testing.T) {
	tether := newTether("t")
	tether.DismissStage()
	tether.DismissStage()
	select {
	case <-tether.dismissed():
	default:
		t.Fatalf("expected dismissed channel to be closed")
	}
}

func TestTetherPhaseString(t *testing.T) {
	cases := map[Phase]string{
		PhaseBootstrap: "bootstrap",
		PhaseWorking:   "working",
		PhaseTeardown:  "teardown",
		PhaseEnded:     "ended",
	}
	for phase, want := range cases {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
