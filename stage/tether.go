package stage

import "sync"

// Phase is a stage's position in its lifecycle.
type Phase int

const (
	PhaseBootstrap Phase = iota
	PhaseWorking
	PhaseTeardown
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseBootstrap:
		return "bootstrap"
	case PhaseWorking:
		return "working"
	case PhaseTeardown:
		return "teardown"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// State is a snapshot of a stage's current lifecycle position and, once
// it has ended, the error (if any) that ended it.
type State struct {
	Phase Phase
	Err   error
}

// Tether is the remote handle a Supervisor holds for a spawned stage: its
// name, a way to check its current lifecycle state, a way to request
// early dismissal, and its metrics (§4.1's "name / check_state /
// dismiss_stage / metrics").
type Tether struct {
	name string

	mu    sync.Mutex
	state State

	dismiss chan struct{}
	once    sync.Once

	done chan struct{}

	metrics *Metrics
}

func newTether(name string) *Tether {
	return &Tether{
		name:    name,
		state:   State{Phase: PhaseBootstrap},
		dismiss: make(chan struct{}),
		done:    make(chan struct{}),
		metrics: newMetrics(),
	}
}

// Name returns the stage's name, as given to Spawn.
func (t *Tether) Name() string {
	return t.name
}

// CheckState returns a snapshot of the stage's current phase and terminal
// error, if any.
func (t *Tether) CheckState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tether) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// DismissStage requests the stage begin its teardown phase at the next
// opportunity, regardless of whether its policy marks it dismissible.
// Idempotent: repeated calls have no further effect.
func (t *Tether) DismissStage() {
	t.once.Do(func() { close(t.dismiss) })
}

// dismissed reports whether DismissStage has been called.
func (t *Tether) dismissed() <-chan struct{} {
	return t.dismiss
}

// Done returns a channel closed once the stage has reached PhaseEnded.
func (t *Tether) Done() <-chan struct{} {
	return t.done
}

// Metrics returns the stage's metrics handle.
func (t *Tether) Metrics() *Metrics {
	return t.metrics
}

func (t *Tether) markEnded(err error) {
	t.setState(State{Phase: PhaseEnded, Err: err})
	close(t.done)
}

// Metrics holds the per-stage counters the supervisor and an operator
// console read from a Tether (§4.1).
type Metrics struct {
	mu            sync.Mutex
	unitsScheduled uint64
	unitsExecuted  uint64
	restarts       uint64
}

func newMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) incScheduled() {
	m.mu.Lock()
	m.unitsScheduled++
	m.mu.Unlock()
}

func (m *Metrics) incExecuted() {
	m.mu.Lock()
	m.unitsExecuted++
	m.mu.Unlock()
}

func (m *Metrics) incRestarts() {
	m.mu.Lock()
	m.restarts++
	m.mu.Unlock()
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() (scheduled, executed, restarts uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unitsScheduled, m.unitsExecuted, m.restarts
}
