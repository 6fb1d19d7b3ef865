package stage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PollInterval is how often the Supervisor checks tether state, per §4.1.
const PollInterval = 1500 * time.Millisecond

// Supervisor tracks every stage's Tether and drives pipeline-wide
// shutdown: as soon as any stage ends, with or without an error, every
// tracked stage is dismissed, and the supervisor joins them all, waiting
// for each to run its Teardown phase (which closes its output port) and
// reach PhaseEnded before returning. Dismissal reaches every stage at
// once and each stops at its next check for it; units still queued in a
// channel when its consumer stops are not drained and may be dropped.
type Supervisor struct {
	mu      sync.Mutex
	tethers []*Tether
	log     *logrus.Entry
}

// NewSupervisor builds a Supervisor that logs through log, or a
// package-default logger if log is nil.
func NewSupervisor(log *logrus.Entry) *Supervisor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Supervisor{log: log}
}

// Track registers t for supervision. Safe to call before or after the
// stage has been spawned.
func (s *Supervisor) Track(t *Tether) {
	s.mu.Lock()
	s.tethers = append(s.tethers, t)
	s.mu.Unlock()
}

// Run polls every tether's state every PollInterval until ctx is
// canceled or a stage ends. On the first stage ending, every other
// tracked stage is dismissed and Run waits for all of them to reach
// PhaseEnded before returning. The returned error is nil only if every
// stage ended without error (the orderly-finalize case, §3.5); otherwise
// it is an error naming every stage that ended with one, or ctx's error
// when ctx was canceled.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.dismissAll()
			s.waitAll()
			return ctx.Err()
		case <-ticker.C:
			if err, any := s.anyEnded(); any {
				s.log.WithField("cause", err).Info("stage ended, dismissing pipeline")
				s.dismissAll()
				return s.waitAll()
			}
		}
	}
}

// anyEnded reports whether any tracked stage has reached PhaseEnded, and
// if so its terminal error (nil for an orderly end).
func (s *Supervisor) anyEnded() (error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tethers {
		if st := t.CheckState(); st.Phase == PhaseEnded {
			return st.Err, true
		}
	}
	return nil, false
}

func (s *Supervisor) dismissAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tethers {
		t.DismissStage()
	}
}

// waitAll blocks until every tracked stage has reached PhaseEnded,
// joining them concurrently via errgroup (each stage's Teardown runs
// independently, so there is no reason to wait on them one at a time),
// then returns nil, or an error naming every failed stage and its ending
// error.
func (s *Supervisor) waitAll() error {
	s.mu.Lock()
	tethers := append([]*Tether(nil), s.tethers...)
	s.mu.Unlock()

	var mu sync.Mutex
	var failed []string

	var g errgroup.Group
	for _, t := range tethers {
		t := t
		g.Go(func() error {
			<-t.Done()
			if st := t.CheckState(); st.Err != nil {
				mu.Lock()
				failed = append(failed, fmt.Sprintf("%s: %v", t.Name(), st.Err))
				mu.Unlock()
				return st.Err
			}
			return nil
		})
	}
	first := g.Wait()
	if first == nil {
		return nil
	}
	return fmt.Errorf("pipeline ended with errors: %s", strings.Join(failed, "; "))
}
