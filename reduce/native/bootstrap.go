package native

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"scrolls/chain"
	"scrolls/model"
	"scrolls/reduce"
	"scrolls/stage"
)

// Bootstrapper wires one native Reduce stage instance: a single input
// port (connected to the Source's broadcast output) and a single output
// port (fanned out to one or more Storage stages), per §4.1's
// Bootstrapper pattern. Source provides the adapter via ConnectInput;
// Spawn fails fast if it was never called, the Go analogue of the
// original framework's "violations are programmer errors" rule.
type Bootstrapper struct {
	dispatch *dispatchStage
	in       *stage.InputPort[chain.ChainEvent]
}

// NewBootstrapper builds a native reduce Bootstrapper from cfg. frames
// selects whether this instance emits the BlockStarting/BlockFinished
// markers (the caller resolves this from reduce.FramingPolicy and this
// stage's declaration position, per SPEC_FULL §9).
func NewBootstrapper(cfg reduce.Config, frames bool, log *logrus.Entry) (*Bootstrapper, error) {
	if cfg.Type != "Native" {
		return nil, fmt.Errorf("native reduce: unsupported type %q", cfg.Type)
	}
	if cfg.Native == nil {
		return nil, fmt.Errorf("native reduce: missing [reducers.native] configuration")
	}

	reducers := make([]reduce.Reducer, 0, len(cfg.Native.Reducers))
	for _, rc := range cfg.Native.Reducers {
		r, err := NewReducer(rc)
		if err != nil {
			return nil, err
		}
		reducers = append(reducers, r)
	}

	return &Bootstrapper{dispatch: newDispatchStage(reducers, frames, log)}, nil
}

// ConnectInput wires in (typically obtained from a Source Bootstrapper's
// ConnectOutput) as this stage's ChainEvent source.
func (b *Bootstrapper) ConnectInput(in *stage.InputPort[chain.ChainEvent]) {
	b.in = in
}

// ConnectOutput returns a new InputPort subscribed to this stage's
// StorageEvent output, for wiring a Storage stage's input.
func (b *Bootstrapper) ConnectOutput() *stage.InputPort[model.StorageEvent] {
	return b.dispatch.out.Connect()
}

// Spawn starts the stage under policy and returns its Tether. It panics
// if ConnectInput was never called, per §4.1's wire-time fail-fast rule.
func (b *Bootstrapper) Spawn(ctx context.Context, policy stage.Policy) *stage.Tether {
	if b.in == nil {
		panic("reduce-native: Spawn called before ConnectInput")
	}
	b.dispatch.in = b.in
	return stage.Spawn(ctx, "reduce-native", b.dispatch, policy)
}
