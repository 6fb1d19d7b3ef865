package script

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"scrolls/chain"
	"scrolls/model"
	"scrolls/reduce"
	"scrolls/stage"
)

// Bootstrapper wires a configured reduce.Config{Type: "Script"} into a
// spawnable scriptStage, mirroring reduce/native's Bootstrapper shape so
// the daemon's wiring code treats every reduce variant identically.
type Bootstrapper struct {
	stage *scriptStage
	in    *stage.InputPort[chain.ChainEvent]
}

// NewBootstrapper validates cfg and constructs the underlying stage
// without loading any module file yet; modules are compiled during
// Bootstrap, where a load failure is Panic-class and ends the stage
// without a retry.
func NewBootstrapper(cfg reduce.Config, frames bool, log *logrus.Entry) (*Bootstrapper, error) {
	if cfg.Type != "Script" {
		return nil, fmt.Errorf("reduce/script: config type must be %q, got %q", "Script", cfg.Type)
	}
	if cfg.Script == nil || len(cfg.Script.Modules) == 0 {
		return nil, fmt.Errorf("reduce/script: at least one module must be configured")
	}

	return &Bootstrapper{stage: newScriptStage(cfg.Script.Modules, frames, log)}, nil
}

// ConnectInput stores the InputPort handed back by the upstream stage's
// ConnectOutput.
func (b *Bootstrapper) ConnectInput(in *stage.InputPort[chain.ChainEvent]) {
	b.in = in
}

// ConnectOutput allocates and returns a fresh subscriber channel for a
// downstream storage stage.
func (b *Bootstrapper) ConnectOutput() *stage.InputPort[model.StorageEvent] {
	return b.stage.out.Connect()
}

// Spawn launches the stage. It panics if ConnectInput was never called,
// matching reduce/native's fail-fast wiring contract.
func (b *Bootstrapper) Spawn(ctx context.Context, policy stage.Policy) *stage.Tether {
	if b.in == nil {
		panic("reduce-script: Spawn called before ConnectInput")
	}
	b.stage.in = b.in
	return stage.Spawn(ctx, "reduce-script", b.stage, policy)
}
