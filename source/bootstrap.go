package source

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"scrolls/chain"
	"scrolls/stage"
)

// NewClientFunc dials the upstream named by cfg. Production wiring passes
// DialUtxoRPC (newline-delimited JSON over TCP); tests substitute a fake.
type NewClientFunc func(ctx context.Context, cfg UtxoRPCConfig) (Client, error)

// Bootstrapper wires the source stage's single output port and spawns it.
// Source accepts no input: ConnectInput fails fast, mirroring the
// original framework's panic-on-misuse behavior for stages that cannot
// accept a given port kind (§4.1's Bootstrapper pattern).
type Bootstrapper struct {
	cfg       Config
	newClient NewClientFunc
	log       *logrus.Entry

	stage *utxoRPCStage
}

// NewBootstrapper builds a Bootstrapper for cfg. newClient dials the
// concrete upstream; pass nil to use the production UtxoRPC dialer.
func NewBootstrapper(cfg Config, newClient NewClientFunc, log *logrus.Entry) (*Bootstrapper, error) {
	if cfg.Type != "UtxoRPC" {
		return nil, fmt.Errorf("source: unsupported type %q (only \"UtxoRPC\" is implemented)", cfg.Type)
	}
	if newClient == nil {
		newClient = DialUtxoRPC
	}
	return &Bootstrapper{
		cfg:       cfg,
		newClient: newClient,
		log:       log,
		stage:     newUtxoRPCStage(cfg, newClient, log),
	}, nil
}

// ConnectInput always fails: the source stage has no upstream within this
// pipeline, per §4.1.
func (b *Bootstrapper) ConnectInput(any) {
	panic("source: attempted to use source stage as a receiver")
}

// ConnectOutput returns a new InputPort subscribed to this source's
// ChainEvent output, for wiring one Reduce stage's input.
func (b *Bootstrapper) ConnectOutput() *stage.InputPort[chain.ChainEvent] {
	return b.stage.out.Connect()
}

// Spawn starts the source stage under policy and returns its Tether.
func (b *Bootstrapper) Spawn(ctx context.Context, policy stage.Policy) *stage.Tether {
	return stage.Spawn(ctx, "source", b.stage, policy)
}
