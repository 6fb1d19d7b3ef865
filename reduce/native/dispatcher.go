// Package native implements the compiled-reducer variant of the Reduce
// stage: a fixed, in-process vector of Go reducers applied in declaration
// order, grounded on original_source/src/reduce/rust/mod.rs.
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

// NewReducer builds the named reducer, or an error for an unrecognized
// name (a Panic-class configuration error, caught at bootstrap).
func NewReducer(cfg reduce.ReducerConfig) (reduce.Reducer, error) {
	switch cfg.Name {
	case "BalanceByAddress":
		return NewBalanceByAddress(cfg.KeyPrefix), nil
	case "BalanceByStakeAddress":
		return NewBalanceByStakeAddress(cfg.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("native reduce: unknown reducer %q", cfg.Name)
	}
}

// dispatchStage is the stage.Worker driving the native Reduce variant: for
// each ChainEvent it frames a BlockStarting/BlockFinished run (when
// framing is enabled for this instance) and runs every configured
// reducer in order (§4.3.1).
type dispatchStage struct {
	reducers []reduce.Reducer
	frames   bool
	log      *logrus.Entry

	in  *stage.InputPort[chain.ChainEvent]
	out *stage.OutputPort[model.StorageEvent]

	opsCount uint64
}

func newDispatchStage(reducers []reduce.Reducer, frames bool, log *logrus.Entry) *dispatchStage {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &dispatchStage{
		reducers: reducers,
		frames:   frames,
		log:      log.WithField("stage", "reduce-native"),
		out:      stage.NewOutputPort[model.StorageEvent](),
	}
}

func (d *dispatchStage) Bootstrap(ctx context.Context) error { return nil }

func (d *dispatchStage) Schedule(ctx context.Context) (any, bool, error) {
	select {
	case ev, ok := <-d.in.Chan():
		if !ok {
			return nil, false, nil
		}
		return ev, true, nil
	case <-ctx.Done():
		return nil, false, nil
	}
}

func (d *dispatchStage) Execute(ctx context.Context, unit any) error {
	ev := unit.(chain.ChainEvent)

	switch ev.Kind {
	case chain.EventApply, chain.EventUndo:
		block, ok := ev.Record.ParsedBlock()
		if !ok {
			return stage.Panic("reduce-native execute", fmt.Errorf("event at %s carries no parsed block", ev.Point))
		}
		return d.runReducers(ctx, ev, block)
	case chain.EventReset:
		// Reset passes through unchanged; native reducers hold no
		// per-block state to roll back, so nothing is emitted (§4.3.1).
		return nil
	default:
		return stage.Panic("reduce-native execute", fmt.Errorf("unknown chain event kind %d", ev.Kind))
	}
}

func (d *dispatchStage) runReducers(ctx context.Context, ev chain.ChainEvent, block *chain.Block) error {
	if d.frames {
		d.out.Send(ctx, model.CRDTEvent(model.NewBlockStarting(ev.Point)))
	}

	sink := func(se model.StorageEvent) { d.out.Send(ctx, se) }

	for _, r := range d.reducers {
		var err error
		if ev.Kind == chain.EventApply {
			err = r.Apply(block, sink)
		} else {
			err = r.Undo(block, sink)
		}
		if err != nil {
			return stage.Panic("reduce-native execute", err)
		}
		d.opsCount++
	}

	if d.frames {
		d.out.Send(ctx, model.CRDTEvent(model.NewBlockFinished(ev.Point)))
	}
	return nil
}

func (d *dispatchStage) Teardown(ctx context.Context) error {
	d.out.Close()
	return nil
}
