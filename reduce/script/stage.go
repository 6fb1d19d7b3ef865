// Package script implements the scripted-reducer variant of the Reduce
// stage: embedded JS modules contribute apply/undo export pairs, grounded
// on original_source/src/reduce/deno/mod.rs.
package script

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"scrolls/chain"
	"scrolls/model"
	"scrolls/stage"
)

// scriptStage is the stage.Worker that drives a shared
// goja runtime across every configured module, mirroring the per-module
// apply/undo dispatch of native.dispatchStage but sourcing its commands
// from JS instead of compiled Go.
type scriptStage struct {
	paths   []string
	frames  bool
	log     *logrus.Entry
	rt      *runtime
	in      *stage.InputPort[chain.ChainEvent]
	out     *stage.OutputPort[model.StorageEvent]
	opCount uint64
}

func newScriptStage(paths []string, frames bool, log *logrus.Entry) *scriptStage {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &scriptStage{
		paths:  paths,
		frames: frames,
		log:    log.WithField("stage", "reduce-script"),
		out:    stage.NewOutputPort[model.StorageEvent](),
	}
}

func (s *scriptStage) Bootstrap(ctx context.Context) error {
	rt := newRuntime()
	for _, p := range s.paths {
		if err := rt.load(p); err != nil {
			return stage.Panic("reduce-script bootstrap", err)
		}
	}
	s.rt = rt
	return nil
}

func (s *scriptStage) Schedule(ctx context.Context) (any, bool, error) {
	select {
	case ev, ok := <-s.in.Chan():
		if !ok {
			return nil, false, nil
		}
		return ev, true, nil
	case <-ctx.Done():
		return nil, false, nil
	}
}

func (s *scriptStage) Execute(ctx context.Context, unit any) error {
	ev := unit.(chain.ChainEvent)

	switch ev.Kind {
	case chain.EventReset:
		return nil
	case chain.EventApply, chain.EventUndo:
		block, ok := ev.Record.ParsedBlock()
		if !ok {
			return stage.Panic("reduce-script execute", fmt.Errorf("record is not a parsed block"))
		}

		method := "apply"
		if ev.Kind == chain.EventUndo {
			method = "undo"
		}

		if s.frames {
			s.out.Send(ctx, model.CRDTEvent(model.NewBlockStarting(ev.Point)))
		}

		recordJSON, err := json.Marshal(block)
		if err != nil {
			return stage.Panic("reduce-script execute", fmt.Errorf("encode block: %w", err))
		}

		for _, m := range s.rt.modules {
			resultJSON, err := s.rt.invoke(m.stem, method, recordJSON)
			if err != nil {
				return stage.Panic("reduce-script execute", err)
			}
			if len(resultJSON) == 0 {
				continue
			}

			cmds, err := model.DecodeCRDTCommandList(resultJSON)
			if err != nil {
				return stage.Panic("reduce-script execute", fmt.Errorf("module %s: %w", m.stem, err))
			}
			for _, c := range cmds {
				s.out.Send(ctx, model.CRDTEvent(c))
			}
			s.opCount++
		}

		if s.frames {
			s.out.Send(ctx, model.CRDTEvent(model.NewBlockFinished(ev.Point)))
		}
		return nil
	default:
		return stage.Panic("reduce-script execute", fmt.Errorf("unknown chain event kind %v", ev.Kind))
	}
}

func (s *scriptStage) Teardown(ctx context.Context) error {
	s.out.Close()
	return nil
}
