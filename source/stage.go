package source

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"scrolls/chain"
	"scrolls/stage"
)

// utxoRPCStage implements stage.Worker for the UtxoRPC source variant. It
// negotiates an intersection at bootstrap, then translates each upstream
// Frame into a chain.ChainEvent until the upstream closes or the
// configured FinalizeConfig triggers (§4.2).
type utxoRPCStage struct {
	newClient func(ctx context.Context, cfg UtxoRPCConfig) (Client, error)
	cfg       Config
	log       *logrus.Entry

	out *stage.OutputPort[chain.ChainEvent]

	client Client
	done   bool
}

func newUtxoRPCStage(cfg Config, newClient func(ctx context.Context, cfg UtxoRPCConfig) (Client, error), log *logrus.Entry) *utxoRPCStage {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &utxoRPCStage{
		newClient: newClient,
		cfg:       cfg,
		log:       log.WithField("stage", "source"),
		out:       stage.NewOutputPort[chain.ChainEvent](),
	}
}

func (s *utxoRPCStage) Bootstrap(ctx context.Context) error {
	if s.cfg.UtxoRPC == nil {
		return stage.Panic("source bootstrap", fmt.Errorf("missing [source.utxorpc] configuration"))
	}
	client, err := s.newClient(ctx, *s.cfg.UtxoRPC)
	if err != nil {
		return stage.Restart("source bootstrap: dial upstream", err)
	}

	candidates, err := s.cfg.Intersect.Points()
	if err != nil {
		return stage.Panic("source bootstrap: intersect config", err)
	}
	point, err := client.Intersect(ctx, candidates)
	if err != nil {
		return stage.Restart("source bootstrap: intersect", err)
	}

	s.client = client
	s.done = false
	s.log.WithField("point", point.String()).Info("source intersected with upstream")
	return nil
}

func (s *utxoRPCStage) Schedule(ctx context.Context) (any, bool, error) {
	if s.done {
		return nil, false, nil
	}
	frame, err := s.client.Next(ctx)
	if err != nil {
		if err == ErrUpstreamClosed {
			return nil, false, nil
		}
		return nil, false, stage.Restart("source schedule: upstream read", err)
	}
	return frame, true, nil
}

func (s *utxoRPCStage) Execute(ctx context.Context, unit any) error {
	frame := unit.(Frame)

	event, err := translate(frame)
	if err != nil {
		return stage.Panic("source execute: translate frame", err)
	}
	s.out.Send(ctx, event)

	if frame.Kind == FrameApply {
		if chain.ShouldFinalize(&s.cfg.Finalize, frame.Point) {
			s.done = true
		}
	}
	return nil
}

func (s *utxoRPCStage) Teardown(ctx context.Context) error {
	s.out.Close()
	if s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return stage.Restart("source teardown: close upstream", err)
	}
	return nil
}

// translate converts one upstream Frame to a chain.ChainEvent. A Frame
// with a nil Block where one is required is a deserialization-class
// failure: Panic, per §4.2.5.
func translate(f Frame) (chain.ChainEvent, error) {
	switch f.Kind {
	case FrameApply:
		if f.Block == nil {
			return chain.ChainEvent{}, fmt.Errorf("apply frame at %s carries no block", f.Point)
		}
		return chain.Apply(f.Point, chain.NewParsedBlockRecord(f.Block)), nil
	case FrameUndo:
		if f.Block == nil {
			return chain.ChainEvent{}, fmt.Errorf("undo frame at %s carries no block", f.Point)
		}
		return chain.Undo(f.Point, chain.NewParsedBlockRecord(f.Block)), nil
	case FrameReset:
		return chain.Reset(f.Point), nil
	default:
		return chain.ChainEvent{}, fmt.Errorf("unknown frame kind %d", f.Kind)
	}
}
