package native

import (
	"context"
	"testing"
	"time"

	"scrolls/chain"
	"scrolls/model"
	"scrolls/reduce"
	"scrolls/stage"
)

func drainN(t *testing.T, in *stage.InputPort[model.StorageEvent], n int) []model.StorageEvent {
	t.Helper()
	out := make([]model.StorageEvent, 0, n)
	for i := 0; i < n; i++ {
		select {
		case ev := <-in.Chan():
			out = append(out, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d/%d", i+1, n)
		}
	}
	return out
}

func TestDispatchStageFramesBlockWhenEnabled(t *testing.T) {
	d := newDispatchStage([]reduce.Reducer{NewBalanceByAddress("")}, true, nil)
	in := stage.NewUnconnectedInputPort[chain.ChainEvent]()
	d.in = in
	downstream := d.out.Connect()

	ctx := context.Background()
	ev := chain.Apply(chain.NewPoint(1, []byte{1}), chain.NewParsedBlockRecord(sampleBlock()))
	if err := d.Execute(ctx, ev); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	events := drainN(t, downstream, 5) // BlockStarting + 3 reducer commands + BlockFinished
	if events[0].CRDT.Kind != model.BlockStarting {
		t.Fatalf("first event kind = %v, want BlockStarting", events[0].CRDT.Kind)
	}
	if events[len(events)-1].CRDT.Kind != model.BlockFinished {
		t.Fatalf("last event kind = %v, want BlockFinished", events[len(events)-1].CRDT.Kind)
	}
}

func TestDispatchStageSkipsFramingWhenDisabled(t *testing.T) {
	d := newDispatchStage([]reduce.Reducer{NewBalanceByAddress("")}, false, nil)
	downstream := d.out.Connect()

	ctx := context.Background()
	ev := chain.Apply(chain.NewPoint(1, []byte{1}), chain.NewParsedBlockRecord(sampleBlock()))
	if err := d.Execute(ctx, ev); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	events := drainN(t, downstream, 3)
	for _, e := range events {
		if e.CRDT.Kind == model.BlockStarting || e.CRDT.Kind == model.BlockFinished {
			t.Fatalf("unexpected framing event %v when frames=false", e.CRDT.Kind)
		}
	}
}

func TestDispatchStageResetEmitsNothing(t *testing.T) {
	d := newDispatchStage([]reduce.Reducer{NewBalanceByAddress("")}, true, nil)
	d.out.Connect()

	ctx := context.Background()
	if err := d.Execute(ctx, chain.Reset(chain.NewPoint(5, []byte{5}))); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestDispatchStageRejectsEventWithoutParsedBlock(t *testing.T) {
	d := newDispatchStage([]reduce.Reducer{NewBalanceByAddress("")}, true, nil)
	d.out.Connect()

	ctx := context.Background()
	ev := chain.Apply(chain.NewPoint(1, []byte{1}), chain.NewRawBlockRecord([]byte{0xde, 0xad}))
	if err := d.Execute(ctx, ev); !stage.IsPanic(err) {
		t.Fatalf("expected a Panic-class error for a non-parsed-block record, got %v", err)
	}
}
