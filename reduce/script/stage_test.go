package script

import (
	"context"
	"testing"
	"time"

	"scrolls/chain"
	"scrolls/model"
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

func testModule(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return writeModule(t, dir, "counter.js", `
function apply(record) {
	return {command: "PNCounter", key: "blocks", value: record.Txs.length};
}
function undo(record) {
	return {command: "PNCounter", key: "blocks", value: -record.Txs.length};
}
`)
}

func sampleBlock() *chain.Block {
	return &chain.Block{
		Slot: 10,
		Hash: []byte{0x10},
		Txs:  []chain.Tx{{Hash: []byte{0x01}}, {Hash: []byte{0x02}}},
	}
}

func TestScriptStageFramesBlockWhenEnabled(t *testing.T) {
	s := newScriptStage([]string{testModule(t)}, true, nil)
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	downstream := s.out.Connect()

	ev := chain.Apply(chain.NewPoint(1, []byte{1}), chain.NewParsedBlockRecord(sampleBlock()))
	if err := s.Execute(context.Background(), ev); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	events := drainN(t, downstream, 3) // BlockStarting + 1 command + BlockFinished
	if events[0].CRDT.Kind != model.BlockStarting {
		t.Fatalf("first event kind = %v, want BlockStarting", events[0].CRDT.Kind)
	}
	if events[1].CRDT.Delta != 2 {
		t.Fatalf("command delta = %d, want 2", events[1].CRDT.Delta)
	}
	if events[2].CRDT.Kind != model.BlockFinished {
		t.Fatalf("last event kind = %v, want BlockFinished", events[2].CRDT.Kind)
	}
}

func TestScriptStageSkipsFramingWhenDisabled(t *testing.T) {
	s := newScriptStage([]string{testModule(t)}, false, nil)
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	downstream := s.out.Connect()

	ev := chain.Apply(chain.NewPoint(1, []byte{1}), chain.NewParsedBlockRecord(sampleBlock()))
	if err := s.Execute(context.Background(), ev); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	events := drainN(t, downstream, 1)
	if events[0].CRDT.Kind == model.BlockStarting || events[0].CRDT.Kind == model.BlockFinished {
		t.Fatalf("unexpected framing event %v when frames=false", events[0].CRDT.Kind)
	}
}

func TestScriptStageApplyThenUndoIsIdentity(t *testing.T) {
	s := newScriptStage([]string{testModule(t)}, false, nil)
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	downstream := s.out.Connect()

	block := sampleBlock()
	point := chain.NewPoint(1, []byte{1})
	if err := s.Execute(context.Background(), chain.Apply(point, chain.NewParsedBlockRecord(block))); err != nil {
		t.Fatalf("Execute apply: %v", err)
	}
	if err := s.Execute(context.Background(), chain.Undo(point, chain.NewParsedBlockRecord(block))); err != nil {
		t.Fatalf("Execute undo: %v", err)
	}

	events := drainN(t, downstream, 2)
	if events[0].CRDT.Delta+events[1].CRDT.Delta != 0 {
		t.Fatalf("apply+undo deltas = %d, %d, want net zero", events[0].CRDT.Delta, events[1].CRDT.Delta)
	}
}

func TestScriptStageResetEmitsNothing(t *testing.T) {
	s := newScriptStage([]string{testModule(t)}, true, nil)
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	s.out.Connect()

	if err := s.Execute(context.Background(), chain.Reset(chain.NewPoint(5, []byte{5}))); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestScriptStageRejectsEventWithoutParsedBlock(t *testing.T) {
	s := newScriptStage([]string{testModule(t)}, true, nil)
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	s.out.Connect()

	ev := chain.Apply(chain.NewPoint(1, []byte{1}), chain.NewRawBlockRecord([]byte{0xde, 0xad}))
	if err := s.Execute(context.Background(), ev); !stage.IsPanic(err) {
		t.Fatalf("expected a Panic-class error for a non-parsed-block record, got %v", err)
	}
}

func TestScriptStageBootstrapFailsOnBadModule(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir, "broken.js", `this is not valid javascript {{{`)

	s := newScriptStage([]string{path}, true, nil)
	err := s.Bootstrap(context.Background())
	if !stage.IsPanic(err) {
		t.Fatalf("expected a Panic-class error for an unparsable module, got %v", err)
	}
}
