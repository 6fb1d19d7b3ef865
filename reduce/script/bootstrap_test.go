package script

import (
	"context"
	"testing"

	"scrolls/chain"
	"scrolls/reduce"
	"scrolls/stage"
)

func TestNewBootstrapperRejectsWrongType(t *testing.T) {
	_, err := NewBootstrapper(reduce.Config{Type: "Native"}, true, nil)
	if err == nil {
		t.Fatalf("expected an error for a non-Script config")
	}
}

func TestNewBootstrapperRejectsEmptyModuleList(t *testing.T) {
	cfg := reduce.Config{Type: "Script", Script: &reduce.ScriptConfig{}}
	_, err := NewBootstrapper(cfg, true, nil)
	if err == nil {
		t.Fatalf("expected an error when no modules are configured")
	}
}

func TestBootstrapperSpawnPanicsWithoutConnectInput(t *testing.T) {
	cfg := reduce.Config{Type: "Script", Script: &reduce.ScriptConfig{Modules: []string{testModule(t)}}}
	b, err := NewBootstrapper(cfg, true, nil)
	if err != nil {
		t.Fatalf("NewBootstrapper: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Spawn to panic without a connected input")
		}
	}()
	b.Spawn(context.Background(), stage.DefaultPolicy())
}

func TestBootstrapperWiresInputAndOutput(t *testing.T) {
	cfg := reduce.Config{Type: "Script", Script: &reduce.ScriptConfig{Modules: []string{testModule(t)}}}
	b, err := NewBootstrapper(cfg, true, nil)
	if err != nil {
		t.Fatalf("NewBootstrapper: %v", err)
	}

	in := stage.NewUnconnectedInputPort[chain.ChainEvent]()
	b.ConnectInput(in)
	out := b.ConnectOutput()
	if out == nil {
		t.Fatalf("expected a non-nil output InputPort")
	}

	tether := b.Spawn(context.Background(), stage.DefaultPolicy())
	tether.DismissStage()
	<-tether.Done()
}
