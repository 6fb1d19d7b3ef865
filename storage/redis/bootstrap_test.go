package redis

import (
	"context"
	"testing"

	"scrolls/cursor"
	"scrolls/model"
	"scrolls/stage"
)

func TestBootstrapperSpawnPanicsWithoutConnectInput(t *testing.T) {
	b := NewBootstrapper(Config{Addr: "localhost:6379"}, func(ctx context.Context, cfg Config) (conn, error) {
		return &fakeConn{}, nil
	}, nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Spawn to panic without a connected input")
		}
	}()
	b.Spawn(context.Background(), stage.DefaultPolicy())
}

func TestBootstrapperWiresInput(t *testing.T) {
	b := NewBootstrapper(Config{Addr: "localhost:6379"}, func(ctx context.Context, cfg Config) (conn, error) {
		return &fakeConn{}, nil
	}, nil)

	in := stage.NewUnconnectedInputPort[model.StorageEvent]()
	b.ConnectInput(in)

	tether := b.Spawn(context.Background(), stage.DefaultPolicy())
	tether.DismissStage()
	<-tether.Done()
}

func TestBootstrapperConnectCursorWiresStageField(t *testing.T) {
	b := NewBootstrapper(Config{Addr: "localhost:6379"}, func(ctx context.Context, cfg Config) (conn, error) {
		return &fakeConn{}, nil
	}, nil)
	cur := cursor.New(0)
	b.ConnectCursor(cur)
	if b.stage.cursor != cur {
		t.Fatalf("expected ConnectCursor to set the stage's cursor field")
	}
}
