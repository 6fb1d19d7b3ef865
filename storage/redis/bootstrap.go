package redis

import (
	"context"

	"github.com/sirupsen/logrus"

	"scrolls/cursor"
	"scrolls/metrics"
	"scrolls/model"
	"scrolls/stage"
)

// Bootstrapper wires a Redis storage Config into a spawnable redisStage.
type Bootstrapper struct {
	stage *redisStage
	in    *stage.InputPort[model.StorageEvent]
}

// NewBootstrapper constructs a Bootstrapper for cfg. dial is overridable
// for tests; nil selects the real go-redis client.
func NewBootstrapper(cfg Config, dial dialFunc, log *logrus.Entry) *Bootstrapper {
	return &Bootstrapper{stage: newRedisStage(cfg, dial, log)}
}

// ConnectInput stores the InputPort handed back by an upstream reduce
// stage's ConnectOutput.
func (b *Bootstrapper) ConnectInput(in *stage.InputPort[model.StorageEvent]) {
	b.in = in
}

// ConnectMetrics wires a metrics sink the stage publishes ops_count and
// latest_block to. Optional; a stage with no sink connected simply skips
// publishing.
func (b *Bootstrapper) ConnectMetrics(sink metrics.Sink) {
	b.stage.sink = sink
}

// ConnectCursor wires a shared cursor.Cursor that is appended to with
// every block's point as it finishes committing, per §3.6. Optional; a
// stage with no cursor connected simply skips appending.
func (b *Bootstrapper) ConnectCursor(c *cursor.Cursor) {
	b.stage.cursor = c
}

// Spawn launches the stage. It panics if ConnectInput was never called.
func (b *Bootstrapper) Spawn(ctx context.Context, policy stage.Policy) *stage.Tether {
	if b.in == nil {
		panic("storage-redis: Spawn called before ConnectInput")
	}
	b.stage.in = b.in
	return stage.Spawn(ctx, "storage-redis", b.stage, policy)
}
