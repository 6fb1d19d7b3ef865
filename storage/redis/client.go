package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// txPipe is the subset of a Redis transaction pipeline the CRDT command
// algebra needs. Commands queue locally and take effect only when Exec
// succeeds, giving BlockStarting..BlockFinished its atomic MULTI/EXEC
// envelope (original_source/src/storage/redis.rs).
type txPipe interface {
	SAdd(ctx context.Context, key string, member any)
	SRem(ctx context.Context, key string, member any)
	ZAdd(ctx context.Context, key string, score float64, member any)
	ZIncrBy(ctx context.Context, key string, increment float64, member string)
	ZRemRangeByScore(ctx context.Context, key string)
	Set(ctx context.Context, key string, value any)
	IncrBy(ctx context.Context, key string, delta int64)
	HSet(ctx context.Context, key, field string, value any)
	HIncrBy(ctx context.Context, key, field string, delta int64)
	HDel(ctx context.Context, key, field string)
	Exec(ctx context.Context) error
}

// conn is the subset of a pooled Redis connection the stage dials at
// bootstrap.
type conn interface {
	newTx() txPipe
	ping(ctx context.Context) error
	close() error
}

// goRedisConn adapts a *goredis.Client to conn.
type goRedisConn struct {
	client *goredis.Client
}

func dial(ctx context.Context, cfg Config) (conn, error) {
	c := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return &goRedisConn{client: c}, nil
}

func (c *goRedisConn) newTx() txPipe      { return &goRedisTx{pipe: c.client.TxPipeline()} }
func (c *goRedisConn) ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }
func (c *goRedisConn) close() error       { return c.client.Close() }

// goRedisTx adapts a goredis.Pipeliner to txPipe.
type goRedisTx struct {
	pipe goredis.Pipeliner
}

func (t *goRedisTx) SAdd(ctx context.Context, key string, member any) {
	t.pipe.SAdd(ctx, key, member)
}

func (t *goRedisTx) SRem(ctx context.Context, key string, member any) {
	t.pipe.SRem(ctx, key, member)
}

func (t *goRedisTx) ZAdd(ctx context.Context, key string, score float64, member any) {
	t.pipe.ZAdd(ctx, key, goredis.Z{Score: score, Member: member})
}

func (t *goRedisTx) ZIncrBy(ctx context.Context, key string, increment float64, member string) {
	t.pipe.ZIncrBy(ctx, key, increment, member)
}

func (t *goRedisTx) ZRemRangeByScore(ctx context.Context, key string) {
	t.pipe.ZRemRangeByScore(ctx, key, "0", "0")
}

func (t *goRedisTx) Set(ctx context.Context, key string, value any) {
	t.pipe.Set(ctx, key, value, 0)
}

func (t *goRedisTx) IncrBy(ctx context.Context, key string, delta int64) {
	t.pipe.IncrBy(ctx, key, delta)
}

func (t *goRedisTx) HSet(ctx context.Context, key, field string, value any) {
	t.pipe.HSet(ctx, key, field, value)
}

func (t *goRedisTx) HIncrBy(ctx context.Context, key, field string, delta int64) {
	t.pipe.HIncrBy(ctx, key, field, delta)
}

func (t *goRedisTx) HDel(ctx context.Context, key, field string) {
	t.pipe.HDel(ctx, key, field)
}

func (t *goRedisTx) Exec(ctx context.Context) error {
	_, err := t.pipe.Exec(ctx)
	return err
}
