package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// dbConn is one checked-out connection, held for the lifetime of a
// BEGIN..COMMIT run so every statement in a block executes against the
// same session.
type dbConn interface {
	exec(ctx context.Context, sql string) error
	release()
}

// dbPool dials and hands out dbConns.
type dbPool interface {
	acquire(ctx context.Context) (dbConn, error)
	close()
}

type pgxPool struct {
	pool *pgxpool.Pool
}

func dial(ctx context.Context, cfg Config) (dbPool, error) {
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &pgxPool{pool: pool}, nil
}

func (p *pgxPool) acquire(ctx context.Context) (dbConn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire postgres connection: %w", err)
	}
	return &pgxConn{conn: conn}, nil
}

func (p *pgxPool) close() { p.pool.Close() }

type pgxConn struct {
	conn *pgxpool.Conn
}

func (c *pgxConn) exec(ctx context.Context, sql string) error {
	_, err := c.conn.Exec(ctx, sql)
	return err
}

func (c *pgxConn) release() { c.conn.Release() }
