package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"scrolls/chain"
	"scrolls/config"
	"scrolls/cursor"
	"scrolls/metrics"
	"scrolls/model"
	"scrolls/reduce"
	"scrolls/reduce/native"
	"scrolls/reduce/script"
	"scrolls/source"
	"scrolls/stage"
	"scrolls/storage/postgres"
	"scrolls/storage/redis"
)

const metricsShutdownTimeout = 5 * time.Second

func daemonCmd() *cobra.Command {
	var configPath, console string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "run the chain-indexer pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), configPath, console)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "explicit path to daemon.toml")
	cmd.Flags().StringVar(&console, "console", "plain", "log encoding: plain|json|none")
	return cmd
}

func newLogger(console string) *logrus.Logger {
	log := logrus.New()
	switch console {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "none":
		log.SetOutput(io.Discard)
	default:
		log.SetFormatter(&logrus.TextFormatter{})
	}
	return log
}

// reducerBootstrapper is the shape native.Bootstrapper and
// script.Bootstrapper share, so the daemon wires either reduce variant
// identically once it has decided which one a "[[reducers]]" entry names.
type reducerBootstrapper interface {
	ConnectInput(*stage.InputPort[chain.ChainEvent])
	ConnectOutput() *stage.InputPort[model.StorageEvent]
	Spawn(ctx context.Context, policy stage.Policy) *stage.Tether
}

// storageBootstrapper is the shape redis.Bootstrapper and
// postgres.Bootstrapper share.
type storageBootstrapper interface {
	ConnectInput(*stage.InputPort[model.StorageEvent])
	ConnectMetrics(metrics.Sink)
	ConnectCursor(*cursor.Cursor)
	Spawn(ctx context.Context, policy stage.Policy) *stage.Tether
}

// runDaemon loads configuration, wires every stage per spec.md §4-§6, and
// blocks until the pipeline finalizes or a fatal stage panic ends it.
func runDaemon(parent context.Context, configPath, console string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(console)
	entry := logrus.NewEntry(log)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	metricsSrv := metrics.Serve(cfg.MetricsAddr, reg, entry.WithField("component", "metrics"))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = metrics.Shutdown(shutdownCtx, metricsSrv)
	}()

	policy := cfg.Retries.Policy()
	supervisor := stage.NewSupervisor(entry.WithField("component", "supervisor"))

	sourceBootstrapper, err := source.NewBootstrapper(cfg.Source, nil, entry)
	if err != nil {
		return fmt.Errorf("wire source: %w", err)
	}

	reducers, err := wireReducers(cfg, sourceBootstrapper, entry)
	if err != nil {
		return fmt.Errorf("wire reducers: %w", err)
	}

	storageStage, err := wireStorage(cfg, reducers, reg, entry)
	if err != nil {
		return fmt.Errorf("wire storage: %w", err)
	}

	supervisor.Track(sourceBootstrapper.Spawn(ctx, policy))
	for _, rb := range reducers {
		supervisor.Track(rb.Spawn(ctx, policy))
	}
	supervisor.Track(storageStage.Spawn(ctx, policy))

	if err := supervisor.Run(ctx); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

// wireReducers builds one Bootstrapper per configured "[[reducers]]"
// entry, resolving each instance's framing responsibility from
// "[reduce] framing_policy" (SPEC_FULL §9) and subscribing it to the
// source stage's broadcast output.
func wireReducers(cfg *config.Root, src *source.Bootstrapper, log *logrus.Entry) ([]reducerBootstrapper, error) {
	policy := cfg.Reduce.Resolve()
	out := make([]reducerBootstrapper, 0, len(cfg.Reducers))
	for i, rc := range cfg.Reducers {
		frames := framesFor(policy, i)
		var rb reducerBootstrapper
		switch rc.Type {
		case "Native":
			b, err := native.NewBootstrapper(rc, frames, log)
			if err != nil {
				return nil, err
			}
			rb = b
		case "Script":
			b, err := script.NewBootstrapper(rc, frames, log)
			if err != nil {
				return nil, err
			}
			rb = b
		default:
			return nil, fmt.Errorf("reduce stage %d: unsupported type %q", i, rc.Type)
		}
		rb.ConnectInput(src.ConnectOutput())
		out = append(out, rb)
	}
	return out, nil
}

// framesFor decides whether the reduce stage at index should emit the
// BlockStarting/BlockFinished framing markers: under single_framer only
// the first configured reducer does; under merge every reducer does.
func framesFor(policy reduce.FramingPolicy, index int) bool {
	if policy == reduce.FramingMerge {
		return true
	}
	return index == 0
}

// wireStorage fans every reducer's output into the single configured
// storage backend (stage.Merge handles the common case of exactly one
// reducer as a one-element merge).
func wireStorage(cfg *config.Root, reducers []reducerBootstrapper, reg *metrics.Registry, log *logrus.Entry) (storageBootstrapper, error) {
	ins := make([]*stage.InputPort[model.StorageEvent], 0, len(reducers))
	for _, rb := range reducers {
		ins = append(ins, rb.ConnectOutput())
	}
	merged := stage.Merge(ins...)
	cur := cursor.New(0)

	switch cfg.Storage.Type {
	case "Redis":
		if cfg.Storage.Redis == nil {
			return nil, fmt.Errorf("storage: missing [storage.redis] configuration")
		}
		b := redis.NewBootstrapper(*cfg.Storage.Redis, nil, log)
		b.ConnectInput(merged)
		b.ConnectMetrics(reg)
		b.ConnectCursor(cur)
		return b, nil
	case "Postgres":
		if cfg.Storage.Postgres == nil {
			return nil, fmt.Errorf("storage: missing [storage.postgres] configuration")
		}
		b := postgres.NewBootstrapper(*cfg.Storage.Postgres, nil, log)
		b.ConnectInput(merged)
		b.ConnectMetrics(reg)
		b.ConnectCursor(cur)
		return b, nil
	default:
		return nil, fmt.Errorf("storage: unsupported type %q", cfg.Storage.Type)
	}
}
