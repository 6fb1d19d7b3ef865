// Package metrics exposes the per-stage ops_count/latest_block metrics
// named in spec.md §6 over a Prometheus registry, grounded on the
// teacher's core/system_health_logging.go HealthLogger.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Sink is the narrow interface a storage stage uses to publish its
// metrics, so storage packages depend on this small interface rather than
// the concrete Registry (and so tests can inject a no-op or recording
// fake without pulling in Prometheus).
type Sink interface {
	IncOps(stageName string)
	SetLatestBlock(stageName string, slot uint64)
}

// Registry is a Prometheus-backed Sink: one counter and one gauge, each
// labelled by stage name, shared across every configured stage (spec.md
// §6: "ops_count: counter, latest_block: gauge per stage").
type Registry struct {
	reg         *prometheus.Registry
	opsCount    *prometheus.CounterVec
	latestBlock *prometheus.GaugeVec
}

// NewRegistry builds and registers the metric families.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	opsCount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scrolls_stage_ops_total",
		Help: "Total number of commands committed by a stage.",
	}, []string{"stage"})

	latestBlock := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scrolls_stage_latest_block",
		Help: "Slot number of the last block a stage finished processing.",
	}, []string{"stage"})

	reg.MustRegister(opsCount, latestBlock)

	return &Registry{reg: reg, opsCount: opsCount, latestBlock: latestBlock}
}

// IncOps increments stageName's ops_count by one.
func (r *Registry) IncOps(stageName string) {
	r.opsCount.WithLabelValues(stageName).Inc()
}

// SetLatestBlock sets stageName's latest_block gauge.
func (r *Registry) SetLatestBlock(stageName string, slot uint64) {
	r.latestBlock.WithLabelValues(stageName).Set(float64(slot))
}

// Handler returns the HTTP handler serving this registry's metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on addr. Errors other
// than a graceful shutdown are logged rather than propagated, mirroring
// the teacher's StartMetricsServer/LogEvent pairing.
func Serve(addr string, r *Registry, log *logrus.Entry) *http.Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	return srv
}

// Shutdown gracefully stops srv.
func Shutdown(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
