// Package metrics exposes live run gauges over Prometheus, following
// the same promauto-registered-gauge pattern the teacher uses for its
// satellite battery-level metric.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the run-level gauges beyond the power subsystem's own
// (which register themselves via power.Subsystem.WithMetrics).
type Metrics struct {
	registry      *prometheus.Registry
	JobsActive    prometheus.Gauge
	JobsDefective prometheus.Gauge
	JobsComplete  prometheus.Gauge
	TelemetryRows prometheus.Gauge
	CurrentTick   prometheus.Gauge
}

// New creates a fresh registry and registers the run-level gauges.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		JobsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forgesim_jobs_active",
			Help: "Number of jobs currently in progress across all stages.",
		}),
		JobsDefective: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forgesim_jobs_defective",
			Help: "Number of jobs that have been marked defective.",
		}),
		JobsComplete: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forgesim_jobs_complete",
			Help: "Number of jobs that have reached the end of the pipeline.",
		}),
		TelemetryRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forgesim_telemetry_rows_total",
			Help: "Total telemetry rows written so far.",
		}),
		CurrentTick: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forgesim_current_tick",
			Help: "The simulation tick currently being processed.",
		}),
	}
}

// Registry exposes the underlying registry so the power subsystem can
// register its own gauges into the same namespace.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve starts an HTTP server exposing /metrics on addr and returns it
// so the caller can Shutdown it. A blank addr disables serving
// entirely (nil is returned).
func Serve(addr string, reg *prometheus.Registry) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}

// Shutdown gracefully stops srv if non-nil.
func Shutdown(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
