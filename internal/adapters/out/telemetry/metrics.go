// Package telemetry exposes orchestrator metrics in the Prometheus format.
package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bnema/proxy-manager/internal/boundaries/out"
	"github.com/bnema/proxy-manager/internal/domain"
)

// Result label values.
const (
	ResultOK           = "ok"
	ResultPrecondition = "precondition"
	ResultConfig       = "config"
	ResultRuntime      = "runtime"
	ResultError        = "error"
)

// Metrics holds the proxy-manager instruments.
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

var _ out.OperationRecorder = (*Metrics)(nil)

// NewMetrics registers every instrument on a fresh registry together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_manager_operations_total",
				Help: "Total number of orchestrator operations by result",
			},
			[]string{"operation", "result"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "proxy_manager_operation_duration_seconds",
				Help:    "Orchestrator operation duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
	}
}

// Registry returns the registry backing the instruments.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe implements out.OperationRecorder.
func (m *Metrics) Observe(operation string, err error, elapsed time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, Result(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Result classifies err into a result label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, domain.ErrPrecondition):
		return ResultPrecondition
	case errors.Is(err, domain.ErrConfig):
		return ResultConfig
	case errors.Is(err, domain.ErrRuntime):
		return ResultRuntime
	default:
		return ResultError
	}
}
