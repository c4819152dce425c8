package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the storage engine.
type Metrics struct {
	StoreOperations *prometheus.CounterVec
	StoreErrors     *prometheus.CounterVec
	EngineWrites    *prometheus.CounterVec
	EngineRows      *prometheus.CounterVec
	IngestRows      *prometheus.CounterVec
	WorkerResults   *prometheus.CounterVec
	ActionDuration  *prometheus.HistogramVec
	SweepFindings   prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "borevault_store_operations_total",
			Help: "Object store operations by backend and operation.",
		}, []string{"backend", "operation"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "borevault_store_errors_total",
			Help: "Object store operation failures by backend and operation.",
		}, []string{"backend", "operation"}),
		EngineWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "borevault_engine_writes_total",
			Help: "Columnar file writes by table.",
		}, []string{"table"}),
		EngineRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "borevault_engine_rows_total",
			Help: "Rows written per table.",
		}, []string{"table"}),
		IngestRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "borevault_ingest_rows_total",
			Help: "CSV ingest row outcomes.",
		}, []string{"outcome"}),
		WorkerResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "borevault_worker_results_total",
			Help: "Parse worker outcomes per upload.",
		}, []string{"status"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "borevault_action_duration_seconds",
			Help:    "Dispatcher action latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		SweepFindings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "borevault_sweep_findings_total",
			Help: "Integrity findings reported by the sweep.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.StoreOperations,
			m.StoreErrors,
			m.EngineWrites,
			m.EngineRows,
			m.IngestRows,
			m.WorkerResults,
			m.ActionDuration,
			m.SweepFindings,
		)
	}
	return m
}

// NopMetrics returns unregistered collectors for tests and CLI one-shots.
func NopMetrics() *Metrics {
	return NewMetrics(nil)
}
