// Package metrics provides centralized Prometheus metrics registry for the simulator.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "podium"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Simulation metrics
var (
	SimulationRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulation_runs_total",
		Help:      "Total number of simulation runs by score mode and status",
	}, []string{"mode", "status"})
	SimulationTrialsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulation_trials_total",
		Help:      "Total number of completed simulation trials",
	})
	SimulationFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulation_fallbacks_total",
		Help:      "Total number of trials that needed the numeric fallback policy",
	})
	SimulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "simulation_duration_seconds",
		Help:      "Duration of simulation runs in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(SimulationRunsTotal)
		registry.MustRegister(SimulationTrialsTotal)
		registry.MustRegister(SimulationFallbacksTotal)
		registry.MustRegister(SimulationDuration)

		registry.MustRegister(ResultCacheHitsTotal)
		registry.MustRegister(ResultCacheMissesTotal)
		registry.MustRegister(RankerRequestsTotal)
		registry.MustRegister(SchedulerJobsTotal)
		registry.MustRegister(HTTPRequestsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordSimulationRun records the outcome of one simulation run.
func RecordSimulationRun(mode, status string, trials int, fallbacks int64, duration time.Duration) {
	SimulationRunsTotal.WithLabelValues(mode, status).Inc()
	if status != "success" {
		return
	}
	SimulationTrialsTotal.Add(float64(trials))
	SimulationFallbacksTotal.Add(float64(fallbacks))
	SimulationDuration.Observe(duration.Seconds())
}

// SimulationRecorder forwards engine measurements to the global registry.
type SimulationRecorder struct{}

// NewSimulationRecorder creates a recorder bound to the global registry.
func NewSimulationRecorder() *SimulationRecorder {
	InitRegistry()
	return &SimulationRecorder{}
}

// RecordSimulationRun implements simulation.Recorder.
func (SimulationRecorder) RecordSimulationRun(mode, status string, trials int, fallbacks int64, duration time.Duration) {
	RecordSimulationRun(mode, status, trials, fallbacks, duration)
}
