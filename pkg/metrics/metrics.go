// Package metrics provides Prometheus instrumentation for the workflow engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragrouter_runs_total",
			Help: "Total number of workflow runs by terminal kind",
		},
		[]string{"terminal"},
	)

	runDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragrouter_run_duration_seconds",
			Help:    "Workflow run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	runIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragrouter_run_iterations",
			Help:    "Counted supervisor iterations per run",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	stageExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragrouter_stage_executions_total",
			Help: "Total number of stage executions",
		},
		[]string{"stage", "outcome"}, // outcome: continue, terminate, fail
	)

	stageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragrouter_stage_duration_seconds",
			Help:    "Stage execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)
)

// RecordRun records a completed workflow run.
func RecordRun(terminal string, iterations int, duration time.Duration) {
	runsTotal.WithLabelValues(terminal).Inc()
	runDurationSeconds.Observe(duration.Seconds())
	runIterations.Observe(float64(iterations))
}

// RecordStage records one stage execution.
func RecordStage(stage, outcome string, duration time.Duration) {
	stageExecutionsTotal.WithLabelValues(stage, outcome).Inc()
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}
