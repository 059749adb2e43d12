// Package metrics exports cron job runs as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"explainx/internal/cron"
)

// JobMetrics is a cron.RunObserver backed by Prometheus collectors.
type JobMetrics struct {
	runs     *prometheus.CounterVec
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	active   *prometheus.GaugeVec
}

var _ cron.RunObserver = (*JobMetrics)(nil)

// NewJobMetrics registers the job collectors on reg.
func NewJobMetrics(reg prometheus.Registerer) (*JobMetrics, error) {
	m := &JobMetrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cron_job_runs_total",
				Help: "Total number of cron job runs by final outcome.",
			},
			[]string{"job", "outcome"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cron_job_attempts_total",
				Help: "Total number of operation attempts made by cron jobs.",
			},
			[]string{"job"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "cron_job_run_duration_seconds",
				Help: "Wall time of cron job runs, retry delays included.",
				// Runs with retries span several 5 minute delays.
				Buckets: []float64{1, 5, 15, 60, 300, 600, 900, 1800, 3600},
			},
			[]string{"job"},
		),
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cron_job_active_runs",
				Help: "Number of cron job runs currently in progress.",
			},
			[]string{"job"},
		),
	}

	for _, c := range []prometheus.Collector{m.runs, m.attempts, m.duration, m.active} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *JobMetrics) RunStarted(_ context.Context, rec cron.RunRecord) {
	if rec.Outcome == cron.OutcomeSkipped {
		return
	}
	m.active.WithLabelValues(rec.Job).Inc()
}

func (m *JobMetrics) RunFinished(_ context.Context, rec cron.RunRecord) {
	m.runs.WithLabelValues(rec.Job, string(rec.Outcome)).Inc()
	if rec.Outcome == cron.OutcomeSkipped {
		return
	}
	m.active.WithLabelValues(rec.Job).Dec()
	m.attempts.WithLabelValues(rec.Job).Add(float64(rec.Attempts))
	m.duration.WithLabelValues(rec.Job).Observe(rec.Duration().Seconds())
}
