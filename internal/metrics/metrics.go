// Package metrics exposes evaluation counters and histograms to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// EvaluationMetrics holds the collectors updated by the evaluator. A nil
// *EvaluationMetrics is valid and records nothing.
type EvaluationMetrics struct {
	CandidatesTotal *prometheus.CounterVec
	BatchesTotal    *prometheus.CounterVec
	BatchLatency    *prometheus.HistogramVec
	Fitness         *prometheus.HistogramVec
}

// New registers the evaluation collectors on reg.
func New(reg prometheus.Registerer) *EvaluationMetrics {
	factory := promauto.With(reg)
	return &EvaluationMetrics{
		CandidatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "morphofit_candidates_total",
				Help: "Candidates evaluated, by composer and outcome",
			},
			[]string{"composer", "status"},
		),
		BatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "morphofit_batches_total",
				Help: "Evaluation batches, by composer and outcome",
			},
			[]string{"composer", "status"},
		),
		BatchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "morphofit_batch_duration_seconds",
				Help:    "Wall time of one evaluation batch",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
			[]string{"composer"},
		),
		Fitness: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "morphofit_fitness",
				Help:    "Fitness of successfully evaluated candidates",
				Buckets: []float64{-2, -1, -0.5, 0, 0.25, 0.5, 0.75, 1, 1.5, 2, 4, 8},
			},
			[]string{"composer"},
		),
	}
}

func (m *EvaluationMetrics) ObserveCandidate(composer string, fitness float64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.CandidatesTotal.WithLabelValues(composer, StatusFailed).Inc()
		return
	}
	m.CandidatesTotal.WithLabelValues(composer, StatusOK).Inc()
	m.Fitness.WithLabelValues(composer).Observe(fitness)
}

func (m *EvaluationMetrics) ObserveBatch(composer string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusFailed
	}
	m.BatchesTotal.WithLabelValues(composer, status).Inc()
	m.BatchLatency.WithLabelValues(composer).Observe(elapsed.Seconds())
}
