// Package metrics exposes Prometheus collectors for spot evaluations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeRated   = "rated"
	OutcomePending = "pending"
	OutcomeError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	stageErrorsTotal   *prometheus.CounterVec
	skateabilityScore  prometheus.Histogram
	confidence         prometheus.Histogram
	eventsFailedTotal  prometheus.Counter
}

// New creates the evaluation collectors and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skatespot_evaluations_total",
			Help: "Total number of spot evaluations by outcome",
		},
		[]string{"outcome"}, // rated, pending, error
	)

	m.evaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "skatespot_evaluation_duration_seconds",
			Help: "Time taken to evaluate a spot end to end",
			// 50ms to ~25s, dominated by the media download and the vision call
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"outcome"},
	)

	m.stageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skatespot_stage_errors_total",
			Help: "Total number of evaluation failures by pipeline stage",
		},
		[]string{"stage"}, // media_lookup, media_fetch, vision, store
	)

	m.skateabilityScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skatespot_skateability_score",
		Help:    "Distribution of stored skateability scores",
		Buckets: prometheus.LinearBuckets(0.5, 0.5, 10),
	})

	m.confidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skatespot_rating_confidence",
		Help:    "Distribution of stored rating confidence",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})

	m.eventsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skatespot_rating_events_failed_total",
		Help: "Total number of rating events that could not be published",
	})
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.evaluationsTotal.Describe(ch)
	m.evaluationDuration.Describe(ch)
	m.stageErrorsTotal.Describe(ch)
	m.skateabilityScore.Describe(ch)
	m.confidence.Describe(ch)
	m.eventsFailedTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.evaluationsTotal.Collect(ch)
	m.evaluationDuration.Collect(ch)
	m.stageErrorsTotal.Collect(ch)
	m.skateabilityScore.Collect(ch)
	m.confidence.Collect(ch)
	m.eventsFailedTotal.Collect(ch)
}

func (m *Metrics) ObserveEvaluation(outcome string, d time.Duration) {
	m.evaluationsTotal.WithLabelValues(outcome).Inc()
	m.evaluationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveStageError(stage string) {
	m.stageErrorsTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveRating(skateability, confidence float64) {
	m.skateabilityScore.Observe(skateability)
	m.confidence.Observe(confidence)
}

func (m *Metrics) ObserveEventFailure() {
	m.eventsFailedTotal.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
