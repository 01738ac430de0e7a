// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is a
// valid no-op receiver so tests can skip registration.
type Metrics struct {
	itemsCollected       *prometheus.CounterVec
	itemsSkipped         *prometheus.CounterVec
	predictionsExtracted *prometheus.CounterVec
	unitsProcessed       *prometheus.CounterVec
	jobsFinished         *prometheus.CounterVec
	outcomesGraded       *prometheus.CounterVec
}

// New registers the pipeline collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		itemsCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_items_collected_total",
			Help: "Content items collected, by source.",
		}, []string{"source"}),
		itemsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_items_skipped_total",
			Help: "Content items skipped, by reason.",
		}, []string{"reason"}),
		predictionsExtracted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_predictions_extracted_total",
			Help: "Predictions extracted and stored, by source.",
		}, []string{"source"}),
		unitsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_units_processed_total",
			Help: "Forecaster/channel units processed, by status.",
		}, []string{"status"}),
		jobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_jobs_finished_total",
			Help: "Extraction jobs finished, by terminal status.",
		}, []string{"status"}),
		outcomesGraded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_outcomes_graded_total",
			Help: "Predictions graded by the outcome validator, by result.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ItemsCollected(source string, n int) {
	if m == nil {
		return
	}
	m.itemsCollected.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) ItemSkipped(reason string) {
	if m == nil {
		return
	}
	m.itemsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) PredictionsExtracted(source string, n int) {
	if m == nil {
		return
	}
	m.predictionsExtracted.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) UnitProcessed(status string) {
	if m == nil {
		return
	}
	m.unitsProcessed.WithLabelValues(status).Inc()
}

func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(status).Inc()
}

func (m *Metrics) OutcomeGraded(outcome string) {
	if m == nil {
		return
	}
	m.outcomesGraded.WithLabelValues(outcome).Inc()
}
