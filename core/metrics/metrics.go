// Package metrics provides Prometheus metrics collection for schema validation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/conform/core/validation"
)

// Collector holds all Prometheus metrics for the validation engine. It
// implements validation.Observer, so it can be handed to an engine through
// the WithObserver option.
type Collector struct {
	// Validation metrics
	Validations *prometheus.CounterVec
	Diagnostics prometheus.Counter
	Duration    prometheus.Histogram

	// Registry metrics
	SchemaReloads prometheus.Counter
	SchemasLoaded prometheus.Gauge
}

var _ validation.Observer = (*Collector)(nil)

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		// Validation metrics
		Validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "conform",
				Name:      "validations_total",
				Help:      "Total number of validation runs by outcome",
			},
			[]string{"outcome"},
		),
		Diagnostics: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "conform",
				Name:      "diagnostics_total",
				Help:      "Total number of diagnostics reported across all runs",
			},
		),
		Duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "conform",
				Name:      "validation_duration_seconds",
				Help:      "Validation run duration in seconds",
				Buckets:   []float64{.000001, .00001, .0001, .001, .01, .1, 1},
			},
		),

		// Registry metrics
		SchemaReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "conform",
				Name:      "schema_reloads_total",
				Help:      "Total number of successful schema reloads",
			},
		),
		SchemasLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "conform",
				Name:      "schemas_loaded",
				Help:      "Number of schemas currently registered",
			},
		),
	}
}

// ObserveValidation records the outcome, diagnostic count and duration of
// one validation run.
func (c *Collector) ObserveValidation(outcome validation.Outcome, diagnostics int, elapsed time.Duration) {
	c.Validations.WithLabelValues(string(outcome)).Inc()
	c.Diagnostics.Add(float64(diagnostics))
	c.Duration.Observe(elapsed.Seconds())
}
