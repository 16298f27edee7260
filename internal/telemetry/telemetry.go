// Package telemetry records metrics of case runs.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Case results.
const (
	ResultPass  = "pass"
	ResultFail  = "fail"
	ResultError = "error"
)

// Metrics holds the collectors of one run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	cases    *prometheus.CounterVec
	steps    prometheus.Histogram
	duration prometheus.Histogram
	marks    prometheus.Counter
}

// New registers a fresh set of collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// cases counts case runs by outcome.
		// Labels: result (pass, fail, error)
		cases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regmark",
			Name:      "cases_total",
			Help:      "Total regression cases run, by result",
		}, []string{"result"}),

		steps: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "regmark",
			Name:      "match_steps",
			Help:      "Machine steps per match attempt",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "regmark",
			Name:      "match_duration_seconds",
			Help:      "Wall time per match attempt in seconds",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 7),
		}),

		marks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "regmark",
			Name:      "marks_set_total",
			Help:      "Total mark bits set across match attempts",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAttempt records one match attempt.
func (m *Metrics) ObserveAttempt(steps int, marks uint, d time.Duration) {
	m.steps.Observe(float64(steps))
	m.duration.Observe(d.Seconds())
	m.marks.Add(float64(marks))
}

// CaseDone counts a finished case with the given result.
func (m *Metrics) CaseDone(result string) {
	m.cases.WithLabelValues(result).Inc()
}

// WriteFile writes the current values in the Prometheus text format.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
