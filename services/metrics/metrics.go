// Package metrics exposes the wizard activity to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aspirecraft/enrolment/core"
	"github.com/aspirecraft/enrolment/core/enrolment"
)

// submission outcomes
const (
	OutcomeSent          = "sent"
	OutcomeInvalid       = "invalid"
	OutcomeConfiguration = "configuration"
	OutcomeDispatch      = "dispatch"
	OutcomeError         = "error"
)

// Metrics provides observability for the enrolment wizard.
type Metrics struct {
	// Step transitions by origin and destination step
	StepTransitions *prometheus.CounterVec

	// Rejected Next clicks by step
	ValidationFailures *prometheus.CounterVec

	// Submissions by outcome
	Submissions *prometheus.CounterVec

	SubmitLatency prometheus.Histogram

	SessionsActive prometheus.Gauge
}

var _ enrolment.Recorder = (*Metrics)(nil)

// New registers every wizard metric with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrolment_step_transitions_total",
			Help: "Total wizard step transitions by origin and destination",
		}, []string{"from", "to"}),

		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrolment_validation_failures_total",
			Help: "Total rejected step submissions by step",
		}, []string{"step"}),

		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrolment_submissions_total",
			Help: "Total submissions by outcome",
		}, []string{"outcome"}),

		SubmitLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrolment_submit_duration_seconds",
			Help:    "Duration of a submission including document rendering and email dispatch",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "enrolment_sessions_active",
			Help: "Number of wizard sessions currently held in memory",
		}),
	}
}

func (m *Metrics) StepChanged(from, to enrolment.Step) {
	if m != nil {
		m.StepTransitions.WithLabelValues(stepLabel(from), stepLabel(to)).Inc()
	}
}

func (m *Metrics) ValidationFailed(step enrolment.Step, _ int) {
	if m != nil {
		m.ValidationFailures.WithLabelValues(stepLabel(step)).Inc()
	}
}

func (m *Metrics) SubmissionFinished(err error, took time.Duration) {
	if m != nil {
		m.Submissions.WithLabelValues(Outcome(err)).Inc()
		m.SubmitLatency.Observe(took.Seconds())
	}
}

// SessionsChanged adjusts the active sessions gauge by delta.
func (m *Metrics) SessionsChanged(delta int) {
	if m != nil {
		m.SessionsActive.Add(float64(delta))
	}
}

// Outcome classifies a submission error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSent
	case core.IsConfigurationError(err):
		return OutcomeConfiguration
	case core.IsDispatchError(err):
		return OutcomeDispatch
	}
	if _, ok := core.AsValidationError(err); ok {
		return OutcomeInvalid
	}
	return OutcomeError
}

func stepLabel(s enrolment.Step) string {
	return strconv.Itoa(int(s))
}
