package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for DecisionOutcome.
const (
	OutcomeAllow = "allow"
	OutcomeDeny  = "deny"
	OutcomeError = "error"
)

// Metrics provides observability for the decision module.
type Metrics struct {
	// Decision outcomes by outcome and action
	DecisionOutcome *prometheus.CounterVec

	// Engine failures by error category
	EngineErrors *prometheus.CounterVec

	// Overall evaluation latency, including failed calls
	EvaluateLatency prometheus.Histogram

	// Proxy forwards by result
	ProxyRequests *prometheus.CounterVec
}

// New creates a new Metrics instance with all decision module metrics
// registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DecisionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "opagate_decision_outcomes_total",
			Help: "Total decision outcomes by outcome and action",
		}, []string{"outcome", "action"}), // outcome: "allow", "deny", "error"

		EngineErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "opagate_decision_engine_errors_total",
			Help: "Policy engine failures by error category",
		}, []string{"category"}),

		EvaluateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "opagate_decision_evaluate_duration_seconds",
			Help:    "Duration of a decision call against the policy engine",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		ProxyRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "opagate_decision_proxy_requests_total",
			Help: "Decision proxy forwards by result",
		}, []string{"result"}), // result: "forwarded", "failed"
	}
}

// IncrementOutcome records a decision outcome.
func (m *Metrics) IncrementOutcome(outcome, action string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(outcome, action).Inc()
	}
}

// IncrementEngineError records a classified engine failure.
func (m *Metrics) IncrementEngineError(category string) {
	if m != nil {
		m.EngineErrors.WithLabelValues(category).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// IncrementProxy records one proxied request.
func (m *Metrics) IncrementProxy(result string) {
	if m != nil {
		m.ProxyRequests.WithLabelValues(result).Inc()
	}
}
