package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the health aggregator.
type Metrics struct {
	// 1 when the service was healthy on the last poll, 0 otherwise
	ServiceUp *prometheus.GaugeVec

	// Probe latency by service
	ProbeLatency *prometheus.HistogramVec

	// Polls by overall status
	Polls *prometheus.CounterVec
}

// New creates a new Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ServiceUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "opagate_health_service_up",
			Help: "Whether the dependent service was healthy on the last probe",
		}, []string{"service"}), // service: "opa", "opal"

		ProbeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opagate_health_probe_duration_seconds",
			Help:    "Duration of health probes by service",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3},
		}, []string{"service"}),

		Polls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "opagate_health_polls_total",
			Help: "Health polls by derived overall status",
		}, []string{"overall"}),
	}
}

// ObserveProbe records one probe result.
func (m *Metrics) ObserveProbe(service string, healthy bool, d time.Duration) {
	if m == nil {
		return
	}
	up := 0.0
	if healthy {
		up = 1
	}
	m.ServiceUp.WithLabelValues(service).Set(up)
	m.ProbeLatency.WithLabelValues(service).Observe(d.Seconds())
}

// IncrementPoll records one completed poll.
func (m *Metrics) IncrementPoll(overall string) {
	if m != nil {
		m.Polls.WithLabelValues(overall).Inc()
	}
}
