package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Source is the debug log being observed.
type Source interface {
	Len() int
	Evicted() int64
}

// Metrics exposes debug log occupancy. Values are read from the log at
// scrape time.
type Metrics struct {
	// Entries currently retained
	Entries prometheus.GaugeFunc

	// Entries dropped to stay within capacity
	Evicted prometheus.CounterFunc
}

// New registers the debug log metrics for src on reg.
func New(reg prometheus.Registerer, src Source) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Entries: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "opagate_debug_log_entries",
			Help: "Decision debug entries currently retained",
		}, func() float64 { return float64(src.Len()) }),

		Evicted: factory.NewCounterFunc(prometheus.CounterOpts{
			Name: "opagate_debug_log_evicted_total",
			Help: "Decision debug entries evicted to stay within capacity",
		}, func() float64 { return float64(src.Evicted()) }),
	}
}
