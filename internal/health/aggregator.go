package health

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"opagate/internal/domain"
	"opagate/internal/health/metrics"
	"opagate/pkg/requestcontext"
)

// Aggregator probes both services concurrently and derives SystemStatus.
type Aggregator struct {
	engine          Probe
	opal            Probe
	developmentMode bool
	logger          *slog.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithDevelopmentMode enables reporting development mode when both services
// are down.
func WithDevelopmentMode(enabled bool) AggregatorOption {
	return func(a *Aggregator) {
		a.developmentMode = enabled
	}
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *metrics.Metrics) AggregatorOption {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an aggregator over the OPA and OPAL probes.
func NewAggregator(engine, opal Probe, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		engine: engine,
		opal:   opal,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Check probes both services. Each probe is bounded by its own timeout and
// neither waits on the other. The result is always well formed.
func (a *Aggregator) Check(ctx context.Context) domain.SystemStatus {
	var opalHealth, engineHealth domain.ServiceHealth

	var g errgroup.Group
	g.Go(func() error {
		opalHealth = a.probe(ctx, a.opal)
		return nil
	})
	g.Go(func() error {
		engineHealth = a.probe(ctx, a.engine)
		return nil
	})
	_ = g.Wait()

	overall := Overall(opalHealth.Status, engineHealth.Status)
	status := domain.SystemStatus{
		OPALServer:      opalHealth,
		OPAEngine:       engineHealth,
		Timestamp:       a.now().UTC(),
		OverallStatus:   overall,
		DevelopmentMode: a.developmentMode && overall == domain.OverallUnhealthy,
	}

	a.metrics.IncrementPoll(string(overall))
	level := slog.LevelDebug
	if overall != domain.OverallHealthy && !status.DevelopmentMode {
		level = slog.LevelWarn
	}
	a.logger.Log(ctx, level, "system status checked",
		"request_id", requestcontext.RequestID(ctx),
		"overall", overall,
		"opa", engineHealth.Status,
		"opal", opalHealth.Status,
		"development_mode", status.DevelopmentMode,
	)
	return status
}

func (a *Aggregator) probe(ctx context.Context, p Probe) domain.ServiceHealth {
	start := a.now()
	h := p.Probe(ctx)
	if h.Status == "" {
		h.Status = domain.StatusUnhealthy
	}
	if h.Timestamp.IsZero() {
		h.Timestamp = a.now().UTC()
	}
	a.metrics.ObserveProbe(p.Name(), h.Healthy(), a.now().Sub(start))
	return h
}
