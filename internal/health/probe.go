package health

import (
	"context"
	"fmt"
	"time"

	"opagate/internal/domain"
	"opagate/internal/platform/failsafe"
	"opagate/internal/upstream"
)

// Probe timeouts.
const (
	LivenessTimeout = 3 * time.Second
	DataTimeout     = 2 * time.Second
)

// Probe checks one dependent service. It never fails; problems are reported
// as an unhealthy ServiceHealth.
type Probe interface {
	Name() string
	Probe(ctx context.Context) domain.ServiceHealth
}

// EngineChecker is the part of the OPA client used for probing.
type EngineChecker interface {
	Health(ctx context.Context) error
	Data(ctx context.Context) error
}

// OPALChecker is the part of the OPAL client used for probing.
type OPALChecker interface {
	Healthcheck(ctx context.Context) error
}

// EngineProbe checks OPA liveness, then whether policy data is loaded.
// Missing data leaves the engine healthy with a note in Error.
type EngineProbe struct {
	checker         EngineChecker
	now             func() time.Time
	livenessTimeout time.Duration
	dataTimeout     time.Duration
}

// NewEngineProbe creates the OPA probe with the default timeouts.
func NewEngineProbe(checker EngineChecker) *EngineProbe {
	return &EngineProbe{
		checker:         checker,
		now:             time.Now,
		livenessTimeout: LivenessTimeout,
		dataTimeout:     DataTimeout,
	}
}

func (p *EngineProbe) Name() string { return "opa" }

func (p *EngineProbe) Probe(ctx context.Context) domain.ServiceHealth {
	start := p.now()
	health := liveness(ctx, p.now, start, p.livenessTimeout, p.checker.Health)
	if !health.Healthy() {
		return health
	}

	dataCheck := failsafe.Policy[string]{
		Timeout:  p.dataTimeout,
		Fallback: dataNote,
	}
	health.Error = dataCheck.Do(ctx, func(ctx context.Context) (string, error) {
		return "", p.checker.Data(ctx)
	})
	return health
}

func dataNote(err error) string {
	if upstream.GetCategory(err) == upstream.ErrorStatus {
		return "OPA is running but has no data loaded"
	}
	return fmt.Sprintf("OPA is running but the data check failed: %v", err)
}

// OPALProbe checks the OPAL server healthcheck.
type OPALProbe struct {
	checker OPALChecker
	now     func() time.Time
	timeout time.Duration
}

// NewOPALProbe creates the OPAL probe with the default timeout.
func NewOPALProbe(checker OPALChecker) *OPALProbe {
	return &OPALProbe{
		checker: checker,
		now:     time.Now,
		timeout: LivenessTimeout,
	}
}

func (p *OPALProbe) Name() string { return "opal" }

func (p *OPALProbe) Probe(ctx context.Context) domain.ServiceHealth {
	return liveness(ctx, p.now, p.now(), p.timeout, p.checker.Healthcheck)
}

// liveness runs check once under timeout and classifies the outcome. Response
// time is measured until the check returns or times out.
func liveness(ctx context.Context, now func() time.Time, start time.Time, timeout time.Duration, check func(context.Context) error) domain.ServiceHealth {
	elapsed := func() *int64 {
		ms := now().Sub(start).Milliseconds()
		return &ms
	}

	guard := failsafe.Policy[domain.ServiceHealth]{
		Timeout: timeout,
		Fallback: func(err error) domain.ServiceHealth {
			return domain.ServiceHealth{
				Status:         domain.StatusUnhealthy,
				ResponseTimeMS: elapsed(),
				Timestamp:      start.UTC(),
				Error:          err.Error(),
			}
		},
	}

	return guard.Do(ctx, func(ctx context.Context) (domain.ServiceHealth, error) {
		if err := check(ctx); err != nil {
			return domain.ServiceHealth{}, err
		}
		return domain.ServiceHealth{
			Status:         domain.StatusHealthy,
			ResponseTimeMS: elapsed(),
			Timestamp:      start.UTC(),
		}, nil
	})
}
