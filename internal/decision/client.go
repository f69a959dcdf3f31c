// Package decision asks the policy engine for allow/deny decisions and fails
// closed: every failure becomes a denial with the error in its reason.
package decision

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"opagate/internal/decision/metrics"
	"opagate/internal/domain"
	"opagate/internal/platform/failsafe"
	"opagate/internal/upstream"
	"opagate/pkg/requestcontext"
)

// DefaultTimeout bounds one decision call.
const DefaultTimeout = 10 * time.Second

// Engine evaluates a decision input against the policy.
type Engine interface {
	Evaluate(ctx context.Context, input domain.DecisionInput) (*domain.DecisionResponse, error)
}

// Recorder receives one entry per decision call.
type Recorder interface {
	Record(entry domain.DebugEntry)
}

// Client is the decision entry point used by handlers.
type Client struct {
	engine   Engine
	recorder Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRecorder sets where debug entries go.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a Client over engine.
func New(engine Engine, opts ...Option) (*Client, error) {
	if engine == nil {
		return nil, errors.New("policy engine is required")
	}
	c := &Client{
		engine:  engine,
		logger:  slog.New(slog.DiscardHandler),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Check evaluates input and never fails. An unreachable, slow or misbehaving
// engine yields allow=false with the error in the reason. Every call is
// recorded.
func (c *Client) Check(ctx context.Context, input domain.DecisionInput) domain.DecisionResult {
	start := c.now()
	failed := false

	guard := failsafe.Policy[domain.DecisionResponse]{
		Timeout: c.timeout,
		Fallback: func(err error) domain.DecisionResponse {
			deny := domain.Deny(input, "policy engine error: "+err.Error())
			return domain.DecisionResponse{Result: &deny}
		},
		OnFailure: func(ctx context.Context, err error) {
			failed = true
			category := upstream.GetCategory(err)
			c.metrics.IncrementEngineError(string(category))
			c.logger.WarnContext(ctx, "decision failed closed",
				"request_id", requestcontext.RequestID(ctx),
				"user", input.User,
				"tenant", input.Tenant,
				"action", input.Action,
				"category", category,
				"error", err,
			)
		},
	}

	resp := guard.Do(ctx, func(ctx context.Context) (domain.DecisionResponse, error) {
		out, err := c.engine.Evaluate(ctx, input)
		if err != nil {
			return domain.DecisionResponse{}, err
		}
		if out == nil || out.Result == nil {
			return domain.DecisionResponse{}, upstream.NewError(upstream.ErrorUndefined, "opa", "policy returned no decision", nil)
		}
		return *out, nil
	})

	end := c.now()
	elapsed := end.Sub(start)
	result := *resp.Result
	if result.UserRoles == nil {
		result.UserRoles = []string{}
	}

	c.record(input, result, end, elapsed)
	c.observe(result, failed, elapsed)
	return result
}

func (c *Client) record(input domain.DecisionInput, result domain.DecisionResult, at time.Time, elapsed time.Duration) {
	if c.recorder == nil {
		return
	}
	// The entry keeps its own roles slice so callers cannot mutate history.
	result.UserRoles = slices.Clone(result.UserRoles)
	c.recorder.Record(domain.DebugEntry{
		ID:         uuid.NewString(),
		Timestamp:  at.UTC(),
		Input:      input,
		Response:   domain.DecisionResponse{Result: &result},
		DurationMS: elapsed.Milliseconds(),
	})
}

func (c *Client) observe(result domain.DecisionResult, failed bool, elapsed time.Duration) {
	outcome := metrics.OutcomeDeny
	switch {
	case failed:
		outcome = metrics.OutcomeError
	case result.Allow:
		outcome = metrics.OutcomeAllow
	}
	c.metrics.IncrementOutcome(outcome, result.Action)
	c.metrics.ObserveEvaluateLatency(elapsed)
}
