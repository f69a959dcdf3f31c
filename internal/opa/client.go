// Package opa talks to the Open Policy Agent REST API.
package opa

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"opagate/internal/domain"
	"opagate/internal/upstream"
)

const serviceName = "opa"

// Client evaluates decisions and checks liveness against one OPA instance.
type Client struct {
	endpoint   *upstream.Endpoint
	policyPath string
}

type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	policyPath string
}

// WithHTTPClient overrides the transport (tests, custom TLS).
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithPolicyPath sets the data path evaluated by Evaluate and Forward,
// e.g. "ksef/decision".
func WithPolicyPath(path string) Option {
	return func(o *clientOptions) {
		o.policyPath = path
	}
}

// New creates a client for the OPA instance at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	o := clientOptions{policyPath: "ksef/decision"}
	for _, opt := range opts {
		opt(&o)
	}

	endpoint, err := upstream.NewEndpoint(serviceName, baseURL, o.httpClient)
	if err != nil {
		return nil, err
	}
	return &Client{
		endpoint:   endpoint,
		policyPath: strings.Trim(o.policyPath, "/"),
	}, nil
}

// DecisionPath is the evaluation path relative to the base URL.
func (c *Client) DecisionPath() string {
	return "/v1/data/" + c.policyPath
}

type evaluateRequest struct {
	Input domain.DecisionInput `json:"input"`
}

// Evaluate asks the policy for a decision on input. An undefined decision is
// reported as an ErrorUndefined error.
func (c *Client) Evaluate(ctx context.Context, input domain.DecisionInput) (*domain.DecisionResponse, error) {
	body, err := json.Marshal(evaluateRequest{Input: input})
	if err != nil {
		return nil, upstream.NewError(upstream.ErrorBadData, serviceName, "encode input", err)
	}

	raw, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var resp domain.DecisionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, upstream.NewError(upstream.ErrorBadData, serviceName, "decode decision", err)
	}
	if resp.Result == nil {
		return nil, upstream.NewError(upstream.ErrorUndefined, serviceName, "policy returned no decision for "+c.policyPath, nil)
	}
	if resp.Result.UserRoles == nil {
		resp.Result.UserRoles = []string{}
	}
	return &resp, nil
}

// Forward posts body verbatim to the decision path and returns the engine's
// JSON response unchanged.
func (c *Client) Forward(ctx context.Context, body []byte) ([]byte, error) {
	return c.post(ctx, body)
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	resp, err := c.endpoint.PostJSON(ctx, c.DecisionPath(), body)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, c.endpoint.StatusError(resp)
	}
	if !json.Valid(resp.Body) {
		return nil, upstream.NewError(upstream.ErrorBadData, serviceName, "response is not valid JSON", nil)
	}
	return resp.Body, nil
}

// Health checks GET /health. Only HTTP 200 counts as alive.
func (c *Client) Health(ctx context.Context) error {
	return c.expectOK(ctx, "/health")
}

// Data checks GET /v1/data, which answers 200 once data has been loaded.
func (c *Client) Data(ctx context.Context) error {
	return c.expectOK(ctx, "/v1/data")
}

func (c *Client) expectOK(ctx context.Context, path string) error {
	resp, err := c.endpoint.Get(ctx, path)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return c.endpoint.StatusError(resp)
	}
	return nil
}
