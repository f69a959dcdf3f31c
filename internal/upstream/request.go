// Package upstream performs single-attempt HTTP calls to the policy engine and
// the OPAL server, classifies their failures and traces each call.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"opagate/pkg/requestcontext"
)

// MaxResponseBytes caps how much of an upstream body is read.
const MaxResponseBytes = 4 << 20

// TracerName names the tracer upstream spans are created on.
const TracerName = "opagate/upstream"

// Response is a completed upstream exchange.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Endpoint is a base URL plus the HTTP client used to reach it.
type Endpoint struct {
	Service string
	BaseURL *url.URL
	Client  *http.Client
	Tracer  trace.Tracer
}

// NewEndpoint validates baseURL. A nil client selects http.DefaultClient.
// Spans go to the global tracer provider.
func NewEndpoint(service, baseURL string, client *http.Client) (*Endpoint, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse %s base URL: %w", service, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s base URL must be http(s), got %q", service, baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%s base URL has no host: %q", service, baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Endpoint{
		Service: service,
		BaseURL: u,
		Client:  client,
		Tracer:  otel.Tracer(TracerName),
	}, nil
}

// URL joins path onto the base URL.
func (e *Endpoint) URL(path string) string {
	return e.BaseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// Get issues a GET to path.
func (e *Endpoint) Get(ctx context.Context, path string) (*Response, error) {
	return e.do(ctx, http.MethodGet, path, nil)
}

// PostJSON posts body as application/json to path.
func (e *Endpoint) PostJSON(ctx context.Context, path string, body []byte) (*Response, error) {
	return e.do(ctx, http.MethodPost, path, body)
}

// do makes exactly one attempt. Transport failures are returned as *Error;
// non-2xx statuses are returned in the Response for the caller to judge.
func (e *Endpoint) do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	target := e.URL(path)

	ctx, span := e.Tracer.Start(ctx, e.Service+" "+method+" /"+strings.TrimLeft(path, "/"),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", target),
		attribute.String("opagate.request_id", requestcontext.RequestID(ctx)),
	)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, e.fail(span, NewError(ErrorNetwork, e.Service, "build request", err))
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, e.fail(span, Classify(ctx, e.Service, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, e.fail(span, Classify(ctx, e.Service, err))
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// StatusError builds the ErrorStatus error for a rejected response.
func (e *Endpoint) StatusError(resp *Response) *Error {
	err := NewError(ErrorStatus, e.Service,
		fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)), nil)
	err.StatusCode = resp.StatusCode
	return err
}

func (e *Endpoint) fail(span trace.Span, err *Error) *Error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
