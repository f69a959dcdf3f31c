// Package opal reads health and statistics from an OPAL server.
package opal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"opagate/internal/upstream"
)

const serviceName = "opal"

// Client talks to one OPAL server.
type Client struct {
	endpoint *upstream.Endpoint
}

// New creates a client for the OPAL server at baseURL. A nil httpClient
// selects http.DefaultClient.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	endpoint, err := upstream.NewEndpoint(serviceName, baseURL, httpClient)
	if err != nil {
		return nil, err
	}
	return &Client{endpoint: endpoint}, nil
}

type healthcheckResponse struct {
	Status string `json:"status"`
}

// Healthcheck calls GET /healthcheck. The server is healthy only on HTTP 200
// with {"status":"ok"}.
func (c *Client) Healthcheck(ctx context.Context) error {
	resp, err := c.endpoint.Get(ctx, "/healthcheck")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return c.endpoint.StatusError(resp)
	}

	var body healthcheckResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return upstream.NewError(upstream.ErrorBadData, serviceName, "decode healthcheck", err)
	}
	if body.Status != "ok" {
		return upstream.NewError(upstream.ErrorBadData, serviceName, fmt.Sprintf("server reported status %q", body.Status), nil)
	}
	return nil
}

// Stats returns the raw JSON from GET /stats.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.endpoint.Get(ctx, "/stats")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, c.endpoint.StatusError(resp)
	}
	if !json.Valid(resp.Body) {
		return nil, upstream.NewError(upstream.ErrorBadData, serviceName, "stats are not valid JSON", nil)
	}
	return json.RawMessage(resp.Body), nil
}
