package handler

import (
	"encoding/json"
	"time"

	"opagate/internal/domain"
)

// EngineHealthResponse is the HTTP response for GET /api/opa/health.
type EngineHealthResponse struct {
	Status       domain.ServiceStatus `json:"status"`
	Timestamp    time.Time            `json:"timestamp"`
	Error        string               `json:"error,omitempty"`
	ResponseTime int64                `json:"responseTime"`
}

// FromServiceHealth converts a probe result to the HTTP response.
func FromServiceHealth(h domain.ServiceHealth) EngineHealthResponse {
	resp := EngineHealthResponse{
		Status:    h.Status,
		Timestamp: h.Timestamp,
		Error:     h.Error,
	}
	if h.ResponseTimeMS != nil {
		resp.ResponseTime = *h.ResponseTimeMS
	}
	return resp
}

// StatsResponse is the HTTP response for GET /api/opal/stats. Stats is null
// when the server could not be read.
type StatsResponse struct {
	Stats     json.RawMessage `json:"stats"`
	Timestamp time.Time       `json:"timestamp"`
	Error     string          `json:"error,omitempty"`
}
