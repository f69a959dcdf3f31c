package handler

import "opagate/internal/domain"

// ListResponse is the HTTP response for GET /api/opa/debug.
type ListResponse struct {
	Entries []domain.DebugEntry `json:"entries"`
	Count   int                 `json:"count"`
}

// StreamMessage is one websocket frame on the debug stream.
type StreamMessage struct {
	Type    string              `json:"type"`
	Entries []domain.DebugEntry `json:"entries"`
	Count   int                 `json:"count"`
}
