package handler

import "opagate/internal/domain"

// ProxyErrorResponse is returned by POST /api/opa when the engine cannot
// answer. It mirrors a decision response so callers treat proxy failures
// and policy denials the same way.
type ProxyErrorResponse struct {
	Result ProxyErrorResult `json:"result"`
}

// ProxyErrorResult carries the synthesized denial.
type ProxyErrorResult struct {
	Allow    bool                  `json:"allow"`
	Decision domain.DecisionResult `json:"decision"`
}

// NewProxyError builds the denial body for err.
func NewProxyError(err error) ProxyErrorResponse {
	return ProxyErrorResponse{
		Result: ProxyErrorResult{
			Allow:    false,
			Decision: domain.Deny(domain.DecisionInput{}, "Proxy error: "+err.Error()),
		},
	}
}
