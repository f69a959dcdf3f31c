package handler

import (
	"strings"

	"opagate/internal/decision"
	"opagate/internal/domain"
	dErrors "opagate/pkg/domain-errors"
)

const maxFieldLength = 256

// CheckRequest is the HTTP request body for POST /api/decisions/check.
type CheckRequest struct {
	User     string `json:"user"`
	Tenant   string `json:"tenant"`
	Action   string `json:"action"`
	Resource string `json:"resource,omitempty"`
}

// Validate normalizes and checks the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CheckRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if len(r.User) > maxFieldLength || len(r.Tenant) > maxFieldLength ||
		len(r.Action) > maxFieldLength || len(r.Resource) > maxFieldLength {
		return dErrors.New(dErrors.CodeValidation, "fields must be at most 256 characters")
	}

	// Required fields
	r.User = strings.TrimSpace(r.User)
	if r.User == "" {
		return dErrors.New(dErrors.CodeValidation, "user is required")
	}
	r.Action = strings.TrimSpace(r.Action)
	if r.Action == "" {
		return dErrors.New(dErrors.CodeValidation, "action is required")
	}

	r.Tenant = strings.TrimSpace(r.Tenant)
	if r.Tenant == "" {
		r.Tenant = decision.DefaultTenant
	}
	r.Resource = strings.TrimSpace(r.Resource)
	return nil
}

// Input converts the validated request to a decision input.
func (r *CheckRequest) Input() domain.DecisionInput {
	return domain.DecisionInput{
		User:     r.User,
		Tenant:   r.Tenant,
		Action:   r.Action,
		Resource: r.Resource,
	}
}
