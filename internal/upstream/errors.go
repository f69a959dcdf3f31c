package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorCategory is the normalized failure taxonomy for calls to dependent
// services.
type ErrorCategory string

const (
	// ErrorNetwork indicates the service could not be reached
	ErrorNetwork ErrorCategory = "network"

	// ErrorStatus indicates the service answered with an unexpected HTTP status
	ErrorStatus ErrorCategory = "status"

	// ErrorBadData indicates the service returned malformed or unexpected JSON
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorTimeout indicates the call exceeded its deadline
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorUndefined indicates the policy produced no decision for the input
	ErrorUndefined ErrorCategory = "undefined"
)

// Error wraps a dependent-service failure with its category.
type Error struct {
	Category   ErrorCategory
	Service    string
	Message    string
	StatusCode int
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Service, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Service, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a categorized upstream error.
func NewError(category ErrorCategory, service, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Service:    service,
		Message:    message,
		Underlying: underlying,
	}
}

// Classify turns a transport error into a timeout or network Error.
func Classify(ctx context.Context, service string, err error) *Error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return NewError(ErrorTimeout, service, "request timed out", err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewError(ErrorTimeout, service, "request timed out", err)
	}
	return NewError(ErrorNetwork, service, "connection failed", err)
}

// GetCategory extracts the category from err. Uncategorized errors count as
// network failures.
func GetCategory(err error) ErrorCategory {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Category
	}
	return ErrorNetwork
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}
