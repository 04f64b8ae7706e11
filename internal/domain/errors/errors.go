package errors

import (
	"errors"
	"fmt"
)

var (
	// Provider errors
	ErrProviderNotFound    = errors.New("provider not found")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderRejected    = errors.New("rejected by provider")
	ErrProviderTimeout     = errors.New("provider request timeout")

	// Webhook errors
	ErrWebhookSignatureInvalid = errors.New("webhook signature invalid")
	ErrWebhookNotConfigured    = errors.New("webhook verification not configured")

	// Shipping errors
	ErrPointRequired     = errors.New("shipping point required for selected method")
	ErrShipmentNotFound  = errors.New("shipment not found")
	ErrMethodUnavailable = errors.New("shipping method unavailable")

	// Idempotency errors
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// DomainError wraps errors with a stable code and a user-facing message.
// For checkout failures the message carries the Polish text surfaced to the client.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
