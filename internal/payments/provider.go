package payments

import (
	"context"
)

// Status is the canonical payment status. Every provider-specific status
// string maps to exactly one of these values.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
	StatusCancelled  Status = "cancelled"
)

// CreateParams describes a payment to open with a provider. Amount is in
// major currency units (PLN); adapters convert to minor units themselves.
type CreateParams struct {
	OrderID        int
	OrderReference string
	Amount         float64
	Currency       string
	MethodCode     string
	CustomerEmail  string
	CustomerName   string
	Description    string
	ReturnURL      string
	CancelURL      string
	Metadata       map[string]string
}

// Error carries a provider-scoped error code and message.
type Error struct {
	Code    string
	Message string
}

// Result is the outcome of a create-payment call. TransactionID is our own
// identifier; ExternalID is the provider's (PaymentIntent ID, PayU order ID).
type Result struct {
	Success       bool
	TransactionID string
	ExternalID    string
	PaymentURL    string
	ClientSecret  string
	Status        Status
	Error         *Error
}

// WebhookResult is the outcome of processing a provider notification.
// Handled is false for event types the adapter deliberately ignores.
type WebhookResult struct {
	Success    bool
	Handled    bool
	ExternalID string
	Status     Status
	Error      string
}

type RefundParams struct {
	ExternalID string
	Amount     float64
	Reason     string
}

type RefundResult struct {
	Success  bool
	RefundID string
	Status   Status
	Error    *Error
}

// Provider is the contract every payment integration implements. Remote
// failures are reported inside the result types, not as returned errors;
// the error return is reserved for context cancellation and caller bugs.
type Provider interface {
	// Name returns the human-readable provider name.
	Name() string
	// Code returns the routing code ("stripe", "payu").
	Code() string
	// CreatePayment opens a payment with the provider.
	CreatePayment(ctx context.Context, params CreateParams) (*Result, error)
	// HandleWebhook verifies and processes an asynchronous notification.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
	// Refund refunds a completed payment.
	Refund(ctx context.Context, params RefundParams) (*RefundResult, error)
	// GetStatus fetches the current mapped status for a provider payment ID.
	GetStatus(ctx context.Context, externalID string) (Status, error)
}
