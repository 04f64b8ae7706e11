package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const stripeAPIURL = "https://api.stripe.com"

// stripeSignatureTolerance bounds how old a webhook timestamp may be.
const stripeSignatureTolerance = 5 * time.Minute

type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
	// BaseURL overrides the Stripe API endpoint, used by tests.
	BaseURL string
}

// StripeProvider creates PaymentIntents against the Stripe REST API.
// When no secret key is configured every operation returns a synthetic mock
// result so the rest of the system keeps working in dev/demo mode.
type StripeProvider struct {
	cfg    StripeConfig
	http   *resty.Client
	logger zerolog.Logger
	now    func() time.Time
}

func NewStripe(cfg StripeConfig, logger zerolog.Logger) *StripeProvider {
	base := cfg.BaseURL
	if base == "" {
		base = stripeAPIURL
	}
	client := resty.New().
		SetBaseURL(base).
		SetAuthToken(cfg.SecretKey).
		SetTimeout(30 * time.Second)

	return &StripeProvider{
		cfg:    cfg,
		http:   client,
		logger: logger.With().Str("provider", "stripe").Logger(),
		now:    time.Now,
	}
}

func (s *StripeProvider) Name() string { return "Stripe" }
func (s *StripeProvider) Code() string { return "stripe" }

func (s *StripeProvider) configured() bool { return s.cfg.SecretKey != "" }

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type stripeAPIError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *StripeProvider) CreatePayment(ctx context.Context, params CreateParams) (*Result, error) {
	if !s.configured() {
		s.logger.Warn().Msg("stripe secret key not configured, returning mock payment")
		id := strings.ReplaceAll(uuid.New().String(), "-", "")
		return &Result{
			Success:       true,
			TransactionID: uuid.New().String(),
			ExternalID:    "mock_pi_" + id[:16],
			ClientSecret:  "mock_secret_" + id[16:],
			Status:        StatusPending,
		}, nil
	}

	currency := strings.ToLower(params.Currency)
	if currency == "" {
		currency = "pln"
	}

	form := map[string]string{
		"amount":                               strconv.FormatInt(MinorUnits(params.Amount), 10),
		"currency":                             currency,
		"automatic_payment_methods[enabled]":   "true",
		"metadata[order_id]":                   strconv.Itoa(params.OrderID),
	}
	if params.OrderReference != "" {
		form["metadata[order_reference]"] = params.OrderReference
	}
	if params.CustomerEmail != "" {
		form["receipt_email"] = params.CustomerEmail
	}
	if params.Description != "" {
		form["description"] = params.Description
	}
	for k, v := range params.Metadata {
		form["metadata["+k+"]"] = v
	}

	var intent stripeIntent
	var apiErr stripeAPIError
	resp, err := s.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&intent).
		SetError(&apiErr).
		Post("/v1/payment_intents")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Error().Err(err).Msg("create payment intent request failed")
		return &Result{
			Success: false,
			Status:  StatusFailed,
			Error:   &Error{Code: "request_failed", Message: err.Error()},
		}, nil
	}
	if resp.IsError() {
		s.logger.Error().Int("status", resp.StatusCode()).Str("code", apiErr.Error.Code).Msg("stripe rejected payment intent")
		code := apiErr.Error.Code
		if code == "" {
			code = "stripe_error"
		}
		return &Result{
			Success: false,
			Status:  StatusFailed,
			Error:   &Error{Code: code, Message: apiErr.Error.Message},
		}, nil
	}

	return &Result{
		Success:       true,
		TransactionID: uuid.New().String(),
		ExternalID:    intent.ID,
		ClientSecret:  intent.ClientSecret,
		Status:        mapStripeStatus(intent.Status),
	}, nil
}

// mapStripeStatus maps Stripe's intent status vocabulary onto the canonical
// enum. Unknown statuses default to pending.
func mapStripeStatus(status string) Status {
	switch status {
	case "requires_payment_method", "requires_confirmation", "requires_action":
		return StatusPending
	case "processing", "requires_capture":
		return StatusProcessing
	case "succeeded":
		return StatusCompleted
	case "canceled":
		return StatusCancelled
	default:
		return StatusPending
	}
}

type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			PaymentIntent string `json:"payment_intent"`
		} `json:"object"`
	} `json:"data"`
}

func (s *StripeProvider) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.cfg.WebhookSecret == "" {
		// Dev-only path: without a webhook secret the payload is processed
		// unverified.
		s.logger.Warn().Msg("stripe webhook secret not configured, skipping signature verification")
	} else if err := s.verifySignature(payload, signature); err != nil {
		s.logger.Warn().Err(err).Msg("stripe webhook signature verification failed")
		return &WebhookResult{Success: false, Error: "invalid signature"}, nil
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return &WebhookResult{Success: false, Error: "invalid payload"}, nil
	}

	switch event.Type {
	case "payment_intent.succeeded":
		return &WebhookResult{Success: true, Handled: true, ExternalID: event.Data.Object.ID, Status: StatusCompleted}, nil
	case "payment_intent.payment_failed":
		return &WebhookResult{Success: true, Handled: true, ExternalID: event.Data.Object.ID, Status: StatusFailed}, nil
	case "charge.refunded":
		externalID := event.Data.Object.PaymentIntent
		if externalID == "" {
			externalID = event.Data.Object.ID
		}
		return &WebhookResult{Success: true, Handled: true, ExternalID: externalID, Status: StatusRefunded}, nil
	default:
		// Unrecognized event types are ignored, not errors.
		return &WebhookResult{Success: true, Handled: false}, nil
	}
}

// verifySignature checks a Stripe-Signature header: the v1 scheme is a
// hex HMAC-SHA256 of "<timestamp>.<payload>" keyed with the webhook secret.
func (s *StripeProvider) verifySignature(payload []byte, header string) error {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("malformed signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed timestamp: %w", err)
	}
	if s.now().Sub(time.Unix(ts, 0)) > stripeSignatureTolerance {
		return fmt.Errorf("timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("no matching v1 signature")
}

type stripeRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *StripeProvider) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	if !s.configured() {
		s.logger.Warn().Msg("stripe secret key not configured, returning mock refund")
		return &RefundResult{
			Success:  true,
			RefundID: "mock_re_" + uuid.New().String()[:8],
			Status:   StatusRefunded,
		}, nil
	}

	form := map[string]string{"payment_intent": params.ExternalID}
	if params.Amount > 0 {
		form["amount"] = strconv.FormatInt(MinorUnits(params.Amount), 10)
	}
	if params.Reason != "" {
		form["reason"] = params.Reason
	}

	var refund stripeRefund
	var apiErr stripeAPIError
	resp, err := s.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&refund).
		SetError(&apiErr).
		Post("/v1/refunds")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &RefundResult{
			Success: false,
			Error:   &Error{Code: "request_failed", Message: err.Error()},
		}, nil
	}
	if resp.IsError() {
		return &RefundResult{
			Success: false,
			Error:   &Error{Code: "stripe_error", Message: apiErr.Error.Message},
		}, nil
	}

	status := StatusRefunded
	if refund.Status == "pending" {
		status = StatusProcessing
	}
	return &RefundResult{Success: true, RefundID: refund.ID, Status: status}, nil
}

func (s *StripeProvider) GetStatus(ctx context.Context, externalID string) (Status, error) {
	if !s.configured() {
		return StatusPending, nil
	}

	var intent stripeIntent
	resp, err := s.http.R().
		SetContext(ctx).
		SetResult(&intent).
		Get("/v1/payment_intents/" + externalID)
	if err != nil {
		return StatusPending, fmt.Errorf("stripe: get payment intent: %w", err)
	}
	if resp.IsError() {
		return StatusPending, fmt.Errorf("stripe: get payment intent: status %d", resp.StatusCode())
	}
	return mapStripeStatus(intent.Status), nil
}
