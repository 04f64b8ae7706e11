package controller

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/negativepl/checkout-gateway/internal/observability"
	"github.com/negativepl/checkout-gateway/internal/payments"
)

const maxWebhookBodySize = 1 << 20

// WebhookController receives asynchronous payment notifications. Each
// provider sends its signature in its own header; verification lives in the
// adapter, the controller only plumbs bytes through.
type WebhookController struct {
	registry *payments.Registry
	metrics  *observability.Metrics
}

func NewWebhookController(registry *payments.Registry, metrics *observability.Metrics) *WebhookController {
	return &WebhookController{registry: registry, metrics: metrics}
}

// Stripe handles POST /api/v1/webhooks/stripe
func (h *WebhookController) Stripe(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "stripe", r.Header.Get("Stripe-Signature"))
}

// PayU handles POST /api/v1/webhooks/payu
func (h *WebhookController) PayU(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "payu", r.Header.Get("OpenPayu-Signature"))
}

func (h *WebhookController) handle(w http.ResponseWriter, r *http.Request, providerCode, signature string) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unable to read body", Code: "invalid_body"})
		return
	}

	provider, _, err := h.registry.Get(providerCode)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := provider.HandleWebhook(r.Context(), payload, signature)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.metrics != nil {
		outcome := "accepted"
		if !result.Success {
			outcome = "rejected"
		} else if !result.Handled {
			outcome = "ignored"
		}
		h.metrics.WebhooksTotal.WithLabelValues(providerCode, outcome).Inc()
	}

	if !result.Success {
		log.Warn().Str("provider", providerCode).Str("reason", result.Error).Msg("webhook rejected")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: result.Error, Code: "webhook_rejected"})
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{
		Received: true,
		Handled:  result.Handled,
		Status:   string(result.Status),
	})
}
