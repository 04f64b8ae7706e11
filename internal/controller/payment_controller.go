package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/negativepl/checkout-gateway/internal/observability"
	"github.com/negativepl/checkout-gateway/internal/payments"
)

// PaymentController exposes the payment provider registry over HTTP.
type PaymentController struct {
	registry *payments.Registry
	metrics  *observability.Metrics
}

func NewPaymentController(registry *payments.Registry, metrics *observability.Metrics) *PaymentController {
	return &PaymentController{registry: registry, metrics: metrics}
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentController) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	provider, breaker, err := h.registry.Get(req.Provider)
	if err != nil {
		writeError(w, err)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "PLN"
	}

	params := payments.CreateParams{
		OrderID:        req.OrderID,
		OrderReference: req.OrderReference,
		Amount:         req.Amount,
		Currency:       currency,
		MethodCode:     req.MethodCode,
		CustomerEmail:  req.CustomerEmail,
		CustomerName:   req.CustomerName,
		Description:    req.Description,
		ReturnURL:      req.ReturnURL,
		CancelURL:      req.CancelURL,
		Metadata:       req.Metadata,
	}
	if params.Metadata == nil {
		params.Metadata = map[string]string{}
	}
	if _, ok := params.Metadata["request_id"]; !ok {
		params.Metadata["request_id"] = uuid.New().String()
	}

	start := time.Now()
	result, err := breaker.Execute(func() (*payments.Result, error) {
		return provider.CreatePayment(r.Context(), params)
	})
	if h.metrics != nil {
		ok := err == nil && result != nil && result.Success
		h.metrics.ObserveProviderRequest(provider.Code(), "create_payment", time.Since(start), ok)
		outcome := "success"
		if !ok {
			outcome = "failure"
		}
		h.metrics.PaymentsTotal.WithLabelValues(provider.Code(), outcome).Inc()
	}
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, FromPaymentResult(result))
}

// GetStatus handles GET /api/v1/payments/{provider}/{externalId}/status
func (h *PaymentController) GetStatus(w http.ResponseWriter, r *http.Request) {
	provider, _, err := h.registry.Get(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	status, err := provider.GetStatus(r.Context(), chi.URLParam(r, "externalId"))
	if h.metrics != nil {
		h.metrics.ObserveProviderRequest(provider.Code(), "get_status", time.Since(start), err == nil)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// Refund handles POST /api/v1/payments/{provider}/refund
func (h *PaymentController) Refund(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	provider, _, err := h.registry.Get(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	result, err := provider.Refund(r.Context(), payments.RefundParams{
		ExternalID: req.ExternalID,
		Amount:     req.Amount,
		Reason:     req.Reason,
	})
	if h.metrics != nil {
		ok := err == nil && result != nil && result.Success
		h.metrics.ObserveProviderRequest(provider.Code(), "refund", time.Since(start), ok)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	resp := RefundResponse{Success: result.Success, RefundID: result.RefundID, Status: string(result.Status)}
	if result.Error != nil {
		resp.Error = &PaymentError{Code: result.Error.Code, Message: result.Error.Message}
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}
