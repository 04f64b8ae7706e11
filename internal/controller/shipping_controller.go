package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/negativepl/checkout-gateway/internal/observability"
	"github.com/negativepl/checkout-gateway/internal/shipping"
)

// ShippingController exposes pickup point search, rating, shipment creation
// and tracking over the shipping registry.
type ShippingController struct {
	registry *shipping.Registry
	metrics  *observability.Metrics
}

func NewShippingController(registry *shipping.Registry, metrics *observability.Metrics) *ShippingController {
	return &ShippingController{registry: registry, metrics: metrics}
}

// FindPoints handles GET /api/v1/shipping/points
func (h *ShippingController) FindPoints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	providerCode := q.Get("provider")
	if providerCode == "" {
		providerCode = "inpost"
	}
	provider, err := h.registry.Resolve(providerCode)
	if err != nil {
		writeError(w, err)
		return
	}

	query := shipping.PointQuery{
		City:     q.Get("city"),
		PostCode: q.Get("postCode"),
		Service:  q.Get("service"),
	}
	query.Lat, _ = strconv.ParseFloat(q.Get("lat"), 64)
	query.Lng, _ = strconv.ParseFloat(q.Get("lng"), 64)
	query.RadiusKm, _ = strconv.ParseFloat(q.Get("radius"), 64)
	query.Limit, _ = strconv.Atoi(q.Get("limit"))

	start := time.Now()
	points, err := provider.FindPoints(r.Context(), query)
	if h.metrics != nil {
		h.metrics.ObserveProviderRequest(provider.Code(), "find_points", time.Since(start), err == nil)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]PointResponse, 0, len(points))
	for _, p := range points {
		resp = append(resp, FromPoint(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": resp})
}

// CalculateRate handles POST /api/v1/shipping/rates
func (h *ShippingController) CalculateRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	provider, err := h.registry.Resolve(req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	rate, err := provider.CalculateRate(r.Context(), shipping.RateParams{
		Code:      req.Code,
		WeightKg:  req.WeightKg,
		CODAmount: req.CODAmount,
	})
	if h.metrics != nil {
		h.metrics.ObserveProviderRequest(provider.Code(), "calculate_rate", time.Since(start), err == nil)
		available := "available"
		if err != nil || rate == nil {
			available = "unavailable"
		}
		h.metrics.ShippingRateLookups.WithLabelValues(provider.Code(), available).Inc()
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if rate == nil {
		writeJSON(w, http.StatusOK, RateResponse{Available: false})
		return
	}

	writeJSON(w, http.StatusOK, RateResponse{
		Available:     true,
		Code:          rate.Code,
		Provider:      rate.ProviderID,
		Price:         rate.Price,
		PriceNet:      rate.PriceNet,
		Currency:      "PLN",
		RequiresPoint: rate.RequiresPoint,
	})
}

// CreateShipment handles POST /api/v1/shipping/shipments
func (h *ShippingController) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var req CreateShipmentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	provider, err := h.registry.Resolve(req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	params := shipping.ShipmentParams{
		OrderID:   req.OrderID,
		Reference: req.Reference,
		Code:      req.Code,
		Receiver: shipping.Receiver{
			FirstName: req.Receiver.FirstName,
			LastName:  req.Receiver.LastName,
			Email:     req.Receiver.Email,
			Phone:     req.Receiver.Phone,
			Street:    req.Receiver.Street,
			City:      req.Receiver.City,
			PostCode:  req.Receiver.PostCode,
		},
		WeightKg:  req.WeightKg,
		PointID:   req.PointID,
		CODAmount: req.CODAmount,
	}

	breaker := h.registry.Breaker(provider.Code())
	start := time.Now()
	result, err := breaker.Execute(func() (*shipping.ShipmentResult, error) {
		return provider.CreateShipment(r.Context(), params)
	})
	if h.metrics != nil {
		ok := err == nil && result != nil && result.Success
		h.metrics.ObserveProviderRequest(provider.Code(), "create_shipment", time.Since(start), ok)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, ShipmentResponse{
		Success:        result.Success,
		ShipmentID:     result.ShipmentID,
		TrackingNumber: result.TrackingNumber,
		LabelURL:       result.LabelURL,
		Error:          result.Error,
	})
}

// GetTracking handles GET /api/v1/shipping/tracking/{provider}/{trackingNumber}
func (h *ShippingController) GetTracking(w http.ResponseWriter, r *http.Request) {
	provider, err := h.registry.Resolve(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	info, err := provider.GetTracking(r.Context(), chi.URLParam(r, "trackingNumber"))
	if h.metrics != nil {
		h.metrics.ObserveProviderRequest(provider.Code(), "get_tracking", time.Since(start), err == nil)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if info == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "tracking number not found", Code: "shipment_not_found"})
		return
	}

	events := make([]TrackingEventResponse, 0, len(info.Events))
	for _, ev := range info.Events {
		events = append(events, TrackingEventResponse{
			Status:      string(ev.Status),
			Description: ev.Description,
			Location:    ev.Location,
			Timestamp:   ev.Timestamp.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, TrackingResponse{
		TrackingNumber: info.TrackingNumber,
		Status:         string(info.Status),
		Events:         events,
	})
}

// GetLabel handles GET /api/v1/shipping/labels/{provider}/{shipmentId}
func (h *ShippingController) GetLabel(w http.ResponseWriter, r *http.Request) {
	provider, err := h.registry.Resolve(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	url, err := provider.GetLabel(r.Context(), chi.URLParam(r, "shipmentId"))
	if h.metrics != nil {
		h.metrics.ObserveProviderRequest(provider.Code(), "get_label", time.Since(start), err == nil)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"labelUrl": url})
}
