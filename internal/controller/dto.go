package controller

import (
	"github.com/negativepl/checkout-gateway/internal/payments"
	"github.com/negativepl/checkout-gateway/internal/shipping"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (camelCase fields, validation tags).
// Controllers convert them to the domain types before calling business logic.

// CheckoutCustomer is the delivery form submitted by the storefront.
type CheckoutCustomer struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	Postcode  string `json:"postcode" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
}

type CheckoutItem struct {
	ProductID          int `json:"productId" validate:"required,gt=0"`
	Quantity           int `json:"quantity" validate:"required,gt=0"`
	ProductAttributeID int `json:"productAttributeId"`
}

type CheckoutRequest struct {
	CustomerID     int              `json:"customerId"`
	Customer       CheckoutCustomer `json:"customer" validate:"required"`
	Items          []CheckoutItem   `json:"items" validate:"required,min=1,dive"`
	ShippingMethod string           `json:"shippingMethod"`
	ShippingPoint  string           `json:"shippingPoint"`
	PaymentMethod  string           `json:"paymentMethod"`
}

type CreatePaymentRequest struct {
	Provider       string            `json:"provider" validate:"required"`
	OrderID        int               `json:"orderId" validate:"required,gt=0"`
	OrderReference string            `json:"orderReference"`
	Amount         float64           `json:"amount" validate:"required,gt=0"`
	Currency       string            `json:"currency"`
	MethodCode     string            `json:"methodCode"`
	CustomerEmail  string            `json:"customerEmail" validate:"required,email"`
	CustomerName   string            `json:"customerName"`
	Description    string            `json:"description"`
	ReturnURL      string            `json:"returnUrl" validate:"required,url"`
	CancelURL      string            `json:"cancelUrl"`
	Metadata       map[string]string `json:"metadata"`
}

type RefundRequest struct {
	ExternalID string  `json:"externalId" validate:"required"`
	Amount     float64 `json:"amount" validate:"gte=0"`
	Reason     string  `json:"reason"`
}

type RateRequest struct {
	Code      string  `json:"code" validate:"required"`
	WeightKg  float64 `json:"weightKg" validate:"gte=0"`
	CODAmount float64 `json:"codAmount" validate:"gte=0"`
}

type ShipmentReceiver struct {
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Street    string `json:"street"`
	City      string `json:"city"`
	PostCode  string `json:"postCode"`
}

type CreateShipmentRequest struct {
	Code      string           `json:"code" validate:"required"`
	OrderID   int              `json:"orderId"`
	Reference string           `json:"reference"`
	Receiver  ShipmentReceiver `json:"receiver" validate:"required"`
	PointID   string           `json:"pointId"`
	WeightKg  float64          `json:"weightKg" validate:"gte=0"`
	CODAmount float64          `json:"codAmount" validate:"gte=0"`
}

// --- Response DTOs ---

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CheckoutResponse mirrors the storefront contract: totals are returned as
// the exact 6-decimal strings sent to PrestaShop.
type CheckoutResponse struct {
	Success        bool    `json:"success"`
	OrderID        int     `json:"orderId"`
	OrderReference string  `json:"orderReference,omitempty"`
	CustomerID     int     `json:"customerId"`
	CartID         int     `json:"cartId"`
	ShippingCost   float64 `json:"shippingCost"`
	TotalPaid      string  `json:"totalPaid"`
}

type PaymentResponse struct {
	Success       bool           `json:"success"`
	TransactionID string         `json:"transactionId,omitempty"`
	ExternalID    string         `json:"externalId,omitempty"`
	PaymentURL    string         `json:"paymentUrl,omitempty"`
	ClientSecret  string         `json:"clientSecret,omitempty"`
	Status        string         `json:"status,omitempty"`
	Error         *PaymentError  `json:"error,omitempty"`
}

type PaymentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func FromPaymentResult(res *payments.Result) PaymentResponse {
	resp := PaymentResponse{
		Success:       res.Success,
		TransactionID: res.TransactionID,
		ExternalID:    res.ExternalID,
		PaymentURL:    res.PaymentURL,
		ClientSecret:  res.ClientSecret,
		Status:        string(res.Status),
	}
	if res.Error != nil {
		resp.Error = &PaymentError{Code: res.Error.Code, Message: res.Error.Message}
	}
	return resp
}

type RefundResponse struct {
	Success  bool          `json:"success"`
	RefundID string        `json:"refundId,omitempty"`
	Status   string        `json:"status,omitempty"`
	Error    *PaymentError `json:"error,omitempty"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Handled  bool   `json:"handled"`
	Status   string `json:"status,omitempty"`
}

type PointResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Street       string  `json:"street"`
	City         string  `json:"city"`
	PostCode     string  `json:"postCode"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	OpeningHours string  `json:"openingHours,omitempty"`
}

func FromPoint(p shipping.Point) PointResponse {
	return PointResponse{
		ID:           p.ID,
		Name:         p.Name,
		Type:         string(p.Type),
		Street:       p.Address.Street,
		City:         p.Address.City,
		PostCode:     p.Address.PostCode,
		Lat:          p.Location.Lat,
		Lng:          p.Location.Lng,
		OpeningHours: p.OpeningHours,
	}
}

type RateResponse struct {
	Available     bool    `json:"available"`
	Code          string  `json:"code,omitempty"`
	Provider      string  `json:"provider,omitempty"`
	Price         float64 `json:"price,omitempty"`
	PriceNet      float64 `json:"priceNet,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	RequiresPoint bool    `json:"requiresPoint,omitempty"`
}

type ShipmentResponse struct {
	Success        bool   `json:"success"`
	ShipmentID     string `json:"shipmentId,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	LabelURL       string `json:"labelUrl,omitempty"`
	Error          string `json:"error,omitempty"`
}

type TrackingEventResponse struct {
	Status      string `json:"status"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
	Timestamp   string `json:"timestamp"`
}

type TrackingResponse struct {
	TrackingNumber string                  `json:"trackingNumber"`
	Status         string                  `json:"status"`
	Events         []TrackingEventResponse `json:"events,omitempty"`
}
