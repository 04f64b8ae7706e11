package shipping

import (
	"context"
	"time"
)

// ShipmentStatus is the canonical shipment status. Every carrier-specific
// status string maps to exactly one of these values.
type ShipmentStatus string

const (
	StatusPending        ShipmentStatus = "pending"
	StatusShipped        ShipmentStatus = "shipped"
	StatusInTransit      ShipmentStatus = "in_transit"
	StatusOutForDelivery ShipmentStatus = "out_for_delivery"
	StatusDelivered      ShipmentStatus = "delivered"
	StatusReturned       ShipmentStatus = "returned"
	StatusFailed         ShipmentStatus = "failed"
)

type PointType string

const (
	PointTypeLocker PointType = "locker"
	PointTypePop    PointType = "pop"
)

type Address struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	PostCode string `json:"postCode"`
	Country  string `json:"country"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point is a pickup point. ID is the provider-assigned point code
// (e.g. "KRA123"), stable across lookups and used as PointID when creating
// a shipment.
type Point struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Type             PointType         `json:"type"`
	Address          Address           `json:"address"`
	Location         LatLng            `json:"location"`
	OpeningHours     string            `json:"openingHours,omitempty"`
	PaymentAvailable bool              `json:"paymentAvailable,omitempty"`
	Meta             map[string]string `json:"meta,omitempty"`
}

type PointQuery struct {
	City     string
	PostCode string
	Lat      float64
	Lng      float64
	RadiusKm float64
	// Service narrows the search to a carrier network (inpost, zabka, orlen).
	Service string
	Limit   int
}

// Rate is a priced shipping option. RequiresPoint means the caller must
// supply a PointID before creating the shipment.
type Rate struct {
	ProviderID      string  `json:"providerId"`
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Price           float64 `json:"price"`
	PriceNet        float64 `json:"priceNet,omitempty"`
	DeliveryTime    string  `json:"deliveryTime"`
	DeliveryTimeMin int     `json:"deliveryTimeMin,omitempty"`
	DeliveryTimeMax int     `json:"deliveryTimeMax,omitempty"`
	RequiresPoint   bool    `json:"requiresPoint"`
	Icon            string  `json:"icon,omitempty"`
}

type RateParams struct {
	Code      string
	WeightKg  float64
	CODAmount float64
}

type Receiver struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Street    string `json:"street"`
	City      string `json:"city"`
	PostCode  string `json:"postCode"`
}

type ShipmentParams struct {
	OrderID   int
	Reference string
	Code      string
	Receiver  Receiver
	WeightKg  float64
	PointID   string
	CODAmount float64
}

type ShipmentResult struct {
	Success        bool   `json:"success"`
	ShipmentID     string `json:"shipmentId,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	LabelURL       string `json:"labelUrl,omitempty"`
	Error          string `json:"error,omitempty"`
}

type TrackingEvent struct {
	Status      ShipmentStatus `json:"status"`
	RawStatus   string         `json:"rawStatus"`
	Description string         `json:"description"`
	Location    string         `json:"location,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

type TrackingInfo struct {
	TrackingNumber string          `json:"trackingNumber"`
	Status         ShipmentStatus  `json:"status"`
	Events         []TrackingEvent `json:"events"`
}

// Observer receives adapter-level events worth counting. Adapters treat a
// nil observer as a no-op.
type Observer interface {
	PointLookupFallback(provider, fallback string)
}

// Provider is the contract every shipping integration implements.
// CalculateRate returns (nil, nil) when the provider cannot ship the package
// (e.g. over the weight limit); that is not an error. GetTracking returns
// (nil, nil) for unknown tracking numbers.
type Provider interface {
	// Name returns the human-readable provider name.
	Name() string
	// Code returns the routing code ("inpost", "furgonetka").
	Code() string
	// FindPoints searches pickup points.
	FindPoints(ctx context.Context, query PointQuery) ([]Point, error)
	// CalculateRate prices a shipping method for a package.
	CalculateRate(ctx context.Context, params RateParams) (*Rate, error)
	// CreateShipment registers a shipment with the carrier.
	CreateShipment(ctx context.Context, params ShipmentParams) (*ShipmentResult, error)
	// GetTracking fetches tracking history for a shipment.
	GetTracking(ctx context.Context, trackingNumber string) (*TrackingInfo, error)
	// GetLabel returns a label URL for a shipment.
	GetLabel(ctx context.Context, shipmentID string) (string, error)
}
