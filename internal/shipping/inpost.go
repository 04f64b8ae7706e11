package shipping

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	inpostShipXURL        = "https://api-shipx-pl.easypack24.net"
	inpostShipXSandboxURL = "https://sandbox-api-shipx-pl.easypack24.net"

	inpostMaxWeightKg = 25

	inpostLockerPrice  = 12.99
	inpostCourierPrice = 15.99
	inpostCODSurcharge = 3.00
)

type InPostConfig struct {
	APIToken       string
	OrganizationID string
	Sandbox        bool
	// BaseURL overrides the ShipX endpoint, used by tests.
	BaseURL string
	// GeowidgetURL overrides the public point-search endpoint, used by tests.
	GeowidgetURL string
}

// InPostProvider talks to the public geowidget API for point search and the
// ShipX API for shipments. Without an API token, shipment creation degrades
// to mock results.
type InPostProvider struct {
	cfg      InPostConfig
	http     *resty.Client
	points   *resty.Client
	logger   zerolog.Logger
	observer Observer
}

// SetObserver attaches an event observer. Safe to leave unset.
func (p *InPostProvider) SetObserver(o Observer) { p.observer = o }

func NewInPost(cfg InPostConfig, logger zerolog.Logger) *InPostProvider {
	base := cfg.BaseURL
	if base == "" {
		if cfg.Sandbox {
			base = inpostShipXSandboxURL
		} else {
			base = inpostShipXURL
		}
	}
	client := resty.New().
		SetBaseURL(base).
		SetAuthToken(cfg.APIToken).
		SetTimeout(30 * time.Second)

	points := resty.New().SetTimeout(15 * time.Second)

	return &InPostProvider{
		cfg:    cfg,
		http:   client,
		points: points,
		logger: logger.With().Str("provider", "inpost").Logger(),
	}
}

func (p *InPostProvider) Name() string { return "InPost" }
func (p *InPostProvider) Code() string { return "inpost" }

func (p *InPostProvider) configured() bool {
	return p.cfg.APIToken != "" && p.cfg.OrganizationID != ""
}

func (p *InPostProvider) FindPoints(ctx context.Context, query PointQuery) ([]Point, error) {
	points, err := p.queryPoints(ctx, query)
	if err != nil {
		// Degrade gracefully: a city- or postcode-scoped query gets a fixed
		// demo list instead of an error.
		if query.City != "" || query.PostCode != "" {
			p.logger.Warn().Err(err).Str("city", query.City).Msg("point search failed, returning mock points")
			if p.observer != nil {
				p.observer.PointLookupFallback("inpost", "mock")
			}
			city := query.City
			if city == "" {
				city = query.PostCode
			}
			return mockPoints(city), nil
		}
		return nil, err
	}
	return points, nil
}

func (p *InPostProvider) queryPoints(ctx context.Context, query PointQuery) ([]Point, error) {
	return queryGeowidget(ctx, p.points, p.cfg.GeowidgetURL, query)
}

// CalculateRate prices InPost delivery. Pricing is static; packages over
// 25 kg cannot be shipped and yield a nil rate.
func (p *InPostProvider) CalculateRate(ctx context.Context, params RateParams) (*Rate, error) {
	if params.WeightKg > inpostMaxWeightKg {
		return nil, nil
	}

	locker := params.Code == "" || params.Code == "inpost_locker" || params.Code == "inpost"
	price := inpostCourierPrice
	name := "InPost Kurier"
	description := "Dostawa kurierem InPost"
	if locker {
		price = inpostLockerPrice
		name = "InPost Paczkomat"
		description = "Dostawa do Paczkomatu 24/7"
	}
	if params.CODAmount > 0 {
		price += inpostCODSurcharge
	}

	code := params.Code
	if code == "" {
		code = "inpost_locker"
	}

	return &Rate{
		ProviderID:      p.Code(),
		Code:            code,
		Name:            name,
		Description:     description,
		Price:           price,
		PriceNet:        math.Round(price/1.23*100) / 100,
		DeliveryTime:    "1-2 dni robocze",
		DeliveryTimeMin: 1,
		DeliveryTimeMax: 2,
		RequiresPoint:   locker,
	}, nil
}

// parcelTemplate buckets a weight into InPost's parcel templates.
func parcelTemplate(weightKg float64) string {
	switch {
	case weightKg <= 5:
		return "small"
	case weightKg <= 10:
		return "medium"
	default:
		return "large"
	}
}

type inpostShipmentRequest struct {
	Receiver struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		Address   *struct {
			Street   string `json:"street"`
			City     string `json:"city"`
			PostCode string `json:"post_code"`
			Country  string `json:"country_code"`
		} `json:"address,omitempty"`
	} `json:"receiver"`
	Parcels []struct {
		Template string `json:"template"`
	} `json:"parcels"`
	Service          string            `json:"service"`
	Reference        string            `json:"reference,omitempty"`
	CustomAttributes map[string]string `json:"custom_attributes,omitempty"`
	COD              *struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"cod,omitempty"`
}

type inpostShipmentResponse struct {
	ID             int    `json:"id"`
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
}

func (p *InPostProvider) CreateShipment(ctx context.Context, params ShipmentParams) (*ShipmentResult, error) {
	if !p.configured() {
		p.logger.Warn().Msg("inpost not configured, returning mock shipment")
		return &ShipmentResult{
			Success:        true,
			ShipmentID:     "mock_shipment_" + uuid.New().String()[:8],
			TrackingNumber: fmt.Sprintf("MOCK%d%s", params.OrderID, uuid.New().String()[:6]),
		}, nil
	}

	req := inpostShipmentRequest{Service: "inpost_courier_standard"}
	req.Receiver.FirstName = params.Receiver.FirstName
	req.Receiver.LastName = params.Receiver.LastName
	req.Receiver.Email = params.Receiver.Email
	req.Receiver.Phone = params.Receiver.Phone
	req.Parcels = append(req.Parcels, struct {
		Template string `json:"template"`
	}{Template: parcelTemplate(params.WeightKg)})
	req.Reference = params.Reference

	if params.PointID != "" {
		req.Service = "inpost_locker_standard"
		req.CustomAttributes = map[string]string{"target_point": params.PointID}
	} else {
		req.Receiver.Address = &struct {
			Street   string `json:"street"`
			City     string `json:"city"`
			PostCode string `json:"post_code"`
			Country  string `json:"country_code"`
		}{
			Street:   params.Receiver.Street,
			City:     params.Receiver.City,
			PostCode: params.Receiver.PostCode,
			Country:  "PL",
		}
	}
	if params.CODAmount > 0 {
		req.COD = &struct {
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		}{Amount: params.CODAmount, Currency: "PLN"}
	}

	var shipment inpostShipmentResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&shipment).
		Post("/v1/organizations/" + p.cfg.OrganizationID + "/shipments")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Error().Err(err).Msg("create shipment request failed")
		return &ShipmentResult{Success: false, Error: err.Error()}, nil
	}
	if resp.IsError() {
		p.logger.Error().Int("status", resp.StatusCode()).Msg("inpost rejected shipment")
		return &ShipmentResult{Success: false, Error: fmt.Sprintf("inpost: status %d", resp.StatusCode())}, nil
	}

	return &ShipmentResult{
		Success:        true,
		ShipmentID:     fmt.Sprintf("%d", shipment.ID),
		TrackingNumber: shipment.TrackingNumber,
	}, nil
}

type inpostStatusEntry struct {
	status      ShipmentStatus
	description string
}

// inpostStatusMap maps InPost's lifecycle substatuses onto the canonical
// enum, with Polish descriptions for the storefront tracking UI.
var inpostStatusMap = map[string]inpostStatusEntry{
	"created":                   {StatusPending, "Przesyłka utworzona"},
	"offers_prepared":           {StatusPending, "Przygotowano oferty"},
	"offer_selected":            {StatusPending, "Wybrano ofertę"},
	"confirmed":                 {StatusPending, "Przesyłka potwierdzona"},
	"dispatched_by_sender":      {StatusShipped, "Nadana przez nadawcę"},
	"collected_from_sender":     {StatusShipped, "Odebrana od nadawcy"},
	"taken_by_courier":          {StatusShipped, "Przyjęta przez kuriera"},
	"adopted_at_source_branch":  {StatusInTransit, "Przyjęta w oddziale nadawczym"},
	"sent_from_source_branch":   {StatusInTransit, "Wysłana z oddziału nadawczego"},
	"adopted_at_sorting_center": {StatusInTransit, "Przyjęta w sortowni"},
	"sent_from_sorting_center":  {StatusInTransit, "Wysłana z sortowni"},
	"adopted_at_target_branch":  {StatusInTransit, "Przyjęta w oddziale docelowym"},
	"out_for_delivery":          {StatusOutForDelivery, "Wydana do doręczenia"},
	"ready_to_pickup":           {StatusOutForDelivery, "Gotowa do odbioru w punkcie"},
	"pickup_reminder_sent":      {StatusOutForDelivery, "Wysłano przypomnienie o odbiorze"},
	"delivered":                 {StatusDelivered, "Doręczona"},
	"pickup_time_expired":       {StatusReturned, "Minął termin odbioru"},
	"returned_to_sender":        {StatusReturned, "Zwrócona do nadawcy"},
	"avizo":                     {StatusFailed, "Awizo - nieudana próba doręczenia"},
	"claimed":                   {StatusFailed, "Zgłoszono reklamację"},
}

func mapInPostStatus(raw string) inpostStatusEntry {
	if entry, ok := inpostStatusMap[raw]; ok {
		return entry
	}
	return inpostStatusEntry{StatusPending, "Status: " + raw}
}

type inpostTrackingResponse struct {
	TrackingNumber  string `json:"tracking_number"`
	Status          string `json:"status"`
	TrackingDetails []struct {
		Status   string    `json:"status"`
		Datetime time.Time `json:"datetime"`
		Location string    `json:"location"`
	} `json:"tracking_details"`
}

func (p *InPostProvider) GetTracking(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	var tracking inpostTrackingResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&tracking).
		Get("/v1/tracking/" + trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("inpost: tracking: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("inpost: tracking: status %d", resp.StatusCode())
	}

	info := &TrackingInfo{
		TrackingNumber: tracking.TrackingNumber,
		Status:         mapInPostStatus(tracking.Status).status,
	}
	for _, detail := range tracking.TrackingDetails {
		entry := mapInPostStatus(detail.Status)
		info.Events = append(info.Events, TrackingEvent{
			Status:      entry.status,
			RawStatus:   detail.Status,
			Description: entry.description,
			Location:    detail.Location,
			Timestamp:   detail.Datetime,
		})
	}
	return info, nil
}

func (p *InPostProvider) GetLabel(ctx context.Context, shipmentID string) (string, error) {
	if !p.configured() {
		return "", fmt.Errorf("inpost: labels require API credentials")
	}
	return p.http.BaseURL + "/v1/shipments/" + shipmentID + "/label", nil
}
