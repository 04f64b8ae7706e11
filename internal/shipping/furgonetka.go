package shipping

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/negativepl/checkout-gateway/pkg/retry"
)

const (
	furgonetkaURL        = "https://api.furgonetka.pl"
	furgonetkaSandboxURL = "https://api.sandbox.furgonetka.pl"

	furgonetkaPointPrice   = 11.99
	furgonetkaCourierPrice = 14.99
	furgonetkaCODSurcharge = 3.00

	furgonetkaTokenBuffer = 60 * time.Second
)

type FurgonetkaConfig struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Sandbox      bool
	// BaseURL overrides the aggregator endpoint, used by tests.
	BaseURL string
	// GeowidgetURL overrides the public InPost fallback endpoint, used by tests.
	GeowidgetURL string
}

// furgonetkaSender is the store's own dispatch address, embedded in every
// shipment request.
var furgonetkaSender = map[string]string{
	"name":     "Sub000 Store",
	"street":   "ul. Elektroniczna 5",
	"city":     "Warszawa",
	"postcode": "00-100",
	"email":    "wysylka@sub000.pl",
	"phone":    "+48500100200",
}

// FurgonetkaProvider wraps multiple carriers (InPost, DHL, Orlen, DPD, GLS)
// behind the Furgonetka aggregator API. When the aggregator point search
// fails for an InPost-compatible query, it falls back to the same public
// geowidget the dedicated InPost adapter uses.
type FurgonetkaProvider struct {
	cfg      FurgonetkaConfig
	http     *resty.Client
	points   *resty.Client
	logger   zerolog.Logger
	observer Observer

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// SetObserver attaches an event observer. Safe to leave unset.
func (p *FurgonetkaProvider) SetObserver(o Observer) { p.observer = o }

func NewFurgonetka(cfg FurgonetkaConfig, logger zerolog.Logger) *FurgonetkaProvider {
	base := cfg.BaseURL
	if base == "" {
		if cfg.Sandbox {
			base = furgonetkaSandboxURL
		} else {
			base = furgonetkaURL
		}
	}
	return &FurgonetkaProvider{
		cfg:    cfg,
		http:   resty.New().SetBaseURL(base).SetTimeout(30 * time.Second),
		points: resty.New().SetTimeout(15 * time.Second),
		logger: logger.With().Str("provider", "furgonetka").Logger(),
	}
}

func (p *FurgonetkaProvider) Name() string { return "Furgonetka" }
func (p *FurgonetkaProvider) Code() string { return "furgonetka" }

func (p *FurgonetkaProvider) configured() bool {
	return p.cfg.ClientID != "" && p.cfg.ClientSecret != ""
}

type furgonetkaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// getAccessToken authenticates with the password grant when user credentials
// are configured, client_credentials otherwise. The token is cached per
// instance with a one-minute refresh buffer.
func (p *FurgonetkaProvider) getAccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.tokenExpiry) {
		return p.token, nil
	}

	form := map[string]string{"grant_type": "client_credentials"}
	if p.cfg.Username != "" && p.cfg.Password != "" {
		form = map[string]string{
			"grant_type": "password",
			"username":   p.cfg.Username,
			"password":   p.cfg.Password,
			"scope":      "api",
		}
	}

	tok, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*furgonetkaTokenResponse, error) {
		var tok furgonetkaTokenResponse
		resp, err := p.http.R().
			SetContext(ctx).
			SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret).
			SetFormData(form).
			SetResult(&tok).
			Post("/oauth/token")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("furgonetka oauth: status %d", resp.StatusCode())
		}
		if tok.AccessToken == "" {
			return nil, fmt.Errorf("furgonetka oauth: empty access token")
		}
		return &tok, nil
	})
	if err != nil {
		return "", err
	}

	p.token = tok.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - furgonetkaTokenBuffer)
	return p.token, nil
}

// serviceCarrier maps the storefront's service query values to the
// aggregator's carrier codes. Żabka points are operated by DHL.
func serviceCarrier(service string) string {
	switch service {
	case "inpost":
		return "inpost"
	case "zabka":
		return "dhl"
	case "orlen":
		return "orlen"
	default:
		return ""
	}
}

type furgonetkaPointsResponse struct {
	Points []struct {
		Code        string  `json:"code"`
		Name        string  `json:"name"`
		Type        string  `json:"type"`
		Service     string  `json:"service"`
		Street      string  `json:"street"`
		City        string  `json:"city"`
		PostCode    string  `json:"postcode"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		Description string  `json:"description"`
	} `json:"points"`
}

func (p *FurgonetkaProvider) FindPoints(ctx context.Context, query PointQuery) ([]Point, error) {
	points, err := p.queryAggregatorPoints(ctx, query)
	if err == nil {
		return points, nil
	}

	// The public InPost geowidget can answer InPost-scoped (or unscoped)
	// queries when the aggregator is down; other carriers have no public
	// fallback.
	if query.Service == "" || query.Service == "inpost" {
		p.logger.Warn().Err(err).Msg("aggregator point search failed, falling back to InPost geowidget")
		if p.observer != nil {
			p.observer.PointLookupFallback("furgonetka", "geowidget")
		}
		return queryGeowidget(ctx, p.points, p.cfg.GeowidgetURL, query)
	}
	return nil, err
}

func (p *FurgonetkaProvider) queryAggregatorPoints(ctx context.Context, query PointQuery) ([]Point, error) {
	token, err := p.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"location": map[string]any{
			"coordinates": map[string]float64{
				"latitude":  query.Lat,
				"longitude": query.Lng,
			},
			"search_phrase": query.City,
		},
	}
	if query.RadiusKm > 0 {
		body["location"].(map[string]any)["radius"] = query.RadiusKm
	}
	if carrier := serviceCarrier(query.Service); carrier != "" {
		body["filters"] = map[string]any{"services": []string{carrier}}
	}

	var result furgonetkaPointsResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post("/points/map")
	if err != nil {
		return nil, fmt.Errorf("furgonetka: points: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("furgonetka: points: status %d", resp.StatusCode())
	}

	points := make([]Point, 0, len(result.Points))
	for _, item := range result.Points {
		pointType := PointTypePop
		if item.Type == "machine" || strings.Contains(item.Name, "Paczkomat") {
			pointType = PointTypeLocker
		}
		points = append(points, Point{
			ID:   item.Code,
			Name: item.Name,
			Type: pointType,
			Address: Address{
				Street:   item.Street,
				City:     item.City,
				PostCode: item.PostCode,
				Country:  "PL",
			},
			Location: LatLng{Lat: item.Latitude, Lng: item.Longitude},
			Meta:     map[string]string{"service": item.Service},
		})
	}
	return points, nil
}

// CalculateRate prices aggregator delivery. The table intentionally differs
// from the dedicated InPost adapter's; the two are separate price lists.
func (p *FurgonetkaProvider) CalculateRate(ctx context.Context, params RateParams) (*Rate, error) {
	courier := strings.Contains(params.Code, "courier")
	price := furgonetkaPointPrice
	name := "Odbiór w punkcie"
	if courier {
		price = furgonetkaCourierPrice
		name = "Kurier"
	}
	if params.CODAmount > 0 {
		price += furgonetkaCODSurcharge
	}

	return &Rate{
		ProviderID:      p.Code(),
		Code:            params.Code,
		Name:            name,
		Description:     "Dostawa przez Furgonetka.pl",
		Price:           price,
		PriceNet:        math.Round(price/1.23*100) / 100,
		DeliveryTime:    "1-3 dni robocze",
		DeliveryTimeMin: 1,
		DeliveryTimeMax: 3,
		RequiresPoint:   !courier,
	}, nil
}

// furgonetkaServiceMap translates our carrier codes to the aggregator's
// service identifiers.
var furgonetkaServiceMap = map[string]string{
	"inpost_locker":  "inpost",
	"inpost_courier": "inpost_kurier",
	"zabka":          "dhl",
	"dhl_courier":    "dhl",
	"orlen":          "orlen",
	"dpd_courier":    "dpd",
	"gls_courier":    "gls",
	"furgonetka":     "dpd",
}

type furgonetkaPackageResponse struct {
	PackageID      string `json:"package_id"`
	TrackingNumber string `json:"tracking_number"`
}

func (p *FurgonetkaProvider) CreateShipment(ctx context.Context, params ShipmentParams) (*ShipmentResult, error) {
	if !p.configured() {
		p.logger.Warn().Msg("furgonetka not configured, returning mock shipment")
		return &ShipmentResult{
			Success:        true,
			ShipmentID:     "mock_package_" + uuid.New().String()[:8],
			TrackingNumber: fmt.Sprintf("FGMOCK%d%s", params.OrderID, uuid.New().String()[:6]),
		}, nil
	}

	service, ok := furgonetkaServiceMap[params.Code]
	if !ok {
		return &ShipmentResult{Success: false, Error: fmt.Sprintf("unsupported carrier code %q", params.Code)}, nil
	}

	token, err := p.getAccessToken(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &ShipmentResult{Success: false, Error: err.Error()}, nil
	}

	receiver := map[string]any{
		"name":     params.Receiver.FirstName + " " + params.Receiver.LastName,
		"email":    params.Receiver.Email,
		"phone":    params.Receiver.Phone,
		"street":   params.Receiver.Street,
		"city":     params.Receiver.City,
		"postcode": params.Receiver.PostCode,
	}
	if params.PointID != "" {
		receiver["point"] = params.PointID
	}

	body := map[string]any{
		"service":   service,
		"sender":    furgonetkaSender,
		"receiver":  receiver,
		"reference": params.Reference,
		"parcels": []map[string]any{
			{"weight": params.WeightKg, "width": 30, "height": 20, "depth": 40},
		},
	}
	if params.CODAmount > 0 {
		body["cod"] = map[string]any{"amount": params.CODAmount, "currency": "PLN"}
	}

	var pkg furgonetkaPackageResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&pkg).
		Post("/api/v1/packages")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Error().Err(err).Msg("create package request failed")
		return &ShipmentResult{Success: false, Error: err.Error()}, nil
	}
	if resp.IsError() {
		p.logger.Error().Int("status", resp.StatusCode()).Msg("furgonetka rejected package")
		return &ShipmentResult{Success: false, Error: fmt.Sprintf("furgonetka: status %d", resp.StatusCode())}, nil
	}

	return &ShipmentResult{
		Success:        true,
		ShipmentID:     pkg.PackageID,
		TrackingNumber: pkg.TrackingNumber,
	}, nil
}

type furgonetkaStatusEntry struct {
	status      ShipmentStatus
	description string
}

// furgonetkaStatusMap is the aggregator's own 8-state vocabulary, distinct
// from InPost's substatus map.
var furgonetkaStatusMap = map[string]furgonetkaStatusEntry{
	"new":              {StatusPending, "Przesyłka zarejestrowana"},
	"ordered":          {StatusPending, "Zamówiono kuriera"},
	"dispatched":       {StatusShipped, "Przesyłka nadana"},
	"transit":          {StatusInTransit, "Przesyłka w drodze"},
	"out_for_delivery": {StatusOutForDelivery, "Przesyłka w doręczeniu"},
	"delivered":        {StatusDelivered, "Przesyłka doręczona"},
	"returned":         {StatusReturned, "Przesyłka zwrócona"},
	"exception":        {StatusFailed, "Problem z doręczeniem"},
}

func mapFurgonetkaStatus(raw string) furgonetkaStatusEntry {
	if entry, ok := furgonetkaStatusMap[raw]; ok {
		return entry
	}
	return furgonetkaStatusEntry{StatusPending, "Status: " + raw}
}

type furgonetkaTrackingResponse struct {
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
	History        []struct {
		Status      string    `json:"status"`
		Datetime    time.Time `json:"datetime"`
		Location    string    `json:"location"`
		Description string    `json:"description"`
	} `json:"history"`
}

func (p *FurgonetkaProvider) GetTracking(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	token, err := p.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("furgonetka: tracking: %w", err)
	}

	var tracking furgonetkaTrackingResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&tracking).
		Get("/api/v1/tracking/" + trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("furgonetka: tracking: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("furgonetka: tracking: status %d", resp.StatusCode())
	}

	info := &TrackingInfo{
		TrackingNumber: tracking.TrackingNumber,
		Status:         mapFurgonetkaStatus(tracking.Status).status,
	}
	for _, item := range tracking.History {
		entry := mapFurgonetkaStatus(item.Status)
		description := item.Description
		if description == "" {
			description = entry.description
		}
		info.Events = append(info.Events, TrackingEvent{
			Status:      entry.status,
			RawStatus:   item.Status,
			Description: description,
			Location:    item.Location,
			Timestamp:   item.Datetime,
		})
	}
	return info, nil
}

func (p *FurgonetkaProvider) GetLabel(ctx context.Context, shipmentID string) (string, error) {
	if !p.configured() {
		return "", fmt.Errorf("furgonetka: labels require API credentials")
	}
	return p.http.BaseURL + "/api/v1/packages/" + shipmentID + "/label", nil
}
