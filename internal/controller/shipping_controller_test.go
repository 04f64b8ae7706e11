package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negativepl/checkout-gateway/internal/shipping"
	"github.com/negativepl/checkout-gateway/internal/testutil"
)

func shippingRouter(providers ...shipping.Provider) http.Handler {
	handler := NewShippingController(shipping.NewRegistry(providers...), nil)
	r := chi.NewRouter()
	r.Get("/shipping/points", handler.FindPoints)
	r.Post("/shipping/rates", handler.CalculateRate)
	r.Post("/shipping/shipments", handler.CreateShipment)
	r.Get("/shipping/tracking/{provider}/{trackingNumber}", handler.GetTracking)
	r.Get("/shipping/labels/{provider}/{shipmentId}", handler.GetLabel)
	return r
}

func TestFindPoints_DefaultsToInPost(t *testing.T) {
	var gotQuery shipping.PointQuery
	inpost := &testutil.MockShippingProvider{
		ProviderCode: "inpost",
		FindPointsFunc: func(ctx context.Context, query shipping.PointQuery) ([]shipping.Point, error) {
			gotQuery = query
			return []shipping.Point{{
				ID:   "KRA010",
				Name: "Paczkomat KRA010",
				Type: shipping.PointTypeLocker,
				Address: shipping.Address{
					Street:   "ul. Karmelicka 10",
					City:     "Kraków",
					PostCode: "31-128",
				},
				Location: shipping.LatLng{Lat: 50.06, Lng: 19.93},
			}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/shipping/points?city=Krak%C3%B3w&postCode=31-128&limit=5", nil)
	rec := httptest.NewRecorder()
	shippingRouter(inpost).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Kraków", gotQuery.City)
	assert.Equal(t, "31-128", gotQuery.PostCode)
	assert.Equal(t, 5, gotQuery.Limit)

	var resp struct {
		Points []PointResponse `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Points, 1)
	assert.Equal(t, "KRA010", resp.Points[0].ID)
	assert.Equal(t, "ul. Karmelicka 10", resp.Points[0].Street)
	assert.InDelta(t, 50.06, resp.Points[0].Lat, 0.001)
}

func TestCalculateRate_Available(t *testing.T) {
	provider := &testutil.MockShippingProvider{
		ProviderCode: "furgonetka",
		CalculateRateFunc: func(ctx context.Context, params shipping.RateParams) (*shipping.Rate, error) {
			assert.Equal(t, "dpd_courier", params.Code)
			assert.InDelta(t, 2.5, params.WeightKg, 0.001)
			return &shipping.Rate{ProviderID: "furgonetka", Code: params.Code, Price: 14.99}, nil
		},
	}

	body := `{"code": "dpd_courier", "weightKg": 2.5}`
	req := httptest.NewRequest(http.MethodPost, "/shipping/rates", strings.NewReader(body))
	rec := httptest.NewRecorder()
	shippingRouter(provider).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp RateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Available)
	assert.InDelta(t, 14.99, resp.Price, 0.001)
	assert.Equal(t, "PLN", resp.Currency)
}

func TestCalculateRate_Unavailable(t *testing.T) {
	provider := &testutil.MockShippingProvider{
		ProviderCode: "furgonetka",
		CalculateRateFunc: func(ctx context.Context, params shipping.RateParams) (*shipping.Rate, error) {
			return nil, nil
		},
	}

	body := `{"code": "dpd_courier", "weightKg": 40}`
	req := httptest.NewRequest(http.MethodPost, "/shipping/rates", strings.NewReader(body))
	rec := httptest.NewRecorder()
	shippingRouter(provider).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp RateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Available)
}

func TestCalculateRate_UnknownMethod(t *testing.T) {
	body := `{"code": "poczta_polska"}`
	req := httptest.NewRequest(http.MethodPost, "/shipping/rates", strings.NewReader(body))
	rec := httptest.NewRecorder()
	shippingRouter(&testutil.MockShippingProvider{ProviderCode: "inpost"}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "provider_not_found", decodeError(t, rec).Code)
}

func TestCreateShipment(t *testing.T) {
	var gotParams shipping.ShipmentParams
	provider := &testutil.MockShippingProvider{
		ProviderCode: "inpost",
		CreateShipmentFunc: func(ctx context.Context, params shipping.ShipmentParams) (*shipping.ShipmentResult, error) {
			gotParams = params
			return &shipping.ShipmentResult{Success: true, ShipmentID: "shp_1", TrackingNumber: "624000123"}, nil
		},
	}

	body := `{
		"code": "inpost",
		"orderId": 42,
		"reference": "REF001",
		"receiver": {
			"email": "jan.kowalski@example.com",
			"phone": "+48123456789",
			"firstName": "Jan",
			"lastName": "Kowalski"
		},
		"pointId": "KRA010",
		"weightKg": 1.5
	}`
	req := httptest.NewRequest(http.MethodPost, "/shipping/shipments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	shippingRouter(provider).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 42, gotParams.OrderID)
	assert.Equal(t, "KRA010", gotParams.PointID)
	assert.Equal(t, "Jan", gotParams.Receiver.FirstName)

	var resp ShipmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "624000123", resp.TrackingNumber)
}

func TestGetTracking(t *testing.T) {
	provider := &testutil.MockShippingProvider{
		ProviderCode: "inpost",
		GetTrackingFunc: func(ctx context.Context, trackingNumber string) (*shipping.TrackingInfo, error) {
			require.Equal(t, "624000123", trackingNumber)
			return &shipping.TrackingInfo{
				TrackingNumber: trackingNumber,
				Status:         shipping.StatusInTransit,
				Events: []shipping.TrackingEvent{{
					Status:      shipping.StatusInTransit,
					Description: "W drodze",
					Timestamp:   time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
				}},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/shipping/tracking/inpost/624000123", nil)
	rec := httptest.NewRecorder()
	shippingRouter(provider).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TrackingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "624000123", resp.TrackingNumber)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "W drodze", resp.Events[0].Description)
	assert.Equal(t, "2026-08-29T10:00:00Z", resp.Events[0].Timestamp)
}

func TestGetTracking_NotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/shipping/tracking/inpost/missing", nil)
	rec := httptest.NewRecorder()
	shippingRouter(&testutil.MockShippingProvider{ProviderCode: "inpost"}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "shipment_not_found", decodeError(t, rec).Code)
}

func TestGetLabel(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/shipping/labels/inpost/shp_1", nil)
	rec := httptest.NewRecorder()
	shippingRouter(&testutil.MockShippingProvider{ProviderCode: "inpost"}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://example.com/labels/shp_1", resp["labelUrl"])
}
