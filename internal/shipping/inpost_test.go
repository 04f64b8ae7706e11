package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInPostCalculateRate(t *testing.T) {
	provider := NewInPost(InPostConfig{}, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name          string
		params        RateParams
		wantPrice     float64
		requiresPoint bool
	}{
		{"locker", RateParams{Code: "inpost_locker", WeightKg: 2}, 12.99, true},
		{"locker by default", RateParams{WeightKg: 2}, 12.99, true},
		{"courier", RateParams{Code: "inpost_courier", WeightKg: 2}, 15.99, false},
		{"locker with COD", RateParams{Code: "inpost_locker", WeightKg: 2, CODAmount: 99.99}, 15.99, true},
		{"courier with COD", RateParams{Code: "inpost_courier", WeightKg: 2, CODAmount: 50}, 18.99, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := provider.CalculateRate(ctx, tt.params)
			require.NoError(t, err)
			require.NotNil(t, rate)
			assert.InDelta(t, tt.wantPrice, rate.Price, 0.001)
			assert.Equal(t, tt.requiresPoint, rate.RequiresPoint)
			assert.Greater(t, rate.PriceNet, 0.0)
			assert.Less(t, rate.PriceNet, rate.Price)
		})
	}
}

func TestInPostCalculateRate_OverWeightLimit(t *testing.T) {
	provider := NewInPost(InPostConfig{}, zerolog.Nop())

	rate, err := provider.CalculateRate(context.Background(), RateParams{Code: "inpost_courier", WeightKg: 26})
	require.NoError(t, err)
	assert.Nil(t, rate)
}

func TestParcelTemplate(t *testing.T) {
	assert.Equal(t, "small", parcelTemplate(0.5))
	assert.Equal(t, "small", parcelTemplate(5))
	assert.Equal(t, "medium", parcelTemplate(7))
	assert.Equal(t, "medium", parcelTemplate(10))
	assert.Equal(t, "large", parcelTemplate(11))
}

func TestInPostFindPoints_MockFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	provider := NewInPost(InPostConfig{GeowidgetURL: srv.URL}, zerolog.Nop())

	points, err := provider.FindPoints(context.Background(), PointQuery{City: "Kraków"})
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, "MOCK001", points[0].ID)
	assert.Equal(t, PointTypeLocker, points[0].Type)
	assert.Equal(t, "Kraków", points[0].Address.City)
	assert.Equal(t, PointTypePop, points[2].Type)
}

func TestInPostFindPoints_NoFallbackWithoutLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	provider := NewInPost(InPostConfig{GeowidgetURL: srv.URL}, zerolog.Nop())

	_, err := provider.FindPoints(context.Background(), PointQuery{})
	assert.Error(t, err)
}

func TestInPostFindPoints_MapsGeowidgetItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Kraków", r.URL.Query().Get("city"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"name":"KRA010","type":["parcel_locker"],"address_details":{"street":"Rynek","city":"Kraków","post_code":"31-042"},"location":{"latitude":50.06,"longitude":19.94},"location_description":"Przy rynku"}]}`))
	}))
	defer srv.Close()

	provider := NewInPost(InPostConfig{GeowidgetURL: srv.URL}, zerolog.Nop())

	points, err := provider.FindPoints(context.Background(), PointQuery{City: "Kraków"})
	require.NoError(t, err)

	require.Len(t, points, 1)
	assert.Equal(t, "KRA010", points[0].ID)
	assert.Equal(t, PointTypeLocker, points[0].Type)
	assert.Equal(t, "Kraków", points[0].Address.City)
	assert.InDelta(t, 50.06, points[0].Location.Lat, 0.001)
}

func TestInPostCreateShipment_MockWhenUnconfigured(t *testing.T) {
	provider := NewInPost(InPostConfig{}, zerolog.Nop())

	result, err := provider.CreateShipment(context.Background(), ShipmentParams{OrderID: 42, Code: "inpost_locker", PointID: "KRA010"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Contains(t, result.ShipmentID, "mock_shipment_")
	assert.Contains(t, result.TrackingNumber, "MOCK42")
}

func TestMapInPostStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want ShipmentStatus
	}{
		{"created", StatusPending},
		{"confirmed", StatusPending},
		{"dispatched_by_sender", StatusShipped},
		{"adopted_at_sorting_center", StatusInTransit},
		{"out_for_delivery", StatusOutForDelivery},
		{"ready_to_pickup", StatusOutForDelivery},
		{"delivered", StatusDelivered},
		{"returned_to_sender", StatusReturned},
		{"avizo", StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			entry := mapInPostStatus(tt.raw)
			assert.Equal(t, tt.want, entry.status)
			assert.NotEmpty(t, entry.description)
		})
	}
}

func TestMapInPostStatus_Unknown(t *testing.T) {
	entry := mapInPostStatus("some_new_substatus")
	assert.Equal(t, StatusPending, entry.status)
	assert.Contains(t, entry.description, "some_new_substatus")
}

func TestInPostGetTracking_UnknownNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	provider := NewInPost(InPostConfig{APIToken: "tok", OrganizationID: "1", BaseURL: srv.URL}, zerolog.Nop())

	info, err := provider.GetTracking(context.Background(), "NOPE123")
	require.NoError(t, err)
	assert.Nil(t, info)
}
