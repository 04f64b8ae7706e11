package shipping

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// geowidgetURL is InPost's public point-search endpoint. It requires no API
// key, which is why both the dedicated InPost adapter and the Furgonetka
// aggregator fall back to it.
const geowidgetURL = "https://api-pl-points.easypack24.net/v1/points"

type geowidgetPoint struct {
	Name           string   `json:"name"`
	Type           []string `json:"type"`
	AddressDetails struct {
		Street         string `json:"street"`
		BuildingNumber string `json:"building_number"`
		City           string `json:"city"`
		PostCode       string `json:"post_code"`
	} `json:"address_details"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	LocationDescription string `json:"location_description"`
	OpeningHours        string `json:"opening_hours"`
	PaymentAvailable    bool   `json:"payment_available"`
}

type geowidgetResponse struct {
	Items []geowidgetPoint `json:"items"`
}

// queryGeowidget searches the public InPost geowidget API at the given
// endpoint (the production URL in normal operation, a test server in tests).
func queryGeowidget(ctx context.Context, client *resty.Client, endpoint string, query PointQuery) ([]Point, error) {
	if endpoint == "" {
		endpoint = geowidgetURL
	}
	params := map[string]string{
		"type": "parcel_locker,pop",
	}
	if query.City != "" {
		params["city"] = query.City
	}
	if query.PostCode != "" {
		params["post_code"] = query.PostCode
	}
	if query.Lat != 0 && query.Lng != 0 {
		params["relative_point"] = fmt.Sprintf("%f,%f", query.Lat, query.Lng)
		radius := query.RadiusKm
		if radius <= 0 {
			radius = 5
		}
		params["max_distance"] = strconv.Itoa(int(radius * 1000))
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 25
	}
	params["per_page"] = strconv.Itoa(limit)

	var result geowidgetResponse
	resp, err := client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("geowidget: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("geowidget: status %d", resp.StatusCode())
	}

	points := make([]Point, 0, len(result.Items))
	for _, item := range result.Items {
		points = append(points, mapGeowidgetPoint(item))
	}
	return points, nil
}

func mapGeowidgetPoint(item geowidgetPoint) Point {
	pointType := PointTypePop
	for _, t := range item.Type {
		if t == "parcel_locker" {
			pointType = PointTypeLocker
			break
		}
	}

	name := item.LocationDescription
	if name == "" {
		name = item.Name
	}

	street := strings.TrimSpace(item.AddressDetails.Street + " " + item.AddressDetails.BuildingNumber)

	return Point{
		ID:   item.Name,
		Name: name,
		Type: pointType,
		Address: Address{
			Street:   street,
			City:     item.AddressDetails.City,
			PostCode: item.AddressDetails.PostCode,
			Country:  "PL",
		},
		Location: LatLng{
			Lat: item.Location.Latitude,
			Lng: item.Location.Longitude,
		},
		OpeningHours:     item.OpeningHours,
		PaymentAvailable: item.PaymentAvailable,
	}
}

// mockPoints returns a fixed set of three demo points in the given city.
// Used when the live point search is unavailable so checkout flows keep
// working in dev and demos.
func mockPoints(city string) []Point {
	if city == "" {
		city = "Warszawa"
	}
	return []Point{
		{
			ID:   "MOCK001",
			Name: "Paczkomat " + city + " Centrum",
			Type: PointTypeLocker,
			Address: Address{
				Street:   "ul. Główna 1",
				City:     city,
				PostCode: "00-001",
				Country:  "PL",
			},
			Location:         LatLng{Lat: 52.2297, Lng: 21.0122},
			OpeningHours:     "24/7",
			PaymentAvailable: false,
		},
		{
			ID:   "MOCK002",
			Name: "Paczkomat " + city + " Dworzec",
			Type: PointTypeLocker,
			Address: Address{
				Street:   "ul. Kolejowa 15",
				City:     city,
				PostCode: "00-002",
				Country:  "PL",
			},
			Location:         LatLng{Lat: 52.2319, Lng: 21.0067},
			OpeningHours:     "24/7",
			PaymentAvailable: false,
		},
		{
			ID:   "MOCK003",
			Name: "Punkt " + city + " Rynek",
			Type: PointTypePop,
			Address: Address{
				Street:   "ul. Rynkowa 7",
				City:     city,
				PostCode: "00-003",
				Country:  "PL",
			},
			Location:         LatLng{Lat: 52.2256, Lng: 21.0189},
			OpeningHours:     "pon-pt 8:00-20:00, sob 9:00-15:00",
			PaymentAvailable: true,
		},
	}
}
