package distance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"googlemaps.github.io/maps"
)

var (
	// ErrNoResult means the geocoder found no match for the address.
	ErrNoResult = errors.New("address not found")
	// ErrEmptyAddress is returned for a blank address.
	ErrEmptyAddress = errors.New("empty address")
	// ErrGeocoderUnavailable is returned by Unavailable for every lookup.
	ErrGeocoderUnavailable = errors.New("geocoding is not configured")
)

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
}

// GoogleGeocoder resolves addresses through the Google Geocoding API.
type GoogleGeocoder struct {
	client *maps.Client
	region string
}

// NewGoogleGeocoder creates a geocoder using apiKey. baseURL overrides the API
// host and may be empty. region biases results to a ccTLD such as "uk" and may
// be empty.
func NewGoogleGeocoder(baseURL, apiKey, region string) (*GoogleGeocoder, error) {
	opts := []maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	c, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleGeocoder{client: c, region: region}, nil
}

// Geocode returns the first match for address.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (Point, error) {
	if strings.TrimSpace(address) == "" {
		return Point{}, ErrEmptyAddress
	}

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  g.region,
	})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return Point{}, ErrNoResult
		}
		return Point{}, fmt.Errorf("geocoding failed: %w", err)
	}
	if len(results) == 0 {
		return Point{}, ErrNoResult
	}
	loc := results[0].Geometry.Location
	return Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// Unavailable is the geocoder used when no API key is configured.
type Unavailable struct{}

func (Unavailable) Geocode(context.Context, string) (Point, error) {
	return Point{}, ErrGeocoderUnavailable
}
