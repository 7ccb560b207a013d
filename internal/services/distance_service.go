package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/distance"
)

// ErrOriginNotFound is returned when the search origin cannot be geocoded.
var ErrOriginNotFound = errors.New("could not locate the search origin")

// MaxDistanceBatch bounds a single distance request.
const MaxDistanceBatch = 200

// DistanceReport maps property id to miles. Failed lists ids that could not
// be measured; they have no entry in Distances.
type DistanceReport struct {
	Distances map[string]float64 `json:"distances"`
	Failed    []string           `json:"failed"`
}

// IDistanceService measures distances from a free-text origin to properties.
type IDistanceService interface {
	Compute(ctx context.Context, origin string, propertyIDs []string) (*DistanceReport, error)
}

type distanceService struct {
	properties IPropertyService
	calc       *distance.Calculator
	jobs       JobQueue
}

// NewDistanceService creates a new DistanceService. Properties measured by
// address are queued for geocoding so later requests use stored coordinates.
func NewDistanceService(properties IPropertyService, calc *distance.Calculator, jobs JobQueue) IDistanceService {
	if jobs == nil {
		jobs = NoopQueue{}
	}
	return &distanceService{properties: properties, calc: calc, jobs: jobs}
}

// Compute geocodes origin once and measures every property concurrently.
// Stored coordinates are used when a property has them; otherwise its
// address is geocoded. One property failing does not affect the others.
func (s *distanceService) Compute(ctx context.Context, origin string, propertyIDs []string) (*DistanceReport, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return nil, fmt.Errorf("%w: origin is required", ErrInvalidInput)
	}
	if len(propertyIDs) > MaxDistanceBatch {
		return nil, fmt.Errorf("%w: at most %d properties per request", ErrInvalidInput, MaxDistanceBatch)
	}

	report := &DistanceReport{Distances: map[string]float64{}, Failed: []string{}}
	ids := make([]primitive.ObjectID, 0, len(propertyIDs))
	for _, raw := range propertyIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			report.Failed = append(report.Failed, raw)
			continue
		}
		ids = append(ids, id)
	}

	props, err := s.properties.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[primitive.ObjectID]bool, len(props))
	byAddress := make(map[string]bool)
	targets := make([]distance.Target, 0, len(props))
	for _, p := range props {
		found[p.ID] = true
		t := distance.Target{ID: p.ID.Hex(), Address: p.Address}
		if p.Location != nil && len(p.Location.Coordinates) == 2 {
			t.Location = &distance.Point{Lat: p.Location.Coordinates[1], Lng: p.Location.Coordinates[0]}
		} else {
			byAddress[t.ID] = true
		}
		targets = append(targets, t)
	}
	for _, id := range ids {
		if !found[id] {
			report.Failed = append(report.Failed, id.Hex())
		}
	}

	results, err := s.calc.Batch(ctx, origin, targets)
	if err != nil {
		if errors.Is(err, distance.ErrNoResult) || errors.Is(err, distance.ErrEmptyAddress) {
			return nil, ErrOriginNotFound
		}
		return nil, err
	}
	for id, miles := range results.Distances() {
		report.Distances[id] = miles
	}
	for _, r := range results {
		if r.Err != nil {
			slog.Debug("Distance lookup failed", "property", r.ID, "error", r.Err)
			continue
		}
		if byAddress[r.ID] {
			if err := s.jobs.EnqueueGeocode(ctx, r.ID); err != nil {
				slog.Warn("Failed to enqueue geocode", "property", r.ID, "error", err)
			}
		}
	}
	report.Failed = append(report.Failed, results.FailedIDs()...)
	return report, nil
}
