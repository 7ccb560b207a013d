package distance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/redis/go-redis/v9"

	"campusnest/market/internal/cache"
)

const geocodeKeyPrefix = "geocode:"

// Location is what the cache stores per address.
type Location struct {
	Point
	Geohash string `json:"geohash"`
}

// NewLocation fills in the geohash for p.
func NewLocation(p Point) Location {
	return Location{Point: p, Geohash: geohash.Encode(p.Lat, p.Lng)}
}

// CachedGeocoder memoises another Geocoder in Redis.
// Cache failures fall through to the wrapped geocoder.
type CachedGeocoder struct {
	next Geocoder
	rdb  redis.Cmdable
	ttl  time.Duration
}

func NewCachedGeocoder(next Geocoder, rdb redis.Cmdable, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{next: next, rdb: rdb, ttl: ttl}
}

// NormalizeAddress lowercases and collapses whitespace so equivalent spellings share a key.
func NormalizeAddress(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

func (c *CachedGeocoder) key(address string) string {
	return geocodeKeyPrefix + NormalizeAddress(address)
}

// Lookup returns the cached location including its geohash.
func (c *CachedGeocoder) Lookup(ctx context.Context, address string) (Location, error) {
	key := c.key(address)

	var loc Location
	err := cache.GetJSON(ctx, c.rdb, key, &loc)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("geocode cache read failed", "key", key, "error", err)
	}

	p, err := c.next.Geocode(ctx, address)
	if err != nil {
		return Location{}, err
	}
	loc = NewLocation(p)
	if err := cache.SetJSON(ctx, c.rdb, key, loc, c.ttl); err != nil {
		slog.Warn("geocode cache write failed", "key", key, "error", err)
	}
	return loc, nil
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (Point, error) {
	loc, err := c.Lookup(ctx, address)
	return loc.Point, err
}
