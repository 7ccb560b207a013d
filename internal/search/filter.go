// Package search filters and orders property listings for the student search view.
package search

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"campusnest/market/internal/models"
)

// NoBills is the bills option that matches properties without included bills.
const NoBills = "No bills"

// SortKey selects the ordering of filtered results.
type SortKey string

const (
	SortByPrice     SortKey = "price"
	SortByDistance  SortKey = "distance"
	// SortByProximity is accepted as another name for SortByDistance.
	SortByProximity SortKey = "proximity"
)

// Default price range bounds.
const (
	DefaultPriceMin = 300
	DefaultPriceMax = 2000
)

// Filter is the user-selected search state.
type Filter struct {
	Query    string
	PriceMin float64
	PriceMax float64
	Types    []models.PropertyType
	Bills    []string
	SortBy   SortKey
}

// DefaultFilter returns the initial search state.
func DefaultFilter() Filter {
	return Filter{
		PriceMin: DefaultPriceMin,
		PriceMax: DefaultPriceMax,
		SortBy:   SortByPrice,
	}
}

// Matches reports whether p satisfies every predicate in f.
func Matches(p *models.Property, f Filter) bool {
	return matchesQuery(p, f.Query) &&
		matchesPrice(p, f.PriceMin, f.PriceMax) &&
		matchesType(p, f.Types) &&
		matchesBills(p, f.Bills)
}

func matchesQuery(p *models.Property, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Address), q) ||
		strings.Contains(strings.ToLower(p.Title), q)
}

func matchesPrice(p *models.Property, lo, hi float64) bool {
	return p.Price >= lo && p.Price <= hi
}

func matchesType(p *models.Property, types []models.PropertyType) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if p.Type == t {
			return true
		}
	}
	return false
}

func matchesBills(p *models.Property, bills []string) bool {
	if len(bills) == 0 {
		return true
	}
	for _, b := range bills {
		if b == NoBills && len(p.BillsIncluded) == 0 {
			return true
		}
	}
	for _, b := range bills {
		for _, included := range p.BillsIncluded {
			if b == included {
				return true
			}
		}
	}
	return false
}

// Distances maps a property id (hex) to its distance in miles.
// A property without an entry has an undefined distance.
type Distances map[string]float64

// Apply filters props by f and orders the result by f.SortBy. The input slice is not modified.
func Apply(props []models.Property, f Filter, distances Distances) []models.Property {
	out := make([]models.Property, 0, len(props))
	for i := range props {
		if Matches(&props[i], f) {
			out = append(out, props[i])
		}
	}
	Sort(out, f.SortBy, distances)
	return out
}

// Sort orders props in place. Both orders are stable. Distance ordering places
// every property with a known distance before those without.
func Sort(props []models.Property, key SortKey, distances Distances) {
	switch key {
	case SortByDistance, SortByProximity:
		sort.SliceStable(props, func(i, j int) bool {
			di, iok := distances[props[i].ID.Hex()]
			dj, jok := distances[props[j].ID.Hex()]
			switch {
			case iok && jok:
				return di < dj
			case iok:
				return true
			default:
				return false
			}
		})
	default:
		sort.SliceStable(props, func(i, j int) bool {
			return props[i].Price < props[j].Price
		})
	}
}

// DistancesFor returns the distances to use with f. Absent a query there is
// no origin to measure from, so distances are cleared.
func DistancesFor(f Filter, distances Distances) Distances {
	if strings.TrimSpace(f.Query) == "" {
		return Distances{}
	}
	return distances
}

// ParseFilter builds a filter from query parameters:
// q, minPrice, maxPrice, type (repeatable or comma separated), bills, sortBy.
// A missing or unparseable price bound leaves that side of the range open.
// sortBy accepts distance or proximity; the server has no origin to measure
// from, so distance ordering only takes effect where distances are supplied.
func ParseFilter(v url.Values) Filter {
	f := Filter{PriceMin: 0, PriceMax: math.MaxFloat64, SortBy: SortByPrice}
	f.Query = strings.TrimSpace(v.Get("q"))
	if lo, err := strconv.ParseFloat(v.Get("minPrice"), 64); err == nil {
		f.PriceMin = lo
	}
	if hi, err := strconv.ParseFloat(v.Get("maxPrice"), 64); err == nil {
		f.PriceMax = hi
	}
	for _, t := range splitList(v["type"]) {
		f.Types = append(f.Types, models.PropertyType(strings.ToLower(t)))
	}
	f.Bills = splitList(v["bills"])
	switch SortKey(v.Get("sortBy")) {
	case SortByDistance, SortByProximity:
		f.SortBy = SortByDistance
	}
	return f
}

func splitList(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
