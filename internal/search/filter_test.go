package search

import (
	"math"
	"math/rand"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/models"
)

func prop(title, address string, price float64, typ models.PropertyType, bills ...string) models.Property {
	return models.Property{
		ID:            primitive.NewObjectID(),
		Title:         title,
		Address:       address,
		Price:         price,
		Type:          typ,
		BillsIncluded: bills,
	}
}

func TestMatches_Query(t *testing.T) {
	p := prop("Sunny Studio", "12 Baker Street, London", 900, models.PropertyTypeStudio)
	f := DefaultFilter()

	f.Query = "baker"
	assert.True(t, Matches(&p, f), "address match is case-insensitive")
	f.Query = "SUNNY"
	assert.True(t, Matches(&p, f), "title match is case-insensitive")
	f.Query = "manchester"
	assert.False(t, Matches(&p, f))
}

func TestMatches_PriceInclusive(t *testing.T) {
	f := Filter{PriceMin: 300, PriceMax: 2000}
	lo := prop("a", "a", 300, models.PropertyTypeFlat)
	hi := prop("b", "b", 2000, models.PropertyTypeFlat)
	over := prop("c", "c", 2000.01, models.PropertyTypeFlat)
	assert.True(t, Matches(&lo, f))
	assert.True(t, Matches(&hi, f))
	assert.False(t, Matches(&over, f))
}

func TestMatches_Type(t *testing.T) {
	p := prop("a", "a", 500, models.PropertyTypeHouse)
	f := Filter{PriceMin: 0, PriceMax: 1000, Types: []models.PropertyType{models.PropertyTypeFlat}}
	assert.False(t, Matches(&p, f))
	f.Types = append(f.Types, models.PropertyTypeHouse)
	assert.True(t, Matches(&p, f))
}

func TestMatches_Bills(t *testing.T) {
	noBills := prop("a", "a", 500, models.PropertyTypeFlat)
	withWifi := prop("b", "b", 500, models.PropertyTypeFlat, "wifi", "water")
	f := Filter{PriceMin: 0, PriceMax: 1000}

	f.Bills = []string{NoBills}
	assert.True(t, Matches(&noBills, f))
	assert.False(t, Matches(&withWifi, f))

	f.Bills = []string{"wifi"}
	assert.False(t, Matches(&noBills, f))
	assert.True(t, Matches(&withWifi, f))

	f.Bills = []string{NoBills, "water"}
	assert.True(t, Matches(&noBills, f))
	assert.True(t, Matches(&withWifi, f))
}

// Random property/filter combinations; Apply must agree with an independent
// evaluation of each predicate.
func TestApply_MembershipProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	types := []models.PropertyType{models.PropertyTypeFlat, models.PropertyTypeHouse, models.PropertyTypeStudio, models.PropertyTypeApartment}
	billNames := []string{"wifi", "water", "electricity", "gas"}
	words := []string{"london", "leeds", "studio", "garden", "central"}

	for iter := 0; iter < 300; iter++ {
		var props []models.Property
		for i := 0; i < 12; i++ {
			var bills []string
			for _, b := range billNames {
				if rng.Intn(3) == 0 {
					bills = append(bills, b)
				}
			}
			props = append(props, prop(
				words[rng.Intn(len(words))]+" room",
				words[rng.Intn(len(words))]+" road",
				float64(rng.Intn(2500)),
				types[rng.Intn(len(types))],
				bills...,
			))
		}

		f := Filter{PriceMin: float64(rng.Intn(1000)), PriceMax: float64(1000 + rng.Intn(1500))}
		if rng.Intn(2) == 0 {
			f.Query = strings.ToUpper(words[rng.Intn(len(words))])
		}
		for _, typ := range types {
			if rng.Intn(4) == 0 {
				f.Types = append(f.Types, typ)
			}
		}
		for _, b := range append(billNames, NoBills) {
			if rng.Intn(5) == 0 {
				f.Bills = append(f.Bills, b)
			}
		}

		got := map[primitive.ObjectID]bool{}
		for _, p := range Apply(props, f, nil) {
			got[p.ID] = true
		}

		for _, p := range props {
			q := f.Query == "" ||
				strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.Query)) ||
				strings.Contains(strings.ToLower(p.Address), strings.ToLower(f.Query))
			price := p.Price >= f.PriceMin && p.Price <= f.PriceMax
			typ := len(f.Types) == 0
			for _, ft := range f.Types {
				typ = typ || ft == p.Type
			}
			bills := len(f.Bills) == 0
			for _, fb := range f.Bills {
				if fb == NoBills && len(p.BillsIncluded) == 0 {
					bills = true
				}
				for _, pb := range p.BillsIncluded {
					bills = bills || fb == pb
				}
			}
			assert.Equal(t, q && price && typ && bills, got[p.ID], "iteration %d property %q", iter, p.Title)
		}
	}
}

func TestSort_ByPriceStableAndNonDecreasing(t *testing.T) {
	props := []models.Property{
		prop("first-800", "x", 800, models.PropertyTypeFlat),
		prop("a", "x", 400, models.PropertyTypeFlat),
		prop("second-800", "x", 800, models.PropertyTypeFlat),
		prop("b", "x", 1200, models.PropertyTypeFlat),
	}
	Sort(props, SortByPrice, nil)

	for i := 1; i < len(props); i++ {
		assert.LessOrEqual(t, props[i-1].Price, props[i].Price)
	}
	assert.Equal(t, "first-800", props[1].Title)
	assert.Equal(t, "second-800", props[2].Title)
}

func TestSort_ByDistanceUndefinedLast(t *testing.T) {
	near := prop("near", "x", 500, models.PropertyTypeFlat)
	far := prop("far", "x", 500, models.PropertyTypeFlat)
	unknownA := prop("unknownA", "x", 500, models.PropertyTypeFlat)
	unknownB := prop("unknownB", "x", 500, models.PropertyTypeFlat)
	props := []models.Property{unknownA, far, unknownB, near}
	d := Distances{near.ID.Hex(): 0.4, far.ID.Hex(): 12.3}

	Sort(props, SortByDistance, d)

	require.Len(t, props, 4)
	assert.Equal(t, []string{"near", "far", "unknownA", "unknownB"},
		[]string{props[0].Title, props[1].Title, props[2].Title, props[3].Title})
}

func TestSort_ByDistanceProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 100; iter++ {
		var props []models.Property
		d := Distances{}
		for i := 0; i < 10; i++ {
			p := prop("p", "x", 500, models.PropertyTypeFlat)
			if rng.Intn(3) > 0 {
				d[p.ID.Hex()] = float64(rng.Intn(50)) / 10
			}
			props = append(props, p)
		}
		Sort(props, SortByDistance, d)

		seenUndefined := false
		last := -1.0
		for _, p := range props {
			dist, ok := d[p.ID.Hex()]
			if !ok {
				seenUndefined = true
				continue
			}
			assert.False(t, seenUndefined, "defined distance after undefined")
			assert.GreaterOrEqual(t, dist, last)
			last = dist
		}
	}
}

func TestDistancesFor_ClearsWithoutQuery(t *testing.T) {
	d := Distances{"abc": 1.5}
	assert.Empty(t, DistancesFor(Filter{Query: "  "}, d))
	assert.Equal(t, d, DistancesFor(Filter{Query: "leeds"}, d))
}

func TestParseFilter(t *testing.T) {
	v := url.Values{
		"q":        {" Camden "},
		"minPrice": {"450"},
		"maxPrice": {"oops"},
		"type":     {"Flat,studio", "house"},
		"bills":    {"wifi,No bills"},
		"sortBy":   {"distance"},
	}
	f := ParseFilter(v)
	assert.Equal(t, "Camden", f.Query)
	assert.Equal(t, 450.0, f.PriceMin)
	assert.Equal(t, math.MaxFloat64, f.PriceMax)
	assert.Equal(t, []models.PropertyType{"flat", "studio", "house"}, f.Types)
	assert.Equal(t, []string{"wifi", NoBills}, f.Bills)
	assert.Equal(t, SortByDistance, f.SortBy)
}

func TestParseFilter_OpenPriceRange(t *testing.T) {
	f := ParseFilter(url.Values{})
	assert.Equal(t, 0.0, f.PriceMin)
	assert.Equal(t, math.MaxFloat64, f.PriceMax)
	assert.Equal(t, SortByPrice, f.SortBy)

	f = ParseFilter(url.Values{"type": {"flat"}})
	assert.True(t, Matches(&models.Property{Type: "flat", Price: 2500}, f))
	assert.True(t, Matches(&models.Property{Type: "flat", Price: 120}, f))
	assert.False(t, Matches(&models.Property{Type: "house", Price: 900}, f))
}

func TestParseFilter_ProximityAlias(t *testing.T) {
	assert.Equal(t, SortByDistance, ParseFilter(url.Values{"sortBy": {"proximity"}}).SortBy)
	assert.Equal(t, SortByPrice, ParseFilter(url.Values{"sortBy": {"rating"}}).SortBy)
}

func TestSort_ProximityKey(t *testing.T) {
	a := models.Property{ID: primitive.NewObjectID(), Price: 100}
	b := models.Property{ID: primitive.NewObjectID(), Price: 200}
	props := []models.Property{a, b}
	Sort(props, SortByProximity, Distances{b.ID.Hex(): 1})
	assert.Equal(t, b.ID, props[0].ID)
}
