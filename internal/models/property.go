package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PropertyType enumerates the listing kinds.
type PropertyType string

const (
	PropertyTypeFlat      PropertyType = "flat"
	PropertyTypeHouse     PropertyType = "house"
	PropertyTypeStudio    PropertyType = "studio"
	PropertyTypeApartment PropertyType = "apartment"
)

// PropertyStatus is the landlord-controlled listing state.
type PropertyStatus string

const (
	PropertyStatusActive   PropertyStatus = "active"
	PropertyStatusInactive PropertyStatus = "inactive"
	PropertyStatusRented   PropertyStatus = "rented"
)

// DefaultCurrency applies when a property carries no currency.
const DefaultCurrency = "USD"

// GeoJSON is a GeoJSON point; coordinates are [lng, lat].
type GeoJSON struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewPoint builds a GeoJSON point from latitude and longitude.
func NewPoint(lat, lng float64) *GeoJSON {
	return &GeoJSON{Type: "Point", Coordinates: []float64{lng, lat}}
}

// BillPrices holds the monthly amount per bill when bills are charged separately.
type BillPrices struct {
	Wifi        float64 `bson:"wifi" json:"wifi"`
	Water       float64 `bson:"water" json:"water"`
	Electricity float64 `bson:"electricity" json:"electricity"`
	Gas         float64 `bson:"gas" json:"gas"`
	CouncilTax  float64 `bson:"council_tax" json:"councilTax"`
}

// HouseRules are the landlord's occupancy rules.
type HouseRules struct {
	PetsAllowed    bool `bson:"pets_allowed" json:"petsAllowed"`
	SmokingAllowed bool `bson:"smoking_allowed" json:"smokingAllowed"`
	GuestsAllowed  bool `bson:"guests_allowed" json:"guestsAllowed"`
}

// Flatmate is a read-only projection of another student living at the property.
type Flatmate struct {
	ID            string   `bson:"id" json:"id"`
	Name          string   `bson:"name" json:"name"`
	Photo         string   `bson:"photo,omitempty" json:"photo,omitempty"`
	Field         string   `bson:"field,omitempty" json:"field,omitempty"`
	Year          string   `bson:"year,omitempty" json:"year,omitempty"`
	Compatibility int      `bson:"compatibility" json:"compatibility"`
	Nationality   string   `bson:"nationality,omitempty" json:"nationality,omitempty"`
	University    string   `bson:"university,omitempty" json:"university,omitempty"`
	Bio           string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Interests     []string `bson:"interests,omitempty" json:"interests,omitempty"`
	Email         string   `bson:"email,omitempty" json:"email,omitempty"`
	Phone         string   `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Property is a rentable listing as seen by students.
type Property struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Landlord          primitive.ObjectID `bson:"landlord" json:"landlord"`
	Title             string             `bson:"title" json:"title"`
	Description       string             `bson:"description" json:"description"`
	Type              PropertyType       `bson:"type" json:"type"`
	Address           string             `bson:"address" json:"address"`
	Location          *GeoJSON           `bson:"location,omitempty" json:"location,omitempty"`
	Geohash           string             `bson:"geohash,omitempty" json:"geohash,omitempty"`
	Bedrooms          int                `bson:"bedrooms" json:"bedrooms"`
	Bathrooms         int                `bson:"bathrooms" json:"bathrooms"`
	Area              float64            `bson:"area" json:"area"`
	Furnished         bool               `bson:"furnished" json:"furnished"`
	Price             float64            `bson:"price" json:"price"`
	Currency          string             `bson:"currency" json:"currency"`
	Deposit           float64            `bson:"deposit" json:"deposit"`
	Amenities         []string           `bson:"amenities" json:"amenities"`
	BillsIncluded     []string           `bson:"bills_included" json:"billsIncluded"`
	BillPrices        BillPrices         `bson:"bill_prices" json:"billPrices"`
	Images            []string           `bson:"images" json:"images"`
	MainImage         string             `bson:"main_image,omitempty" json:"mainImage,omitempty"`
	AvailableFrom     *time.Time         `bson:"available_from,omitempty" json:"availableFrom,omitempty"`
	MinimumStay       int                `bson:"minimum_stay" json:"minimumStay"`
	MaximumStay       int                `bson:"maximum_stay" json:"maximumStay"`
	AvailabilityDates []time.Time        `bson:"availability_dates" json:"availabilityDates"`
	MoveInBy          *time.Time         `bson:"move_in_by,omitempty" json:"moveInBy,omitempty"`
	HouseRules        HouseRules         `bson:"house_rules" json:"houseRules"`
	Flatmates         []Flatmate         `bson:"flatmates" json:"flatmates"`
	Status            PropertyStatus     `bson:"status" json:"status"`
	Views             int                `bson:"views" json:"views"`
	WishlistCount     int                `bson:"wishlist_count" json:"wishlistCount"`
	Timestamps        `bson:",inline"`
}

// CurrencyOrDefault returns the property currency, USD when empty.
func (p *Property) CurrencyOrDefault() string {
	if p.Currency == "" {
		return DefaultCurrency
	}
	return p.Currency
}
