package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripImage is one uploaded photo of a trip.
// Position is the order the image was submitted in; gaps are left where an
// upload failed and are never reused.
type TripImage struct {
	ID          uuid.UUID `json:"id"`
	TripID      uuid.UUID `json:"trip_id"`
	StoragePath string    `json:"url"`
	ObjectKey   string    `json:"-"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// PaxType is the passenger category a price applies to.
type PaxType string

const (
	PaxAdult PaxType = "adult"
	PaxChild PaxType = "child"
)

// TripPricing is the price of one passenger type on a trip.
// There is at most one row per (trip, type).
type TripPricing struct {
	TripID uuid.UUID `json:"trip_id"`
	Type   PaxType   `json:"type"`
	Price  float64   `json:"price"`
}

// ItineraryDay is one day of a trip's schedule.
type ItineraryDay struct {
	Day         int    `json:"day"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Meta keys used to store repeatable lists against a trip.
const (
	MetaHighlight = "highlight"
	MetaIncluded  = "included"
	MetaExcluded  = "excluded"
)

// TripMeta is a generic key/value row attached to a trip.
type TripMeta struct {
	TripID uuid.UUID `json:"trip_id"`
	Key    string    `json:"key"`
	Value  string    `json:"value"`
}
