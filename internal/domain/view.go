package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripView is the denormalised read model of a trip, assembled from the trip
// row and its images, pricing, itinerary and meta rows.
type TripView struct {
	ID           uuid.UUID      `json:"id"`
	Slug         string         `json:"slug"`
	Title        string         `json:"title"`
	Images       []string       `json:"images"`
	ImageDetails []TripImage    `json:"imageDetails"`
	Days         int            `json:"days"`
	Location     string         `json:"location"`
	Price        float64        `json:"price"`
	ChildPrice   float64        `json:"childPrice"`
	Difficulty   Difficulty     `json:"difficulty"`
	IsLastMinute bool           `json:"isLastMinute"`
	Overview     string         `json:"overview"`
	Highlights   []string       `json:"highlights"`
	MaxAltitude  string         `json:"maxAltitude"`
	BestSeason   string         `json:"bestSeason"`
	StartPoint   string         `json:"startPoint"`
	EndPoint     string         `json:"endPoint"`
	MinPax       int            `json:"minPax"`
	MaxPax       int            `json:"maxPax"`
	Itinerary    []ItineraryDay `json:"itinerary"`
	Included     []string       `json:"included"`
	Excluded     []string       `json:"excluded"`
	PDFPath      *string        `json:"pdf_path,omitempty"`
	Status       TripStatus     `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// AcceptsPax reports whether a party of adults+children falls inside the
// trip's group size bounds. Booking submission does not enforce this; it is
// exposed for clients that want to pre-check a request.
func (v TripView) AcceptsPax(adults, children int) bool {
	n := adults + children
	return n >= v.MinPax && n <= v.MaxPax
}
