package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trek-booking/internal/domain"
)

// BookingCreated is published under KeyBookingCreated after a booking is
// stored.
type BookingCreated struct {
	BookingID     uuid.UUID `json:"booking_id"`
	TripID        uuid.UUID `json:"trip_id"`
	TripTitle     string    `json:"trip_title"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Adults        int       `json:"adults"`
	Children      int       `json:"children"`
	TotalPrice    float64   `json:"total_price"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewBookingCreated(b domain.Booking) BookingCreated {
	ev := BookingCreated{
		BookingID:     b.ID,
		TripTitle:     b.TripTitle,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		Adults:        b.Adults,
		Children:      b.Children,
		TotalPrice:    b.TotalPrice,
		CreatedAt:     b.CreatedAt,
	}
	if b.TripID != nil {
		ev.TripID = *b.TripID
	}
	return ev
}
