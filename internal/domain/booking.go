package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking inquiry.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a customer inquiry for a trip.
// TripID is nil once the trip it referred to has been deleted; TripTitle keeps
// the name the trip had when the booking was made.
type Booking struct {
	ID            uuid.UUID     `json:"id"`
	TripID        *uuid.UUID    `json:"trip_id"`
	TripTitle     string        `json:"trip_title"`
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email"`
	CustomerPhone string        `json:"customer_phone,omitempty"`
	Adults        int           `json:"adults"`
	Children      int           `json:"children"`
	TotalPrice    float64       `json:"total_price"`
	Status        BookingStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// BookingInput is a booking form submission.
// TotalPrice is computed by the client and stored as given.
// Honeypot is a hidden field that humans leave empty.
type BookingInput struct {
	TripID     string
	Adults     int
	Children   int
	Name       string
	Email      string
	Phone      string
	TotalPrice float64
	Honeypot   string
}

// BookingResult is the outcome shown to the person who submitted the form.
// Booking is nil when the submission was silently discarded.
type BookingResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Booking *Booking `json:"-"`
}

// BookingStats summarises bookings for the admin dashboard.
type BookingStats struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
}

// Dashboard is the admin landing page summary.
type Dashboard struct {
	TotalTrips     int          `json:"total_trips"`
	PublishedTrips int          `json:"published_trips"`
	Bookings       BookingStats `json:"bookings"`
}
