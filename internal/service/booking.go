package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/trek-booking/internal/cache"
	"github.com/pkordes/trek-booking/internal/domain"
	"github.com/pkordes/trek-booking/internal/events"
	"github.com/pkordes/trek-booking/internal/repo"
)

// Messages shown to the person submitting the booking form.
const (
	MsgBookingSubmitted = "Booking submitted successfully!"
	MsgBookingFailed    = "Failed to submit booking. Please try again."
	MsgRequiredFields   = "Please fill in all required fields."
	MsgInvalidEmail     = "Please enter a valid email address."
	MsgInvalidPhone     = "Please enter a valid phone number."
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9\s\-()]{7,20}$`)
)

const dashboardKey = "admin:dashboard"

// BookingService takes booking inquiries and serves the admin views of them.
type BookingService struct {
	bookings repo.BookingRepo
	trips    repo.TripRepo
	cache    *cache.Cache
	inv      Invalidator
	events   EventPublisher
}

// NewBookingService constructs a BookingService.
func NewBookingService(bookings repo.BookingRepo, trips repo.TripRepo, c *cache.Cache, inv Invalidator, pub EventPublisher) *BookingService {
	return &BookingService{bookings: bookings, trips: trips, cache: c, inv: inv, events: pub}
}

// Submit validates and stores a booking inquiry with status pending.
//
// A filled honeypot yields a success result and stores nothing. Validation
// failures return a result carrying the user-facing message together with a
// domain.ErrValidation error. Group size and total price are taken as given.
func (s *BookingService) Submit(ctx context.Context, in domain.BookingInput) (domain.BookingResult, error) {
	if in.Honeypot != "" {
		slog.InfoContext(ctx, "discarding booking with filled honeypot")
		return domain.BookingResult{Success: true, Message: MsgBookingSubmitted}, nil
	}

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	tripRef := strings.TrimSpace(in.TripID)

	if tripRef == "" || name == "" || email == "" {
		return rejected(MsgRequiredFields)
	}
	if !emailPattern.MatchString(email) {
		return rejected(MsgInvalidEmail)
	}
	if phone != "" && !phonePattern.MatchString(phone) {
		return rejected(MsgInvalidPhone)
	}

	tripID, err := uuid.Parse(tripRef)
	if err != nil {
		return domain.BookingResult{Message: MsgBookingFailed},
			fmt.Errorf("service.BookingService.Submit: %w: unknown trip %q", domain.ErrNotFound, tripRef)
	}

	created, err := s.bookings.Create(ctx, domain.Booking{
		TripID:        &tripID,
		CustomerName:  name,
		CustomerEmail: email,
		CustomerPhone: phone,
		Adults:        in.Adults,
		Children:      in.Children,
		TotalPrice:    in.TotalPrice,
		Status:        domain.BookingPending,
	})
	if err != nil {
		return domain.BookingResult{Message: MsgBookingFailed}, fmt.Errorf("service.BookingService.Submit: %w", err)
	}

	invalidate(ctx, s.inv, cache.Invalidation{Tags: []string{TagBookings}})
	if err := s.events.Publish(ctx, events.KeyBookingCreated, events.NewBookingCreated(created)); err != nil {
		slog.WarnContext(ctx, "booking event not published", "booking_id", created.ID, "error", err)
	}

	return domain.BookingResult{Success: true, Message: MsgBookingSubmitted, Booking: &created}, nil
}

func rejected(msg string) (domain.BookingResult, error) {
	return domain.BookingResult{Message: msg}, fmt.Errorf("service.BookingService.Submit: %w: %s", domain.ErrValidation, msg)
}

// List returns one page of bookings, newest first.
func (s *BookingService) List(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.Booking], error) {
	items, total, err := s.bookings.ListPaged(ctx, p)
	if err != nil {
		return domain.Page[domain.Booking]{}, fmt.Errorf("service.BookingService.List: %w", err)
	}
	return domain.NewPage(items, total, p), nil
}

// Dashboard summarises trips and bookings for the admin landing page.
func (s *BookingService) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	d, err := cache.GetOrLoad(ctx, s.cache, dashboardKey, []string{TagTrips, TagBookings},
		func(ctx context.Context) (domain.Dashboard, error) {
			counts, err := s.trips.CountByStatus(ctx)
			if err != nil {
				return domain.Dashboard{}, err
			}
			stats, err := s.bookings.Stats(ctx)
			if err != nil {
				return domain.Dashboard{}, err
			}
			total := 0
			for _, n := range counts {
				total += n
			}
			return domain.Dashboard{
				TotalTrips:     total,
				PublishedTrips: counts[domain.TripStatusPublished],
				Bookings:       stats,
			}, nil
		})
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("service.BookingService.Dashboard: %w", err)
	}
	return d, nil
}
