// Package handler implements the HTTP handlers for the Trek Booking API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, booking.go, auth.go, admin.go, export.go) but share the same
// Server struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/trek-booking/internal/auth"
	"github.com/pkordes/trek-booking/internal/domain"
)

// CatalogServicer defines the trip reads the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type CatalogServicer interface {
	List(ctx context.Context, publishedOnly bool) ([]domain.TripView, error)
	GetBySlug(ctx context.Context, slug string, publishedOnly bool) (domain.TripView, error)
	GetByID(ctx context.Context, id uuid.UUID, publishedOnly bool) (domain.TripView, error)
}

// TripServicer defines the admin trip writes.
type TripServicer interface {
	Create(ctx context.Context, in domain.TripInput) (domain.WriteResult, error)
	Update(ctx context.Context, id uuid.UUID, in domain.TripInput) (domain.WriteResult, error)
	Delete(ctx context.Context, id uuid.UUID) (domain.WriteResult, error)
	DeleteImage(ctx context.Context, tripID, imageID uuid.UUID) (domain.WriteResult, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.TripStatus) (domain.WriteResult, error)
}

// BookingServicer defines the booking operations.
type BookingServicer interface {
	Submit(ctx context.Context, in domain.BookingInput) (domain.BookingResult, error)
	List(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.Booking], error)
	Dashboard(ctx context.Context) (domain.Dashboard, error)
	Export(ctx context.Context) ([]domain.Booking, error)
}

// Authenticator signs admins in and renews their sessions.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (domain.Session, error)
}

// Options carries the HTTP-level settings of the Server.
type Options struct {
	Cookies auth.CookieConfig
	// MultipartMemory is how much of a multipart body is held in memory
	// before spilling to temp files. Defaults to 8 MiB.
	MultipartMemory int64
}

// Server holds the dependencies of every handler.
type Server struct {
	catalog  CatalogServicer
	trips    TripServicer
	bookings BookingServicer
	auth     Authenticator
	opts     Options
}

// NewServer constructs the Server with all its dependencies.
func NewServer(catalog CatalogServicer, trips TripServicer, bookings BookingServicer, authn Authenticator, opts Options) *Server {
	if opts.MultipartMemory <= 0 {
		opts.MultipartMemory = 8 << 20
	}
	return &Server{catalog: catalog, trips: trips, bookings: bookings, auth: authn, opts: opts}
}

// Routes returns the API router. requireSession guards every /admin route.
func (s *Server) Routes(requireSession func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Get("/trips", s.ListTrips)
	r.Get("/trips/{slug}", s.GetTrip)
	r.Post("/bookings", s.SubmitBooking)

	r.Post("/auth/login", s.Login)
	r.Post("/auth/refresh", s.RefreshSession)
	r.Post("/auth/logout", s.Logout)

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireSession)

		r.Get("/dashboard", s.GetDashboard)
		r.Get("/bookings", s.ListBookings)
		r.Get("/bookings/export", s.ExportBookings)

		r.Get("/trips", s.AdminListTrips)
		r.Post("/trips", s.CreateTrip)
		r.Get("/trips/{id}", s.AdminGetTrip)
		r.Put("/trips/{id}", s.UpdateTrip)
		r.Patch("/trips/{id}/status", s.SetTripStatus)
		r.Delete("/trips/{id}", s.DeleteTrip)
		r.Delete("/trips/{id}/images/{imageId}", s.DeleteTripImage)
	})

	return r
}
