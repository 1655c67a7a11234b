package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trek-booking/internal/auth"
	"github.com/pkordes/trek-booking/internal/domain"
	"github.com/pkordes/trek-booking/internal/handler"
	"github.com/pkordes/trek-booking/internal/middleware"
)

// ---- mocks -----------------------------------------------------------------
// Each mock is a struct of function fields. Set only the ones a test needs;
// calling an unset one panics, which flags an unexpected call.

type mockCatalog struct {
	list      func(ctx context.Context, publishedOnly bool) ([]domain.TripView, error)
	getBySlug func(ctx context.Context, slug string, publishedOnly bool) (domain.TripView, error)
	getByID   func(ctx context.Context, id uuid.UUID, publishedOnly bool) (domain.TripView, error)
}

func (m *mockCatalog) List(ctx context.Context, publishedOnly bool) ([]domain.TripView, error) {
	return m.list(ctx, publishedOnly)
}
func (m *mockCatalog) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (domain.TripView, error) {
	return m.getBySlug(ctx, slug, publishedOnly)
}
func (m *mockCatalog) GetByID(ctx context.Context, id uuid.UUID, publishedOnly bool) (domain.TripView, error) {
	return m.getByID(ctx, id, publishedOnly)
}

type mockTrips struct {
	create      func(ctx context.Context, in domain.TripInput) (domain.WriteResult, error)
	update      func(ctx context.Context, id uuid.UUID, in domain.TripInput) (domain.WriteResult, error)
	delete      func(ctx context.Context, id uuid.UUID) (domain.WriteResult, error)
	deleteImage func(ctx context.Context, tripID, imageID uuid.UUID) (domain.WriteResult, error)
	setStatus   func(ctx context.Context, id uuid.UUID, status domain.TripStatus) (domain.WriteResult, error)
}

func (m *mockTrips) Create(ctx context.Context, in domain.TripInput) (domain.WriteResult, error) {
	return m.create(ctx, in)
}
func (m *mockTrips) Update(ctx context.Context, id uuid.UUID, in domain.TripInput) (domain.WriteResult, error) {
	return m.update(ctx, id, in)
}
func (m *mockTrips) Delete(ctx context.Context, id uuid.UUID) (domain.WriteResult, error) {
	return m.delete(ctx, id)
}
func (m *mockTrips) DeleteImage(ctx context.Context, tripID, imageID uuid.UUID) (domain.WriteResult, error) {
	return m.deleteImage(ctx, tripID, imageID)
}
func (m *mockTrips) SetStatus(ctx context.Context, id uuid.UUID, status domain.TripStatus) (domain.WriteResult, error) {
	return m.setStatus(ctx, id, status)
}

type mockBookings struct {
	submit    func(ctx context.Context, in domain.BookingInput) (domain.BookingResult, error)
	list      func(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.Booking], error)
	dashboard func(ctx context.Context) (domain.Dashboard, error)
	export    func(ctx context.Context) ([]domain.Booking, error)
}

func (m *mockBookings) Submit(ctx context.Context, in domain.BookingInput) (domain.BookingResult, error) {
	return m.submit(ctx, in)
}
func (m *mockBookings) List(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.Booking], error) {
	return m.list(ctx, p)
}
func (m *mockBookings) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	return m.dashboard(ctx)
}
func (m *mockBookings) Export(ctx context.Context) ([]domain.Booking, error) {
	return m.export(ctx)
}

type mockAuth struct {
	signIn  func(ctx context.Context, email, password string) (domain.Session, error)
	refresh func(ctx context.Context, refreshToken string) (domain.Session, error)
}

func (m *mockAuth) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	return m.signIn(ctx, email, password)
}
func (m *mockAuth) Refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	return m.refresh(ctx, refreshToken)
}

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.CatalogServicer = (*mockCatalog)(nil)
	_ handler.TripServicer    = (*mockTrips)(nil)
	_ handler.BookingServicer = (*mockBookings)(nil)
	_ handler.Authenticator   = (*mockAuth)(nil)
)

// tokenVerifier accepts exactly one access token.
type tokenVerifier struct {
	token string
	user  domain.User
}

func (v tokenVerifier) Verify(ctx context.Context) (domain.User, error) {
	if v.token == "" || auth.AccessTokenFromContext(ctx) != v.token {
		return domain.User{}, domain.ErrUnauthorized
	}
	return v.user, nil
}

var _ middleware.SessionVerifier = tokenVerifier{}

// ---- helpers ---------------------------------------------------------------

const adminToken = "admin-access-token"

// deps groups the mocks a test wires into the router. Nil fields get empty
// mocks.
type deps struct {
	catalog  *mockCatalog
	trips    *mockTrips
	bookings *mockBookings
	auth     *mockAuth
}

// newHTTPHandler wires a Server the way main.go does: the session carrier in
// front of the router and RequireSession on /admin.
func newHTTPHandler(d deps) http.Handler {
	if d.catalog == nil {
		d.catalog = &mockCatalog{}
	}
	if d.trips == nil {
		d.trips = &mockTrips{}
	}
	if d.bookings == nil {
		d.bookings = &mockBookings{}
	}
	if d.auth == nil {
		d.auth = &mockAuth{}
	}
	srv := handler.NewServer(d.catalog, d.trips, d.bookings, d.auth, handler.Options{})
	v := tokenVerifier{token: adminToken, user: domain.User{ID: uuid.New(), Email: "admin@example.com"}}
	return middleware.SessionCarrier(srv.Routes(middleware.RequireSession(v)))
}

// asAdmin attaches the access cookie tokenVerifier accepts.
func asAdmin(r *http.Request) *http.Request {
	r.AddCookie(&http.Cookie{Name: auth.AccessCookie, Value: adminToken})
	return r
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, body *bytes.Buffer) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}
