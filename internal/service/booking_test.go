package service_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trek-booking/internal/cache"
	"github.com/pkordes/trek-booking/internal/domain"
	"github.com/pkordes/trek-booking/internal/events"
	"github.com/pkordes/trek-booking/internal/service"
)

type bookingHarness struct {
	db   *memDB
	inv  *recordingInvalidator
	pub  *mockPublisher
	svc  *service.BookingService
	trip domain.Trip
}

func newBookingHarness(t *testing.T) *bookingHarness {
	t.Helper()
	db := newMemDB()
	c := cache.New(time.Hour)
	h := &bookingHarness{db: db, inv: &recordingInvalidator{next: c}, pub: &mockPublisher{}}
	h.svc = service.NewBookingService(db.repos().Bookings, db.repos().Trips, c, h.inv, h.pub)
	h.trip = seedTrip(t, db, "Langtang Valley", "langtang-valley", domain.TripStatusPublished)
	return h
}

func (h *bookingHarness) input() domain.BookingInput {
	return domain.BookingInput{
		TripID:     h.trip.ID.String(),
		Adults:     2,
		Children:   1,
		Name:       "Asha Gurung",
		Email:      "asha@example.com",
		Phone:      "+977 (1) 555-0101",
		TotalPrice: 2300,
	}
}

// ---- Submit ----------------------------------------------------------------

func TestBookingService_Submit_Valid(t *testing.T) {
	h := newBookingHarness(t)

	res, err := h.svc.Submit(context.Background(), h.input())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, service.MsgBookingSubmitted, res.Message)
	require.NotNil(t, res.Booking)
	assert.Equal(t, domain.BookingPending, res.Booking.Status)
	assert.Equal(t, "Langtang Valley", res.Booking.TripTitle)
	assert.Equal(t, 2300.0, res.Booking.TotalPrice)
	assert.Equal(t, 1, h.db.bookingCount())
}

func TestBookingService_Submit_HoneypotStoresNothing(t *testing.T) {
	for _, hp := range []string{"http://spam.example", " "} {
		t.Run(strconv.Quote(hp), func(t *testing.T) {
			h := newBookingHarness(t)
			in := h.input()
			in.Honeypot = hp

			res, err := h.svc.Submit(context.Background(), in)

			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, service.MsgBookingSubmitted, res.Message)
			assert.Nil(t, res.Booking)
			assert.Zero(t, h.db.bookingCount())
			assert.Empty(t, h.pub.keys)
		})
	}
}

func TestBookingService_Submit_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.BookingInput)
		msg    string
	}{
		{"missing name", func(in *domain.BookingInput) { in.Name = " " }, service.MsgRequiredFields},
		{"missing email", func(in *domain.BookingInput) { in.Email = "" }, service.MsgRequiredFields},
		{"missing trip", func(in *domain.BookingInput) { in.TripID = "" }, service.MsgRequiredFields},
		{"bad email", func(in *domain.BookingInput) { in.Email = "not-an-email" }, service.MsgInvalidEmail},
		{"bad phone", func(in *domain.BookingInput) { in.Phone = "call me" }, service.MsgInvalidPhone},
		{"short phone", func(in *domain.BookingInput) { in.Phone = "12345" }, service.MsgInvalidPhone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newBookingHarness(t)
			in := h.input()
			tc.mutate(&in)

			res, err := h.svc.Submit(context.Background(), in)

			require.ErrorIs(t, err, domain.ErrValidation)
			assert.False(t, res.Success)
			assert.Equal(t, tc.msg, res.Message)
			assert.Zero(t, h.db.bookingCount())
		})
	}
}

func TestBookingService_Submit_PhoneOptional(t *testing.T) {
	h := newBookingHarness(t)
	in := h.input()
	in.Phone = ""

	_, err := h.svc.Submit(context.Background(), in)

	require.NoError(t, err)
}

func TestBookingService_Submit_NoPaxBoundCheck(t *testing.T) {
	h := newBookingHarness(t)
	in := h.input()
	in.Adults, in.Children = 0, 0

	res, err := h.svc.Submit(context.Background(), in)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, h.db.bookingCount())
}

func TestBookingService_Submit_UnknownTrip(t *testing.T) {
	h := newBookingHarness(t)
	for _, ref := range []string{uuid.NewString(), "not-a-uuid"} {
		in := h.input()
		in.TripID = ref

		res, err := h.svc.Submit(context.Background(), in)

		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.False(t, res.Success)
		assert.Equal(t, service.MsgBookingFailed, res.Message)
	}
	assert.Zero(t, h.db.bookingCount())
}

func TestBookingService_Submit_BackendFailure(t *testing.T) {
	h := newBookingHarness(t)
	h.db.setFail("bookings.Create", errInjected)

	res, err := h.svc.Submit(context.Background(), h.input())

	require.ErrorIs(t, err, errInjected)
	assert.Equal(t, service.MsgBookingFailed, res.Message)
}

func TestBookingService_Submit_DuplicatesAllowed(t *testing.T) {
	h := newBookingHarness(t)

	_, err := h.svc.Submit(context.Background(), h.input())
	require.NoError(t, err)
	_, err = h.svc.Submit(context.Background(), h.input())
	require.NoError(t, err)

	assert.Equal(t, 2, h.db.bookingCount())
}

func TestBookingService_Submit_PublishesAndInvalidates(t *testing.T) {
	h := newBookingHarness(t)

	res, err := h.svc.Submit(context.Background(), h.input())
	require.NoError(t, err)

	require.Equal(t, []string{events.KeyBookingCreated}, h.pub.keys)
	ev, ok := h.pub.payloads[0].(events.BookingCreated)
	require.True(t, ok)
	assert.Equal(t, res.Booking.ID, ev.BookingID)
	assert.Equal(t, h.trip.ID, ev.TripID)
	assert.Equal(t, []string{service.TagBookings}, h.inv.last().Tags)
}

func TestBookingService_Submit_PublishFailureStillSucceeds(t *testing.T) {
	h := newBookingHarness(t)
	h.pub.err = errors.New("broker down")

	res, err := h.svc.Submit(context.Background(), h.input())

	require.NoError(t, err)
	assert.True(t, res.Success)
}

// ---- List / Dashboard ------------------------------------------------------

func TestBookingService_List(t *testing.T) {
	h := newBookingHarness(t)
	for range 3 {
		_, err := h.svc.Submit(context.Background(), h.input())
		require.NoError(t, err)
	}

	page, err := h.svc.List(context.Background(), domain.PaginationParams{Page: 2, Limit: 2})

	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Page)
}

func TestBookingService_Dashboard(t *testing.T) {
	h := newBookingHarness(t)
	seedTrip(t, h.db, "Draft", "draft", domain.TripStatusDraft)
	ctx := context.Background()

	d, err := h.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.TotalTrips)
	assert.Equal(t, 1, d.PublishedTrips)
	assert.Zero(t, d.Bookings.Total)

	_, err = h.svc.Submit(ctx, h.input())
	require.NoError(t, err)

	d, err = h.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, d.Bookings.Total, "a new booking invalidates the cached dashboard")
	assert.EqualValues(t, 1, d.Bookings.Pending)
}

func TestBookingService_Dashboard_Error(t *testing.T) {
	h := newBookingHarness(t)
	h.db.setFail("bookings.Stats", errInjected)

	_, err := h.svc.Dashboard(context.Background())

	assert.ErrorIs(t, err, errInjected)
}
