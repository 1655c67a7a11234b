package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trek-booking/internal/domain"
)

// BookingRepo defines the persistence operations for bookings.
type BookingRepo interface {
	// Create inserts a booking for an existing trip, snapshotting the trip
	// title. Returns domain.ErrNotFound if the trip does not exist.
	Create(ctx context.Context, b domain.Booking) (domain.Booking, error)

	// ListPaged returns one page of bookings, newest first, and the total count.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Booking, int64, error)

	// Stats counts all bookings and the pending ones.
	Stats(ctx context.Context) (domain.BookingStats, error)
}

type pgBookingRepo struct {
	db db
}

// NewBookingRepo constructs a BookingRepo backed by the provided db connection.
func NewBookingRepo(db db) BookingRepo {
	return &pgBookingRepo{db: db}
}

const bookingColumns = `id, trip_id, trip_title, customer_name, customer_email, customer_phone,
		adults, children, total_price, status, created_at`

// Create selects from trips so a missing trip yields no row instead of a
// foreign key error, and the title is captured in the same statement.
func (r *pgBookingRepo) Create(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	q := `
		INSERT INTO bookings (trip_id, trip_title, customer_name, customer_email, customer_phone,
		                      adults, children, total_price, status)
		SELECT t.id, t.title, @customer_name, @customer_email, @customer_phone,
		       @adults, @children, @total_price, @status
		FROM trips t
		WHERE t.id = @trip_id
		RETURNING ` + bookingColumns

	status := b.Status
	if status == "" {
		status = domain.BookingPending
	}
	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"trip_id":        b.TripID,
		"customer_name":  b.CustomerName,
		"customer_email": b.CustomerEmail,
		"customer_phone": b.CustomerPhone,
		"adults":         b.Adults,
		"children":       b.Children,
		"total_price":    b.TotalPrice,
		"status":         string(status),
	})
	result, err := scanBooking(row)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.Create: %w", mapPgErr(err))
	}
	return result, nil
}

// ListPaged uses a window count so the page and the total come back in one query.
func (r *pgBookingRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Booking, int64, error) {
	q := `
		SELECT ` + bookingColumns + `, count(*) OVER () AS total
		FROM bookings
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.BookingRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	var (
		bookings = []domain.Booking{}
		total    int64
	)
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.BookingRepo.ListPaged: scan: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.BookingRepo.ListPaged: rows: %w", err)
	}

	// An out-of-range page returns no rows and therefore no window total.
	if len(bookings) == 0 && p.Page > 1 {
		if err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings`).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("repo.BookingRepo.ListPaged: count: %w", err)
		}
	}
	return bookings, total, nil
}

func (r *pgBookingRepo) Stats(ctx context.Context) (domain.BookingStats, error) {
	const q = `
		SELECT count(*), count(*) FILTER (WHERE status = 'pending')
		FROM bookings`

	var s domain.BookingStats
	if err := r.db.QueryRow(ctx, q).Scan(&s.Total, &s.Pending); err != nil {
		return domain.BookingStats{}, fmt.Errorf("repo.BookingRepo.Stats: %w", err)
	}
	return s, nil
}

// scanBooking maps a bookings row. extra receives any trailing columns.
func scanBooking(s scanner, extra ...any) (domain.Booking, error) {
	var (
		b      domain.Booking
		id     pgtype.UUID
		tripID pgtype.UUID
		status string
	)
	dest := append([]any{&id, &tripID, &b.TripTitle, &b.CustomerName, &b.CustomerEmail,
		&b.CustomerPhone, &b.Adults, &b.Children, &b.TotalPrice, &status, &b.CreatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return domain.Booking{}, err
	}
	b.ID = uuid.UUID(id.Bytes)
	if tripID.Valid {
		tid := uuid.UUID(tripID.Bytes)
		b.TripID = &tid
	}
	b.Status = domain.BookingStatus(status)
	return b, nil
}
