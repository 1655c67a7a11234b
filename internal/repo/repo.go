// Package repo contains all database access logic for the Trek Booking service.
// Each table has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/trek-booking/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scanX
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// Repos bundles one repository per table, all bound to the same connection
// or transaction.
type Repos struct {
	Trips     TripRepo
	Images    ImageRepo
	Pricing   PricingRepo
	Itinerary ItineraryRepo
	Meta      MetaRepo
	Bookings  BookingRepo
	Accounts  AccountRepo
}

// NewRepos constructs every repository on top of db.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewRepos(db db) Repos {
	return Repos{
		Trips:     NewTripRepo(db),
		Images:    NewImageRepo(db),
		Pricing:   NewPricingRepo(db),
		Itinerary: NewItineraryRepo(db),
		Meta:      NewMetaRepo(db),
		Bookings:  NewBookingRepo(db),
		Accounts:  NewAccountRepo(db),
	}
}

// Transactor runs a unit of work inside a single database transaction.
type Transactor interface {
	// WithinTx calls fn with repositories bound to a new transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Repos) error) error
}

// beginner is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx (the latter
// opens a savepoint, so nesting inside a test transaction works).
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgTransactor struct {
	db beginner
}

// NewTransactor constructs a Transactor that begins transactions on db.
func NewTransactor(db beginner) Transactor {
	return &pgTransactor{db: db}
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(Repos) error) error {
	err := pgx.BeginFunc(ctx, t.db, func(tx pgx.Tx) error {
		return fn(NewRepos(tx))
	})
	if err != nil {
		return fmt.Errorf("repo.Transactor.WithinTx: %w", err)
	}
	return nil
}

// Postgres SQLSTATE codes the repos translate into domain errors.
const (
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
)

// mapPgErr converts driver errors into domain sentinels where one applies.
// pgx.ErrNoRows becomes domain.ErrNotFound, a unique violation becomes
// domain.ErrConflict, and a foreign key violation becomes domain.ErrNotFound
// (the referenced parent is missing). Anything else is returned unchanged.
func mapPgErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
		case pgFKViolation:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

// idStrings renders ids as strings so they can be bound to a uuid[] parameter.
func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
