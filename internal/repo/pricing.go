package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trek-booking/internal/domain"
)

// PricingRepo defines the persistence operations for trip_pricing.
// The table holds at most one row per (trip_id, type).
type PricingRepo interface {
	// Insert adds new pricing rows. Fails with domain.ErrConflict if a row for
	// the same (trip, type) already exists.
	Insert(ctx context.Context, rows []domain.TripPricing) error

	// Upsert inserts rows or overwrites the price of existing (trip, type)
	// rows in place. Calling it twice never produces duplicates.
	Upsert(ctx context.Context, rows []domain.TripPricing) error

	// ListByTripIDs returns the pricing rows of every listed trip.
	ListByTripIDs(ctx context.Context, tripIDs []uuid.UUID) ([]domain.TripPricing, error)
}

type pgPricingRepo struct {
	db db
}

// NewPricingRepo constructs a PricingRepo backed by the provided db connection.
func NewPricingRepo(db db) PricingRepo {
	return &pgPricingRepo{db: db}
}

func (r *pgPricingRepo) Insert(ctx context.Context, rows []domain.TripPricing) error {
	const q = `
		INSERT INTO trip_pricing (trip_id, type, price)
		SELECT * FROM unnest(@trip_ids::uuid[], @types::text[], @prices::numeric[])`

	if len(rows) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, q, pricingArgs(rows)); err != nil {
		return fmt.Errorf("repo.PricingRepo.Insert: %w", mapPgErr(err))
	}
	return nil
}

// Upsert relies on the UNIQUE (trip_id, type) constraint as the conflict key.
func (r *pgPricingRepo) Upsert(ctx context.Context, rows []domain.TripPricing) error {
	const q = `
		INSERT INTO trip_pricing (trip_id, type, price)
		SELECT * FROM unnest(@trip_ids::uuid[], @types::text[], @prices::numeric[])
		ON CONFLICT (trip_id, type) DO UPDATE SET price = EXCLUDED.price`

	if len(rows) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, q, pricingArgs(rows)); err != nil {
		return fmt.Errorf("repo.PricingRepo.Upsert: %w", mapPgErr(err))
	}
	return nil
}

func (r *pgPricingRepo) ListByTripIDs(ctx context.Context, tripIDs []uuid.UUID) ([]domain.TripPricing, error) {
	const q = `
		SELECT trip_id, type, price
		FROM trip_pricing
		WHERE trip_id = ANY(@trip_ids::uuid[])
		ORDER BY trip_id, type`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_ids": idStrings(tripIDs)})
	if err != nil {
		return nil, fmt.Errorf("repo.PricingRepo.ListByTripIDs: %w", err)
	}
	defer rows.Close()

	out := []domain.TripPricing{}
	for rows.Next() {
		var (
			p      domain.TripPricing
			tripID pgtype.UUID
			typ    string
		)
		if err := rows.Scan(&tripID, &typ, &p.Price); err != nil {
			return nil, fmt.Errorf("repo.PricingRepo.ListByTripIDs: scan: %w", err)
		}
		p.TripID = uuid.UUID(tripID.Bytes)
		p.Type = domain.PaxType(typ)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.PricingRepo.ListByTripIDs: rows: %w", err)
	}
	return out, nil
}

// pricingArgs splits rows into parallel arrays for unnest.
func pricingArgs(rows []domain.TripPricing) pgx.NamedArgs {
	var (
		tripIDs = make([]string, len(rows))
		types   = make([]string, len(rows))
		prices  = make([]float64, len(rows))
	)
	for i, p := range rows {
		tripIDs[i] = p.TripID.String()
		types[i] = string(p.Type)
		prices[i] = p.Price
	}
	return pgx.NamedArgs{"trip_ids": tripIDs, "types": types, "prices": prices}
}
