package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trek-booking/internal/domain"
)

// MetaRepo defines the persistence operations for trip_meta.
// Rows come back in insertion order so list items keep the order they were
// entered in.
type MetaRepo interface {
	// Insert adds the given rows.
	Insert(ctx context.Context, rows []domain.TripMeta) error

	// DeleteByTrip removes every meta row of the trip.
	DeleteByTrip(ctx context.Context, tripID uuid.UUID) error

	// ListByTripIDs returns the meta rows of every listed trip.
	ListByTripIDs(ctx context.Context, tripIDs []uuid.UUID) ([]domain.TripMeta, error)
}

type pgMetaRepo struct {
	db db
}

// NewMetaRepo constructs a MetaRepo backed by the provided db connection.
func NewMetaRepo(db db) MetaRepo {
	return &pgMetaRepo{db: db}
}

func (r *pgMetaRepo) Insert(ctx context.Context, rows []domain.TripMeta) error {
	// WITH ORDINALITY keeps the bigserial ids in slice order.
	const q = `
		INSERT INTO trip_meta (trip_id, key, value)
		SELECT m.trip_id, m.key, m.value
		FROM unnest(@trip_ids::uuid[], @keys::text[], @values::text[]) WITH ORDINALITY
		     AS m(trip_id, key, value, ord)
		ORDER BY m.ord`

	if len(rows) == 0 {
		return nil
	}

	var (
		tripIDs = make([]string, len(rows))
		keys    = make([]string, len(rows))
		values  = make([]string, len(rows))
	)
	for i, m := range rows {
		tripIDs[i] = m.TripID.String()
		keys[i] = m.Key
		values[i] = m.Value
	}

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_ids": tripIDs, "keys": keys, "values": values})
	if err != nil {
		return fmt.Errorf("repo.MetaRepo.Insert: %w", mapPgErr(err))
	}
	return nil
}

func (r *pgMetaRepo) DeleteByTrip(ctx context.Context, tripID uuid.UUID) error {
	const q = `DELETE FROM trip_meta WHERE trip_id = @trip_id`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_id": tripID}); err != nil {
		return fmt.Errorf("repo.MetaRepo.DeleteByTrip: %w", err)
	}
	return nil
}

func (r *pgMetaRepo) ListByTripIDs(ctx context.Context, tripIDs []uuid.UUID) ([]domain.TripMeta, error) {
	const q = `
		SELECT trip_id, key, value
		FROM trip_meta
		WHERE trip_id = ANY(@trip_ids::uuid[])
		ORDER BY id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_ids": idStrings(tripIDs)})
	if err != nil {
		return nil, fmt.Errorf("repo.MetaRepo.ListByTripIDs: %w", err)
	}
	defer rows.Close()

	out := []domain.TripMeta{}
	for rows.Next() {
		var (
			m      domain.TripMeta
			tripID pgtype.UUID
		)
		if err := rows.Scan(&tripID, &m.Key, &m.Value); err != nil {
			return nil, fmt.Errorf("repo.MetaRepo.ListByTripIDs: scan: %w", err)
		}
		m.TripID = uuid.UUID(tripID.Bytes)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.MetaRepo.ListByTripIDs: rows: %w", err)
	}
	return out, nil
}
