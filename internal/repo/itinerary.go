package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trek-booking/internal/domain"
)

// ItineraryRepo defines the persistence operations for trip_itinerary.
// Day numbers are stored as given; contiguity is the caller's concern.
type ItineraryRepo interface {
	// Insert adds one row per day for the trip.
	Insert(ctx context.Context, tripID uuid.UUID, days []domain.ItineraryDay) error

	// DeleteByTrip removes every itinerary row of the trip.
	DeleteByTrip(ctx context.Context, tripID uuid.UUID) error

	// ListByTripIDs returns itinerary rows grouped by trip, ordered by day number.
	ListByTripIDs(ctx context.Context, tripIDs []uuid.UUID) (map[uuid.UUID][]domain.ItineraryDay, error)
}

type pgItineraryRepo struct {
	db db
}

// NewItineraryRepo constructs an ItineraryRepo backed by the provided db connection.
func NewItineraryRepo(db db) ItineraryRepo {
	return &pgItineraryRepo{db: db}
}

func (r *pgItineraryRepo) Insert(ctx context.Context, tripID uuid.UUID, days []domain.ItineraryDay) error {
	const q = `
		INSERT INTO trip_itinerary (trip_id, day_number, title, description)
		SELECT @trip_id, d.day_number, d.title, d.description
		FROM unnest(@day_numbers::int[], @titles::text[], @descriptions::text[])
		     AS d(day_number, title, description)`

	if len(days) == 0 {
		return nil
	}

	var (
		numbers      = make([]int32, len(days))
		titles       = make([]string, len(days))
		descriptions = make([]string, len(days))
	)
	for i, d := range days {
		numbers[i] = int32(d.Day)
		titles[i] = d.Title
		descriptions[i] = d.Description
	}

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"trip_id":      tripID,
		"day_numbers":  numbers,
		"titles":       titles,
		"descriptions": descriptions,
	})
	if err != nil {
		return fmt.Errorf("repo.ItineraryRepo.Insert: %w", mapPgErr(err))
	}
	return nil
}

func (r *pgItineraryRepo) DeleteByTrip(ctx context.Context, tripID uuid.UUID) error {
	const q = `DELETE FROM trip_itinerary WHERE trip_id = @trip_id`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_id": tripID}); err != nil {
		return fmt.Errorf("repo.ItineraryRepo.DeleteByTrip: %w", err)
	}
	return nil
}

func (r *pgItineraryRepo) ListByTripIDs(ctx context.Context, tripIDs []uuid.UUID) (map[uuid.UUID][]domain.ItineraryDay, error) {
	const q = `
		SELECT trip_id, day_number, title, description
		FROM trip_itinerary
		WHERE trip_id = ANY(@trip_ids::uuid[])
		ORDER BY trip_id, day_number, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_ids": idStrings(tripIDs)})
	if err != nil {
		return nil, fmt.Errorf("repo.ItineraryRepo.ListByTripIDs: %w", err)
	}
	defer rows.Close()

	out := map[uuid.UUID][]domain.ItineraryDay{}
	for rows.Next() {
		var (
			d      domain.ItineraryDay
			tripID pgtype.UUID
		)
		if err := rows.Scan(&tripID, &d.Day, &d.Title, &d.Description); err != nil {
			return nil, fmt.Errorf("repo.ItineraryRepo.ListByTripIDs: scan: %w", err)
		}
		id := uuid.UUID(tripID.Bytes)
		out[id] = append(out[id], d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ItineraryRepo.ListByTripIDs: rows: %w", err)
	}
	return out, nil
}
