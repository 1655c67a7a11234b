package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trek-booking/internal/domain"
)

// ImageRepo defines the persistence operations for trip_images.
type ImageRepo interface {
	// Create inserts one image row and returns it with id and created_at set.
	// Returns domain.ErrNotFound if the trip does not exist.
	Create(ctx context.Context, img domain.TripImage) (domain.TripImage, error)

	// ListByTripIDs returns the images of every listed trip, ordered by
	// trip and then position.
	ListByTripIDs(ctx context.Context, tripIDs []uuid.UUID) ([]domain.TripImage, error)

	// CountByTrip returns how many images a trip currently has.
	CountByTrip(ctx context.Context, tripID uuid.UUID) (int, error)

	// Delete removes one image, scoped to its trip, and returns the deleted
	// row so the caller can clean up the stored object.
	// Returns domain.ErrNotFound if no such image exists under that trip.
	Delete(ctx context.Context, tripID, imageID uuid.UUID) (domain.TripImage, error)
}

type pgImageRepo struct {
	db db
}

// NewImageRepo constructs an ImageRepo backed by the provided db connection.
func NewImageRepo(db db) ImageRepo {
	return &pgImageRepo{db: db}
}

func (r *pgImageRepo) Create(ctx context.Context, img domain.TripImage) (domain.TripImage, error) {
	const q = `
		INSERT INTO trip_images (trip_id, storage_path, object_key, position)
		VALUES (@trip_id, @storage_path, @object_key, @position)
		RETURNING id, trip_id, storage_path, object_key, position, created_at`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"trip_id":      img.TripID,
		"storage_path": img.StoragePath,
		"object_key":   img.ObjectKey,
		"position":     img.Position,
	})
	result, err := scanImage(row)
	if err != nil {
		return domain.TripImage{}, fmt.Errorf("repo.ImageRepo.Create: %w", mapPgErr(err))
	}
	return result, nil
}

func (r *pgImageRepo) ListByTripIDs(ctx context.Context, tripIDs []uuid.UUID) ([]domain.TripImage, error) {
	const q = `
		SELECT id, trip_id, storage_path, object_key, position, created_at
		FROM trip_images
		WHERE trip_id = ANY(@trip_ids::uuid[])
		ORDER BY trip_id, position, created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_ids": idStrings(tripIDs)})
	if err != nil {
		return nil, fmt.Errorf("repo.ImageRepo.ListByTripIDs: %w", err)
	}
	defer rows.Close()

	images := []domain.TripImage{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ImageRepo.ListByTripIDs: scan: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ImageRepo.ListByTripIDs: rows: %w", err)
	}
	return images, nil
}

func (r *pgImageRepo) CountByTrip(ctx context.Context, tripID uuid.UUID) (int, error) {
	const q = `SELECT count(*) FROM trip_images WHERE trip_id = @trip_id`

	var n int
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID}).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.ImageRepo.CountByTrip: %w", err)
	}
	return n, nil
}

func (r *pgImageRepo) Delete(ctx context.Context, tripID, imageID uuid.UUID) (domain.TripImage, error) {
	const q = `
		DELETE FROM trip_images
		WHERE id = @id AND trip_id = @trip_id
		RETURNING id, trip_id, storage_path, object_key, position, created_at`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": imageID, "trip_id": tripID})
	result, err := scanImage(row)
	if err != nil {
		return domain.TripImage{}, fmt.Errorf("repo.ImageRepo.Delete: %w", mapPgErr(err))
	}
	return result, nil
}

func scanImage(s scanner) (domain.TripImage, error) {
	var (
		img    domain.TripImage
		id     pgtype.UUID
		tripID pgtype.UUID
	)
	if err := s.Scan(&id, &tripID, &img.StoragePath, &img.ObjectKey, &img.Position, &img.CreatedAt); err != nil {
		return domain.TripImage{}, err
	}
	img.ID = uuid.UUID(id.Bytes)
	img.TripID = uuid.UUID(tripID.Bytes)
	return img, nil
}
