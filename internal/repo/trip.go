package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trek-booking/internal/domain"
)

// TripRepo defines the persistence operations for trip base rows.
// The service layer depends on this interface, not the concrete Postgres implementation,
// which allows the service to be unit-tested with a fake.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record (with DB-generated
	// id, created_at, and updated_at populated).
	// Returns domain.ErrConflict if the slug is already taken.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by its UUID primary key.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// GetBySlug retrieves a single trip by its unique slug.
	// Returns domain.ErrNotFound if no trip has that slug.
	GetBySlug(ctx context.Context, slug string) (domain.Trip, error)

	// List returns trips ordered by created_at descending, restricted to
	// published trips when publishedOnly is set.
	List(ctx context.Context, publishedOnly bool) ([]domain.Trip, error)

	// Update overwrites the scalar fields and pdf_path of an existing trip.
	// Status is not touched. Returns domain.ErrNotFound if no trip with that ID
	// exists and domain.ErrConflict if the new slug is taken.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// SetPDFPath points the trip at an uploaded itinerary PDF.
	SetPDFPath(ctx context.Context, id uuid.UUID, path string) error

	// SetStatus changes the publication status of a trip.
	SetStatus(ctx context.Context, id uuid.UUID, status domain.TripStatus) (domain.Trip, error)

	// Delete removes a trip by ID. Child rows cascade in the schema.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// CountByStatus returns the number of trips per status.
	CountByStatus(ctx context.Context) (map[domain.TripStatus]int, error)
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, title, slug, overview, difficulty, duration_days, min_pax, max_pax,
		max_altitude, best_season, start_point, end_point, status, pdf_path, created_at, updated_at`

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		INSERT INTO trips (title, slug, overview, difficulty, duration_days, min_pax, max_pax,
		                   max_altitude, best_season, start_point, end_point, status, pdf_path)
		VALUES (@title, @slug, @overview, @difficulty, @duration_days, @min_pax, @max_pax,
		        @max_altitude, @best_season, @start_point, @end_point, @status, @pdf_path)
		RETURNING ` + tripColumns

	row := r.db.QueryRow(ctx, q, tripArgs(trip))
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", mapPgErr(err))
	}
	return result, nil
}

// GetByID retrieves a trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", mapPgErr(err))
	}
	return result, nil
}

// GetBySlug retrieves a trip by slug.
func (r *pgTripRepo) GetBySlug(ctx context.Context, slug string) (domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE slug = @slug`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"slug": slug})
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetBySlug: %w", mapPgErr(err))
	}
	return result, nil
}

// List returns trips ordered by created_at descending (newest first).
func (r *pgTripRepo) List(ctx context.Context, publishedOnly bool) ([]domain.Trip, error) {
	q := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE NOT @published_only OR status = 'published'
		ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"published_only": publishedOnly})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.List: %w", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRepo.List: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.List: rows: %w", err)
	}
	return trips, nil
}

// Update overwrites the mutable fields of a trip in a single statement.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET title         = @title,
		    slug          = @slug,
		    overview      = @overview,
		    difficulty    = @difficulty,
		    duration_days = @duration_days,
		    min_pax       = @min_pax,
		    max_pax       = @max_pax,
		    max_altitude  = @max_altitude,
		    best_season   = @best_season,
		    start_point   = @start_point,
		    end_point     = @end_point,
		    pdf_path      = @pdf_path,
		    updated_at    = now()
		WHERE id = @id
		RETURNING ` + tripColumns

	args := tripArgs(trip)
	args["id"] = trip.ID

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", mapPgErr(err))
	}
	return result, nil
}

// SetPDFPath updates only the pdf_path column.
func (r *pgTripRepo) SetPDFPath(ctx context.Context, id uuid.UUID, path string) error {
	const q = `UPDATE trips SET pdf_path = @pdf_path, updated_at = now() WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "pdf_path": path})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.SetPDFPath: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.SetPDFPath: %w", domain.ErrNotFound)
	}
	return nil
}

// SetStatus updates only the status column and returns the updated row.
func (r *pgTripRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.TripStatus) (domain.Trip, error) {
	q := `
		UPDATE trips SET status = @status, updated_at = now()
		WHERE id = @id
		RETURNING ` + tripColumns

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "status": string(status)})
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.SetStatus: %w", mapPgErr(err))
	}
	return result, nil
}

// Delete removes a trip by primary key.
func (r *pgTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM trips WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// CountByStatus groups trips by status.
func (r *pgTripRepo) CountByStatus(ctx context.Context) (map[domain.TripStatus]int, error) {
	const q = `SELECT status, count(*) FROM trips GROUP BY status`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.CountByStatus: %w", err)
	}
	defer rows.Close()

	counts := map[domain.TripStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("repo.TripRepo.CountByStatus: scan: %w", err)
		}
		counts[domain.TripStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.CountByStatus: rows: %w", err)
	}
	return counts, nil
}

// tripArgs binds the writable columns of a trip.
func tripArgs(t domain.Trip) pgx.NamedArgs {
	status := t.Status
	if status == "" {
		status = domain.TripStatusDraft
	}
	return pgx.NamedArgs{
		"title":         t.Title,
		"slug":          t.Slug,
		"overview":      t.Overview,
		"difficulty":    string(t.Difficulty),
		"duration_days": t.DurationDays,
		"min_pax":       t.MinPax,
		"max_pax":       t.MaxPax,
		"max_altitude":  t.MaxAltitude,
		"best_season":   t.BestSeason,
		"start_point":   t.StartPoint,
		"end_point":     t.EndPoint,
		"status":        string(status),
		"pdf_path":      t.PDFPath, // nil becomes NULL
	}
}

// scanTrip maps a single database row into a domain.Trip.
// It handles the UUID and nullable pdf_path conversions.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t          domain.Trip
		id         pgtype.UUID
		difficulty string
		status     string
		pdfPath    pgtype.Text
	)

	err := s.Scan(&id, &t.Title, &t.Slug, &t.Overview, &difficulty, &t.DurationDays,
		&t.MinPax, &t.MaxPax, &t.MaxAltitude, &t.BestSeason, &t.StartPoint, &t.EndPoint,
		&status, &pdfPath, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.Difficulty = domain.Difficulty(difficulty)
	t.Status = domain.TripStatus(status)
	if pdfPath.Valid {
		p := pdfPath.String
		t.PDFPath = &p
	}
	return t, nil
}
