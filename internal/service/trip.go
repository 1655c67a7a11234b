package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/trek-booking/internal/cache"
	"github.com/pkordes/trek-booking/internal/domain"
	"github.com/pkordes/trek-booking/internal/repo"
	"github.com/pkordes/trek-booking/internal/storage"
)

// TripOptions tunes a TripService. Zero values pick defaults.
type TripOptions struct {
	// UploadConcurrency bounds parallel image uploads per request. Default 4.
	UploadConcurrency int
	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// TripService implements the admin trip write workflows.
//
// Each workflow has one fatal step (the trip row itself). Everything after it
// is best-effort: a failure is logged, reported as a domain.Warning and the
// workflow carries on. Update is the exception: its row replacements run in
// one transaction and fail together.
type TripService struct {
	repos    repo.Repos
	tx       repo.Transactor
	store    storage.ObjectStore
	sessions Verifier
	inv      Invalidator

	uploadLimit int
	now         func() time.Time
}

// NewTripService constructs a TripService.
func NewTripService(repos repo.Repos, tx repo.Transactor, store storage.ObjectStore, sessions Verifier, inv Invalidator, opts TripOptions) *TripService {
	s := &TripService{
		repos:       repos,
		tx:          tx,
		store:       store,
		sessions:    sessions,
		inv:         inv,
		uploadLimit: opts.UploadConcurrency,
		now:         opts.Now,
	}
	if s.uploadLimit <= 0 {
		s.uploadLimit = 4
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create validates in, inserts a published trip and then stores its images,
// pricing, itinerary, meta rows and PDF.
// Returns domain.ErrUnauthorized without a session, domain.ErrValidation for
// bad input and domain.ErrConflict when the slug is taken.
func (s *TripService) Create(ctx context.Context, in domain.TripInput) (domain.WriteResult, error) {
	if _, err := s.sessions.Verify(ctx); err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	trip, err := tripFromInput(in)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	trip.Status = domain.TripStatusPublished

	created, err := s.repos.Trips.Create(ctx, trip)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.Create: %w", err)
	}

	w := &warnings{}
	s.uploadImages(ctx, created.ID, in.Images, 0, "", w)

	if err := s.repos.Pricing.Insert(ctx, pricingRows(created.ID, in)); err != nil {
		w.add(ctx, domain.StepPricing, "", err)
	}
	if len(in.Itinerary) > 0 {
		if err := s.repos.Itinerary.Insert(ctx, created.ID, in.Itinerary); err != nil {
			w.add(ctx, domain.StepItinerary, "", err)
		}
	}
	if rows := metaRows(created.ID, in); len(rows) > 0 {
		if err := s.repos.Meta.Insert(ctx, rows); err != nil {
			w.add(ctx, domain.StepMeta, "", err)
		}
	}
	if in.PDF != nil {
		if url, ok := s.uploadPDF(ctx, created.ID, *in.PDF, w); ok {
			if err := s.repos.Trips.SetPDFPath(ctx, created.ID, url); err != nil {
				w.add(ctx, domain.StepPDFPath, in.PDF.Filename, err)
			}
		}
	}

	invalidate(ctx, s.inv, cache.Invalidation{Tags: []string{TagTrips}})

	return domain.WriteResult{TripID: created.ID.String(), Slug: created.Slug, Warnings: w.slice()}, nil
}

// Update replaces a trip's fields, pricing, itinerary and meta, appends any
// new images and swaps the PDF when a new one uploads.
// The row replacements run in one transaction: on error nothing of them is
// applied. Images uploaded before that point stay.
// Returns domain.ErrNotFound if the trip does not exist.
func (s *TripService) Update(ctx context.Context, id uuid.UUID, in domain.TripInput) (domain.WriteResult, error) {
	if _, err := s.sessions.Verify(ctx); err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	trip, err := tripFromInput(in)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.Update: %w", err)
	}

	existing, err := s.repos.Trips.GetByID(ctx, id)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	trip.ID = id
	trip.Status = existing.Status
	trip.PDFPath = existing.PDFPath

	w := &warnings{}
	if len(in.Images) > 0 {
		count, err := s.repos.Images.CountByTrip(ctx, id)
		if err != nil {
			return domain.WriteResult{}, fmt.Errorf("service.TripService.Update: %w", err)
		}
		s.uploadImages(ctx, id, in.Images, count, "new", w)
	}
	if in.PDF != nil {
		if url, ok := s.uploadPDF(ctx, id, *in.PDF, w); ok {
			trip.PDFPath = &url
		}
	}

	var updated domain.Trip
	err = s.tx.WithinTx(ctx, func(r repo.Repos) error {
		var err error
		if updated, err = r.Trips.Update(ctx, trip); err != nil {
			return err
		}
		if err := r.Pricing.Upsert(ctx, pricingRows(id, in)); err != nil {
			return err
		}
		if err := r.Itinerary.DeleteByTrip(ctx, id); err != nil {
			return err
		}
		if len(in.Itinerary) > 0 {
			if err := r.Itinerary.Insert(ctx, id, in.Itinerary); err != nil {
				return err
			}
		}
		if err := r.Meta.DeleteByTrip(ctx, id); err != nil {
			return err
		}
		if rows := metaRows(id, in); len(rows) > 0 {
			if err := r.Meta.Insert(ctx, rows); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.Update: %w", err)
	}

	invalidate(ctx, s.inv, cache.Invalidation{
		Tags: []string{TagTrips},
		Keys: tripKeys(id, existing.Slug, updated.Slug),
	})

	return domain.WriteResult{TripID: id.String(), Slug: updated.Slug, Warnings: w.slice()}, nil
}

// Delete removes a trip; its child rows go with it and its bookings are
// detached. Stored objects are removed best-effort.
// Returns domain.ErrNotFound if the trip does not exist.
func (s *TripService) Delete(ctx context.Context, id uuid.UUID) (domain.WriteResult, error) {
	if _, err := s.sessions.Verify(ctx); err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.Delete: %w", err)
	}

	existing, err := s.repos.Trips.GetByID(ctx, id)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.Delete: %w", err)
	}
	if err := s.repos.Trips.Delete(ctx, id); err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.Delete: %w", err)
	}

	w := &warnings{}
	if err := s.store.RemovePrefix(ctx, storage.TripPrefix(id)); err != nil {
		w.add(ctx, domain.StepBlobCleanup, storage.TripPrefix(id), err)
	}

	invalidate(ctx, s.inv, cache.Invalidation{
		Tags: []string{TagTrips},
		Keys: tripKeys(id, existing.Slug),
	})

	return domain.WriteResult{TripID: id.String(), Slug: existing.Slug, Warnings: w.slice()}, nil
}

// DeleteImage removes one image of a trip and then its stored object.
// Returns domain.ErrNotFound if the image does not belong to the trip.
func (s *TripService) DeleteImage(ctx context.Context, tripID, imageID uuid.UUID) (domain.WriteResult, error) {
	if _, err := s.sessions.Verify(ctx); err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.DeleteImage: %w", err)
	}

	img, err := s.repos.Images.Delete(ctx, tripID, imageID)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.DeleteImage: %w", err)
	}

	w := &warnings{}
	if img.ObjectKey != "" {
		if err := s.store.Remove(ctx, img.ObjectKey); err != nil {
			w.add(ctx, domain.StepImageRemove, img.ObjectKey, err)
		}
	}

	invalidate(ctx, s.inv, cache.Invalidation{Tags: []string{TagTrips}})

	return domain.WriteResult{TripID: tripID.String(), Warnings: w.slice()}, nil
}

// SetStatus publishes or unpublishes a trip.
func (s *TripService) SetStatus(ctx context.Context, id uuid.UUID, status domain.TripStatus) (domain.WriteResult, error) {
	if _, err := s.sessions.Verify(ctx); err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.SetStatus: %w", err)
	}
	if !status.Valid() {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.SetStatus: %w: status must be draft or published", domain.ErrValidation)
	}

	trip, err := s.repos.Trips.SetStatus(ctx, id, status)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("service.TripService.SetStatus: %w", err)
	}

	invalidate(ctx, s.inv, cache.Invalidation{
		Tags: []string{TagTrips},
		Keys: tripKeys(id, trip.Slug),
	})

	return domain.WriteResult{TripID: id.String(), Slug: trip.Slug, Warnings: []domain.Warning{}}, nil
}

// uploadImages stores each upload and records an image row at position
// base+i, at most uploadLimit at a time. A failed image leaves its position
// unused.
func (s *TripService) uploadImages(ctx context.Context, tripID uuid.UUID, uploads []domain.Upload, base int, tag string, w *warnings) {
	if len(uploads) == 0 {
		return
	}
	at := s.now()

	var g errgroup.Group
	g.SetLimit(s.uploadLimit)
	for i, up := range uploads {
		g.Go(func() error {
			s.storeImage(ctx, tripID, storage.ImageKey(tripID, at, i, tag, up.Filename), base+i, up, w)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *TripService) storeImage(ctx context.Context, tripID uuid.UUID, key string, position int, up domain.Upload, w *warnings) {
	if err := s.put(ctx, key, up); err != nil {
		w.add(ctx, domain.StepImageUpload, up.Filename, err)
		return
	}

	img := domain.TripImage{
		TripID:      tripID,
		StoragePath: s.store.PublicURL(key),
		ObjectKey:   key,
		Position:    position,
	}
	if _, err := s.repos.Images.Create(ctx, img); err != nil {
		w.add(ctx, domain.StepImageRow, up.Filename, err)
		if err := s.store.Remove(ctx, key); err != nil {
			slog.WarnContext(ctx, "removing orphaned image", "key", key, "error", err)
		}
	}
}

// uploadPDF stores the itinerary PDF and returns its public URL.
func (s *TripService) uploadPDF(ctx context.Context, tripID uuid.UUID, up domain.Upload, w *warnings) (string, bool) {
	key := storage.PDFKey(tripID, s.now(), up.Filename)
	if err := s.put(ctx, key, up); err != nil {
		w.add(ctx, domain.StepPDFUpload, up.Filename, err)
		return "", false
	}
	return s.store.PublicURL(key), true
}

func (s *TripService) put(ctx context.Context, key string, up domain.Upload) error {
	if up.Open == nil {
		return errors.New("upload has no content")
	}
	rc, err := up.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", up.Filename, err)
	}
	defer rc.Close()

	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.store.Upload(ctx, key, rc, up.Size, contentType)
}

// tripFromInput validates in and maps it onto a trip row.
//   - Title is required.
//   - Slug defaults to the slugified title and must be URL-safe.
//   - Difficulty must be Easy, Moderate or Challenging.
//   - Duration is at least one day; 1 <= min_pax <= max_pax.
//   - Prices are not negative.
func tripFromInput(in domain.TripInput) (domain.Trip, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Trip{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if slug == "" {
		slug = domain.Slugify(title)
	}
	if !domain.ValidSlug(slug) {
		return domain.Trip{}, fmt.Errorf("%w: slug must contain only lowercase letters, digits and hyphens", domain.ErrValidation)
	}
	if !in.Difficulty.Valid() {
		return domain.Trip{}, fmt.Errorf("%w: difficulty must be Easy, Moderate or Challenging", domain.ErrValidation)
	}
	if in.DurationDays < 1 {
		return domain.Trip{}, fmt.Errorf("%w: duration_days must be at least 1", domain.ErrValidation)
	}
	if in.MinPax < 1 {
		return domain.Trip{}, fmt.Errorf("%w: min_pax must be at least 1", domain.ErrValidation)
	}
	if in.MaxPax < in.MinPax {
		return domain.Trip{}, fmt.Errorf("%w: max_pax must not be below min_pax", domain.ErrValidation)
	}
	if in.Price < 0 || in.ChildPrice < 0 {
		return domain.Trip{}, fmt.Errorf("%w: prices must not be negative", domain.ErrValidation)
	}

	return domain.Trip{
		Title:        title,
		Slug:         slug,
		Overview:     strings.TrimSpace(in.Overview),
		Difficulty:   in.Difficulty,
		DurationDays: in.DurationDays,
		MinPax:       in.MinPax,
		MaxPax:       in.MaxPax,
		MaxAltitude:  strings.TrimSpace(in.MaxAltitude),
		BestSeason:   strings.TrimSpace(in.BestSeason),
		StartPoint:   strings.TrimSpace(in.Location),
		EndPoint:     strings.TrimSpace(in.EndPoint),
	}, nil
}

func pricingRows(tripID uuid.UUID, in domain.TripInput) []domain.TripPricing {
	return []domain.TripPricing{
		{TripID: tripID, Type: domain.PaxAdult, Price: in.Price},
		{TripID: tripID, Type: domain.PaxChild, Price: in.ChildPrice},
	}
}

// metaRows turns the list fields into meta rows, dropping blank entries.
func metaRows(tripID uuid.UUID, in domain.TripInput) []domain.TripMeta {
	var rows []domain.TripMeta
	add := func(key string, values []string) {
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				rows = append(rows, domain.TripMeta{TripID: tripID, Key: key, Value: v})
			}
		}
	}
	add(domain.MetaHighlight, in.Highlights)
	add(domain.MetaIncluded, in.Included)
	add(domain.MetaExcluded, in.Excluded)
	return rows
}
