package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/trek-booking/internal/cache"
	"github.com/pkordes/trek-booking/internal/domain"
	"github.com/pkordes/trek-booking/internal/repo"
)

// CatalogService builds TripViews from the trip row and its child rows and
// caches the result.
type CatalogService struct {
	trips     repo.TripRepo
	images    repo.ImageRepo
	pricing   repo.PricingRepo
	itinerary repo.ItineraryRepo
	meta      repo.MetaRepo
	cache     *cache.Cache
}

// NewCatalogService constructs a CatalogService. The repos must be safe for
// concurrent use (pool-backed), since child rows are fetched in parallel.
func NewCatalogService(r repo.Repos, c *cache.Cache) *CatalogService {
	return &CatalogService{
		trips:     r.Trips,
		images:    r.Images,
		pricing:   r.Pricing,
		itinerary: r.Itinerary,
		meta:      r.Meta,
		cache:     c,
	}
}

// List returns trips newest first, only published ones when publishedOnly.
// A backend failure is logged and yields an empty list; it is not cached.
func (s *CatalogService) List(ctx context.Context, publishedOnly bool) ([]domain.TripView, error) {
	views, err := cache.GetOrLoad(ctx, s.cache, listKey(publishedOnly), []string{TagTrips},
		func(ctx context.Context) ([]domain.TripView, error) {
			trips, err := s.trips.List(ctx, publishedOnly)
			if err != nil {
				return nil, err
			}
			return s.assemble(ctx, trips)
		})
	if err != nil {
		slog.ErrorContext(ctx, "listing trips", "error", err, "published_only", publishedOnly)
		return []domain.TripView{}, nil
	}
	return views, nil
}

// GetBySlug returns one trip view.
// Returns domain.ErrNotFound if no trip has that slug, or it is a draft and
// publishedOnly is set. Any other failure is returned wrapped.
func (s *CatalogService) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (domain.TripView, error) {
	v, err := cache.GetOrLoad(ctx, s.cache, slugKey(slug, publishedOnly), []string{TagTrips},
		func(ctx context.Context) (domain.TripView, error) {
			trip, err := s.trips.GetBySlug(ctx, slug)
			if err != nil {
				return domain.TripView{}, err
			}
			return s.detail(ctx, trip, publishedOnly)
		})
	if err != nil {
		return domain.TripView{}, fmt.Errorf("service.CatalogService.GetBySlug: %w", err)
	}
	return v, nil
}

// GetByID is GetBySlug keyed by id.
func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID, publishedOnly bool) (domain.TripView, error) {
	v, err := cache.GetOrLoad(ctx, s.cache, idKey(id, publishedOnly), []string{TagTrips},
		func(ctx context.Context) (domain.TripView, error) {
			trip, err := s.trips.GetByID(ctx, id)
			if err != nil {
				return domain.TripView{}, err
			}
			return s.detail(ctx, trip, publishedOnly)
		})
	if err != nil {
		return domain.TripView{}, fmt.Errorf("service.CatalogService.GetByID: %w", err)
	}
	return v, nil
}

func (s *CatalogService) detail(ctx context.Context, trip domain.Trip, publishedOnly bool) (domain.TripView, error) {
	if publishedOnly && trip.Status != domain.TripStatusPublished {
		return domain.TripView{}, domain.ErrNotFound
	}
	views, err := s.assemble(ctx, []domain.Trip{trip})
	if err != nil {
		return domain.TripView{}, err
	}
	if len(views) == 0 {
		return domain.TripView{}, errors.New("assembled no view")
	}
	return views[0], nil
}

// assemble loads the child rows of every trip with one query per table and
// builds the views in the order of trips.
func (s *CatalogService) assemble(ctx context.Context, trips []domain.Trip) ([]domain.TripView, error) {
	if len(trips) == 0 {
		return []domain.TripView{}, nil
	}

	ids := make([]uuid.UUID, len(trips))
	for i, t := range trips {
		ids[i] = t.ID
	}

	var (
		images  []domain.TripImage
		pricing []domain.TripPricing
		days    map[uuid.UUID][]domain.ItineraryDay
		meta    []domain.TripMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		images, err = s.images.ListByTripIDs(gctx, ids)
		return err
	})
	g.Go(func() (err error) {
		pricing, err = s.pricing.ListByTripIDs(gctx, ids)
		return err
	})
	g.Go(func() (err error) {
		days, err = s.itinerary.ListByTripIDs(gctx, ids)
		return err
	})
	g.Go(func() (err error) {
		meta, err = s.meta.ListByTripIDs(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	imagesByTrip := map[uuid.UUID][]domain.TripImage{}
	for _, img := range images {
		imagesByTrip[img.TripID] = append(imagesByTrip[img.TripID], img)
	}
	pricingByTrip := map[uuid.UUID][]domain.TripPricing{}
	for _, p := range pricing {
		pricingByTrip[p.TripID] = append(pricingByTrip[p.TripID], p)
	}
	metaByTrip := map[uuid.UUID][]domain.TripMeta{}
	for _, m := range meta {
		metaByTrip[m.TripID] = append(metaByTrip[m.TripID], m)
	}

	views := make([]domain.TripView, len(trips))
	for i, t := range trips {
		views[i] = buildView(t, imagesByTrip[t.ID], pricingByTrip[t.ID], days[t.ID], metaByTrip[t.ID])
	}
	return views, nil
}

// buildView maps one trip and its child rows onto the read model.
// Missing prices read as 0; slices are never nil.
func buildView(t domain.Trip, images []domain.TripImage, pricing []domain.TripPricing, days []domain.ItineraryDay, meta []domain.TripMeta) domain.TripView {
	images = slices.Clone(images)
	slices.SortStableFunc(images, func(a, b domain.TripImage) int { return cmp.Compare(a.Position, b.Position) })
	days = slices.Clone(days)
	slices.SortStableFunc(days, func(a, b domain.ItineraryDay) int { return cmp.Compare(a.Day, b.Day) })

	v := domain.TripView{
		ID:           t.ID,
		Slug:         t.Slug,
		Title:        t.Title,
		Images:       make([]string, 0, len(images)),
		ImageDetails: images,
		Days:         t.DurationDays,
		Location:     t.StartPoint,
		Difficulty:   t.Difficulty,
		Overview:     t.Overview,
		Highlights:   []string{},
		MaxAltitude:  t.MaxAltitude,
		BestSeason:   t.BestSeason,
		StartPoint:   t.StartPoint,
		EndPoint:     t.EndPoint,
		MinPax:       t.MinPax,
		MaxPax:       t.MaxPax,
		Itinerary:    days,
		Included:     []string{},
		Excluded:     []string{},
		PDFPath:      t.PDFPath,
		Status:       t.Status,
		CreatedAt:    t.CreatedAt,
	}
	if v.ImageDetails == nil {
		v.ImageDetails = []domain.TripImage{}
	}
	if v.Itinerary == nil {
		v.Itinerary = []domain.ItineraryDay{}
	}
	for _, img := range images {
		v.Images = append(v.Images, img.StoragePath)
	}
	for _, p := range pricing {
		switch p.Type {
		case domain.PaxAdult:
			v.Price = p.Price
		case domain.PaxChild:
			v.ChildPrice = p.Price
		}
	}
	for _, m := range meta {
		switch m.Key {
		case domain.MetaHighlight:
			v.Highlights = append(v.Highlights, m.Value)
		case domain.MetaIncluded:
			v.Included = append(v.Included, m.Value)
		case domain.MetaExcluded:
			v.Excluded = append(v.Excluded, m.Value)
		}
	}
	return v
}
