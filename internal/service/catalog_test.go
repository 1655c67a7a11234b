package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trek-booking/internal/cache"
	"github.com/pkordes/trek-booking/internal/domain"
	"github.com/pkordes/trek-booking/internal/service"
)

// seedTrip inserts a trip with children straight into db, bypassing the
// write workflows.
func seedTrip(t *testing.T, db *memDB, title, slug string, status domain.TripStatus) domain.Trip {
	t.Helper()
	ctx := context.Background()
	r := db.repos()

	trip, err := r.Trips.Create(ctx, domain.Trip{
		Title: title, Slug: slug, Difficulty: domain.DifficultyModerate,
		DurationDays: 5, MinPax: 1, MaxPax: 8, StartPoint: "Pokhara", Status: status,
	})
	require.NoError(t, err)

	for _, pos := range []int{2, 0, 1} {
		_, err := r.Images.Create(ctx, domain.TripImage{TripID: trip.ID, StoragePath: slug + "/" + string(rune('a'+pos)), Position: pos})
		require.NoError(t, err)
	}
	require.NoError(t, r.Pricing.Insert(ctx, []domain.TripPricing{{TripID: trip.ID, Type: domain.PaxAdult, Price: 700}}))
	require.NoError(t, r.Itinerary.Insert(ctx, trip.ID, []domain.ItineraryDay{{Day: 2, Title: "Two"}, {Day: 1, Title: "One"}}))
	require.NoError(t, r.Meta.Insert(ctx, []domain.TripMeta{
		{TripID: trip.ID, Key: domain.MetaIncluded, Value: "Lodging"},
		{TripID: trip.ID, Key: domain.MetaHighlight, Value: "Poon Hill"},
		{TripID: trip.ID, Key: domain.MetaIncluded, Value: "Meals"},
		{TripID: trip.ID, Key: "unknown", Value: "ignored"},
	}))
	return trip
}

func newCatalog(db *memDB) *service.CatalogService {
	return service.NewCatalogService(db.repos(), cache.New(time.Hour))
}

// ---- List ------------------------------------------------------------------

func TestCatalogService_List_AssemblesViews(t *testing.T) {
	db := newMemDB()
	trip := seedTrip(t, db, "Annapurna Circuit", "annapurna-circuit", domain.TripStatusPublished)

	views, err := newCatalog(db).List(context.Background(), true)

	require.NoError(t, err)
	require.Len(t, views, 1)
	v := views[0]
	assert.Equal(t, trip.ID, v.ID)
	assert.Equal(t, []string{"annapurna-circuit/a", "annapurna-circuit/b", "annapurna-circuit/c"}, v.Images)
	assert.Len(t, v.ImageDetails, 3)
	assert.Equal(t, 700.0, v.Price)
	assert.Zero(t, v.ChildPrice, "missing child price reads as 0")
	assert.Equal(t, []string{"One", "Two"}, dayTitles(v.Itinerary))
	assert.Equal(t, []string{"Lodging", "Meals"}, v.Included)
	assert.Equal(t, []string{"Poon Hill"}, v.Highlights)
	assert.Equal(t, []string{}, v.Excluded)
	assert.Equal(t, "Pokhara", v.Location)
	assert.Equal(t, 5, v.Days)
	assert.False(t, v.IsLastMinute)
}

func TestCatalogService_List_PublishedOnlyAndOrder(t *testing.T) {
	db := newMemDB()
	seedTrip(t, db, "Old", "old", domain.TripStatusPublished)
	seedTrip(t, db, "Draft", "draft", domain.TripStatusDraft)
	seedTrip(t, db, "New", "new", domain.TripStatusPublished)
	c := newCatalog(db)

	public, err := c.List(context.Background(), true)
	require.NoError(t, err)
	all, err := c.List(context.Background(), false)
	require.NoError(t, err)

	titles := func(vs []domain.TripView) []string {
		out := []string{}
		for _, v := range vs {
			out = append(out, v.Title)
		}
		return out
	}
	assert.Equal(t, []string{"New", "Old"}, titles(public))
	assert.Equal(t, []string{"New", "Draft", "Old"}, titles(all))
}

func TestCatalogService_List_Empty(t *testing.T) {
	views, err := newCatalog(newMemDB()).List(context.Background(), true)

	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestCatalogService_List_BackendFailureIsEmptyAndNotCached(t *testing.T) {
	db := newMemDB()
	seedTrip(t, db, "Annapurna Circuit", "annapurna-circuit", domain.TripStatusPublished)
	c := newCatalog(db)

	db.setFail("meta.ListByTripIDs", errInjected)
	views, err := c.List(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, views)

	db.setFail("meta.ListByTripIDs", nil)
	views, err = c.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestCatalogService_List_ServedFromCache(t *testing.T) {
	db := newMemDB()
	seedTrip(t, db, "Annapurna Circuit", "annapurna-circuit", domain.TripStatusPublished)
	c := newCatalog(db)

	_, err := c.List(context.Background(), true)
	require.NoError(t, err)
	_, err = c.List(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 1, db.callCount("trips.List"))
}

// ---- detail ----------------------------------------------------------------

func TestCatalogService_GetBySlug(t *testing.T) {
	db := newMemDB()
	trip := seedTrip(t, db, "Annapurna Circuit", "annapurna-circuit", domain.TripStatusPublished)

	v, err := newCatalog(db).GetBySlug(context.Background(), "annapurna-circuit", true)

	require.NoError(t, err)
	assert.Equal(t, trip.ID, v.ID)
}

func TestCatalogService_GetBySlug_NotFound(t *testing.T) {
	_, err := newCatalog(newMemDB()).GetBySlug(context.Background(), "nope", true)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogService_GetBySlug_DraftHiddenFromPublic(t *testing.T) {
	db := newMemDB()
	seedTrip(t, db, "Draft", "draft", domain.TripStatusDraft)
	c := newCatalog(db)

	_, err := c.GetBySlug(context.Background(), "draft", true)
	require.ErrorIs(t, err, domain.ErrNotFound)

	v, err := c.GetBySlug(context.Background(), "draft", false)
	require.NoError(t, err)
	assert.Equal(t, "Draft", v.Title)
}

func TestCatalogService_GetBySlug_BackendErrorIsNotNotFound(t *testing.T) {
	db := newMemDB()
	seedTrip(t, db, "Annapurna Circuit", "annapurna-circuit", domain.TripStatusPublished)
	db.setFail("trips.GetBySlug", errors.New("connection reset"))

	_, err := newCatalog(db).GetBySlug(context.Background(), "annapurna-circuit", true)

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogService_GetByID_CachedPerScope(t *testing.T) {
	db := newMemDB()
	trip := seedTrip(t, db, "Annapurna Circuit", "annapurna-circuit", domain.TripStatusPublished)
	c := newCatalog(db)
	ctx := context.Background()

	_, err := c.GetByID(ctx, trip.ID, true)
	require.NoError(t, err)
	_, err = c.GetByID(ctx, trip.ID, true)
	require.NoError(t, err)
	_, err = c.GetByID(ctx, trip.ID, false)
	require.NoError(t, err)

	assert.Equal(t, 2, db.callCount("trips.GetByID"))
}

func TestCatalogService_GetByID_NotFound(t *testing.T) {
	_, err := newCatalog(newMemDB()).GetByID(context.Background(), uuid.New(), false)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
