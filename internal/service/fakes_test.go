package service_test

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trek-booking/internal/cache"
	"github.com/pkordes/trek-booking/internal/domain"
	"github.com/pkordes/trek-booking/internal/repo"
	"github.com/pkordes/trek-booking/internal/storage"
)

// memDB is an in-memory stand-in for the Postgres schema. It mirrors the
// constraints the services rely on: unique slugs, one price per (trip, type),
// cascading child rows and bookings detached on trip delete.
//
// Set fail["<table>.<Method>"] to make that call return an error.
type memDB struct {
	mu        sync.Mutex
	trips     map[uuid.UUID]domain.Trip
	images    []domain.TripImage
	pricing   []domain.TripPricing
	itinerary map[uuid.UUID][]domain.ItineraryDay
	meta      []domain.TripMeta
	bookings  []domain.Booking
	fail      map[string]error
	calls     map[string]int
	seq       int
}

func newMemDB() *memDB {
	return &memDB{
		trips:     map[uuid.UUID]domain.Trip{},
		itinerary: map[uuid.UUID][]domain.ItineraryDay{},
		fail:      map[string]error{},
		calls:     map[string]int{},
	}
}

var errInjected = errors.New("injected failure")

// enter locks the db, counts the call and returns the injected error for op.
// Callers must defer m.mu.Unlock().
func (m *memDB) enter(op string) error {
	m.mu.Lock()
	m.calls[op]++
	return m.fail[op]
}

func (m *memDB) setFail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

func (m *memDB) callCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memDB) repos() repo.Repos {
	return repo.Repos{
		Trips:     memTrips{m},
		Images:    memImages{m},
		Pricing:   memPricing{m},
		Itinerary: memItinerary{m},
		Meta:      memMeta{m},
		Bookings:  memBookings{m},
	}
}

// snapshot and restore are used by memTransactor to emulate rollback.
type memState struct {
	trips     map[uuid.UUID]domain.Trip
	images    []domain.TripImage
	pricing   []domain.TripPricing
	itinerary map[uuid.UUID][]domain.ItineraryDay
	meta      []domain.TripMeta
	bookings  []domain.Booking
}

func (m *memDB) snapshot() memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := map[uuid.UUID][]domain.ItineraryDay{}
	for k, v := range m.itinerary {
		it[k] = slices.Clone(v)
	}
	return memState{
		trips:     maps.Clone(m.trips),
		images:    slices.Clone(m.images),
		pricing:   slices.Clone(m.pricing),
		itinerary: it,
		meta:      slices.Clone(m.meta),
		bookings:  slices.Clone(m.bookings),
	}
}

func (m *memDB) restore(s memState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips, m.images, m.pricing, m.itinerary, m.meta, m.bookings =
		s.trips, s.images, s.pricing, s.itinerary, s.meta, s.bookings
}

// memTransactor runs fn against the same memDB. When atomic is set a failing
// fn rolls every change back; otherwise partial writes stay, which is how
// the replace steps would behave without a transaction.
type memTransactor struct {
	db     *memDB
	atomic bool
}

func (t memTransactor) WithinTx(_ context.Context, fn func(repo.Repos) error) error {
	var before memState
	if t.atomic {
		before = t.db.snapshot()
	}
	if err := fn(t.db.repos()); err != nil {
		if t.atomic {
			t.db.restore(before)
		}
		return err
	}
	return nil
}

var _ repo.Transactor = memTransactor{}

// ---- trips -----------------------------------------------------------------

type memTrips struct{ m *memDB }

var _ repo.TripRepo = memTrips{}

func (r memTrips) slugTaken(slug string, except uuid.UUID) bool {
	for id, t := range r.m.trips {
		if t.Slug == slug && id != except {
			return true
		}
	}
	return false
}

func (r memTrips) Create(_ context.Context, t domain.Trip) (domain.Trip, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("trips.Create"); err != nil {
		return domain.Trip{}, err
	}
	if r.slugTaken(t.Slug, uuid.Nil) {
		return domain.Trip{}, fmt.Errorf("%w: trips_slug_key", domain.ErrConflict)
	}
	r.m.seq++
	t.ID = uuid.New()
	t.CreatedAt = time.Date(2026, 1, 1, 0, 0, r.m.seq, 0, time.UTC)
	t.UpdatedAt = t.CreatedAt
	if t.Status == "" {
		t.Status = domain.TripStatusDraft
	}
	r.m.trips[t.ID] = t
	return t, nil
}

func (r memTrips) GetByID(_ context.Context, id uuid.UUID) (domain.Trip, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("trips.GetByID"); err != nil {
		return domain.Trip{}, err
	}
	t, ok := r.m.trips[id]
	if !ok {
		return domain.Trip{}, domain.ErrNotFound
	}
	return t, nil
}

func (r memTrips) GetBySlug(_ context.Context, slug string) (domain.Trip, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("trips.GetBySlug"); err != nil {
		return domain.Trip{}, err
	}
	for _, t := range r.m.trips {
		if t.Slug == slug {
			return t, nil
		}
	}
	return domain.Trip{}, domain.ErrNotFound
}

func (r memTrips) List(_ context.Context, publishedOnly bool) ([]domain.Trip, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("trips.List"); err != nil {
		return nil, err
	}
	out := []domain.Trip{}
	for _, t := range r.m.trips {
		if publishedOnly && t.Status != domain.TripStatusPublished {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b domain.Trip) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (r memTrips) Update(_ context.Context, t domain.Trip) (domain.Trip, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("trips.Update"); err != nil {
		return domain.Trip{}, err
	}
	cur, ok := r.m.trips[t.ID]
	if !ok {
		return domain.Trip{}, domain.ErrNotFound
	}
	if r.slugTaken(t.Slug, t.ID) {
		return domain.Trip{}, fmt.Errorf("%w: trips_slug_key", domain.ErrConflict)
	}
	t.CreatedAt = cur.CreatedAt
	t.Status = cur.Status
	r.m.trips[t.ID] = t
	return t, nil
}

func (r memTrips) SetPDFPath(_ context.Context, id uuid.UUID, path string) error {
	defer r.m.mu.Unlock()
	if err := r.m.enter("trips.SetPDFPath"); err != nil {
		return err
	}
	t, ok := r.m.trips[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.PDFPath = &path
	r.m.trips[id] = t
	return nil
}

func (r memTrips) SetStatus(_ context.Context, id uuid.UUID, status domain.TripStatus) (domain.Trip, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("trips.SetStatus"); err != nil {
		return domain.Trip{}, err
	}
	t, ok := r.m.trips[id]
	if !ok {
		return domain.Trip{}, domain.ErrNotFound
	}
	t.Status = status
	r.m.trips[id] = t
	return t, nil
}

func (r memTrips) Delete(_ context.Context, id uuid.UUID) error {
	defer r.m.mu.Unlock()
	if err := r.m.enter("trips.Delete"); err != nil {
		return err
	}
	t, ok := r.m.trips[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.m.trips, id)
	delete(r.m.itinerary, id)
	r.m.images = slices.DeleteFunc(r.m.images, func(i domain.TripImage) bool { return i.TripID == id })
	r.m.pricing = slices.DeleteFunc(r.m.pricing, func(p domain.TripPricing) bool { return p.TripID == id })
	r.m.meta = slices.DeleteFunc(r.m.meta, func(x domain.TripMeta) bool { return x.TripID == id })
	for i, b := range r.m.bookings {
		if b.TripID != nil && *b.TripID == id {
			r.m.bookings[i].TripID = nil
			r.m.bookings[i].TripTitle = t.Title
		}
	}
	return nil
}

func (r memTrips) CountByStatus(_ context.Context) (map[domain.TripStatus]int, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("trips.CountByStatus"); err != nil {
		return nil, err
	}
	out := map[domain.TripStatus]int{}
	for _, t := range r.m.trips {
		out[t.Status]++
	}
	return out, nil
}

// ---- images ----------------------------------------------------------------

type memImages struct{ m *memDB }

var _ repo.ImageRepo = memImages{}

func (r memImages) Create(_ context.Context, img domain.TripImage) (domain.TripImage, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("images.Create"); err != nil {
		return domain.TripImage{}, err
	}
	if _, ok := r.m.trips[img.TripID]; !ok {
		return domain.TripImage{}, domain.ErrNotFound
	}
	img.ID = uuid.New()
	r.m.images = append(r.m.images, img)
	return img, nil
}

func (r memImages) ListByTripIDs(_ context.Context, ids []uuid.UUID) ([]domain.TripImage, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("images.ListByTripIDs"); err != nil {
		return nil, err
	}
	var out []domain.TripImage
	for _, img := range r.m.images {
		if slices.Contains(ids, img.TripID) {
			out = append(out, img)
		}
	}
	slices.SortFunc(out, func(a, b domain.TripImage) int { return cmp.Compare(a.Position, b.Position) })
	return out, nil
}

func (r memImages) CountByTrip(_ context.Context, tripID uuid.UUID) (int, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("images.CountByTrip"); err != nil {
		return 0, err
	}
	n := 0
	for _, img := range r.m.images {
		if img.TripID == tripID {
			n++
		}
	}
	return n, nil
}

func (r memImages) Delete(_ context.Context, tripID, imageID uuid.UUID) (domain.TripImage, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("images.Delete"); err != nil {
		return domain.TripImage{}, err
	}
	for i, img := range r.m.images {
		if img.ID == imageID && img.TripID == tripID {
			r.m.images = slices.Delete(r.m.images, i, i+1)
			return img, nil
		}
	}
	return domain.TripImage{}, domain.ErrNotFound
}

// imagesOf returns the stored images of a trip ordered by position.
func (m *memDB) imagesOf(tripID uuid.UUID) []domain.TripImage {
	imgs, _ := memImages{m}.ListByTripIDs(context.Background(), []uuid.UUID{tripID})
	return imgs
}

// ---- pricing ---------------------------------------------------------------

type memPricing struct{ m *memDB }

var _ repo.PricingRepo = memPricing{}

func (r memPricing) Insert(_ context.Context, rows []domain.TripPricing) error {
	defer r.m.mu.Unlock()
	if err := r.m.enter("pricing.Insert"); err != nil {
		return err
	}
	for _, row := range rows {
		for _, p := range r.m.pricing {
			if p.TripID == row.TripID && p.Type == row.Type {
				return fmt.Errorf("%w: trip_pricing_trip_id_type_key", domain.ErrConflict)
			}
		}
	}
	r.m.pricing = append(r.m.pricing, rows...)
	return nil
}

func (r memPricing) Upsert(_ context.Context, rows []domain.TripPricing) error {
	defer r.m.mu.Unlock()
	if err := r.m.enter("pricing.Upsert"); err != nil {
		return err
	}
	for _, row := range rows {
		i := slices.IndexFunc(r.m.pricing, func(p domain.TripPricing) bool {
			return p.TripID == row.TripID && p.Type == row.Type
		})
		if i >= 0 {
			r.m.pricing[i].Price = row.Price
			continue
		}
		r.m.pricing = append(r.m.pricing, row)
	}
	return nil
}

func (r memPricing) ListByTripIDs(_ context.Context, ids []uuid.UUID) ([]domain.TripPricing, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("pricing.ListByTripIDs"); err != nil {
		return nil, err
	}
	var out []domain.TripPricing
	for _, p := range r.m.pricing {
		if slices.Contains(ids, p.TripID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memDB) pricingOf(tripID uuid.UUID) []domain.TripPricing {
	rows, _ := memPricing{m}.ListByTripIDs(context.Background(), []uuid.UUID{tripID})
	return rows
}

// ---- itinerary -------------------------------------------------------------

type memItinerary struct{ m *memDB }

var _ repo.ItineraryRepo = memItinerary{}

func (r memItinerary) Insert(_ context.Context, tripID uuid.UUID, days []domain.ItineraryDay) error {
	defer r.m.mu.Unlock()
	if err := r.m.enter("itinerary.Insert"); err != nil {
		return err
	}
	r.m.itinerary[tripID] = append(r.m.itinerary[tripID], days...)
	return nil
}

func (r memItinerary) DeleteByTrip(_ context.Context, tripID uuid.UUID) error {
	defer r.m.mu.Unlock()
	if err := r.m.enter("itinerary.DeleteByTrip"); err != nil {
		return err
	}
	delete(r.m.itinerary, tripID)
	return nil
}

func (r memItinerary) ListByTripIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.ItineraryDay, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("itinerary.ListByTripIDs"); err != nil {
		return nil, err
	}
	out := map[uuid.UUID][]domain.ItineraryDay{}
	for _, id := range ids {
		if days, ok := r.m.itinerary[id]; ok {
			out[id] = slices.Clone(days)
		}
	}
	return out, nil
}

// ---- meta ------------------------------------------------------------------

type memMeta struct{ m *memDB }

var _ repo.MetaRepo = memMeta{}

func (r memMeta) Insert(_ context.Context, rows []domain.TripMeta) error {
	defer r.m.mu.Unlock()
	if err := r.m.enter("meta.Insert"); err != nil {
		return err
	}
	r.m.meta = append(r.m.meta, rows...)
	return nil
}

func (r memMeta) DeleteByTrip(_ context.Context, tripID uuid.UUID) error {
	defer r.m.mu.Unlock()
	if err := r.m.enter("meta.DeleteByTrip"); err != nil {
		return err
	}
	r.m.meta = slices.DeleteFunc(r.m.meta, func(x domain.TripMeta) bool { return x.TripID == tripID })
	return nil
}

func (r memMeta) ListByTripIDs(_ context.Context, ids []uuid.UUID) ([]domain.TripMeta, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("meta.ListByTripIDs"); err != nil {
		return nil, err
	}
	var out []domain.TripMeta
	for _, x := range r.m.meta {
		if slices.Contains(ids, x.TripID) {
			out = append(out, x)
		}
	}
	return out, nil
}

// ---- bookings --------------------------------------------------------------

type memBookings struct{ m *memDB }

var _ repo.BookingRepo = memBookings{}

func (r memBookings) Create(_ context.Context, b domain.Booking) (domain.Booking, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("bookings.Create"); err != nil {
		return domain.Booking{}, err
	}
	if b.TripID == nil {
		return domain.Booking{}, domain.ErrNotFound
	}
	t, ok := r.m.trips[*b.TripID]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	r.m.seq++
	b.ID = uuid.New()
	b.TripTitle = t.Title
	b.CreatedAt = time.Date(2026, 2, 1, 0, 0, r.m.seq, 0, time.UTC)
	r.m.bookings = append(r.m.bookings, b)
	return b, nil
}

func (r memBookings) ListPaged(_ context.Context, p domain.PaginationParams) ([]domain.Booking, int64, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("bookings.ListPaged"); err != nil {
		return nil, 0, err
	}
	all := slices.Clone(r.m.bookings)
	slices.SortFunc(all, func(a, b domain.Booking) int { return b.CreatedAt.Compare(a.CreatedAt) })
	start := min(p.Offset(), len(all))
	end := min(start+p.Limit, len(all))
	return all[start:end], int64(len(all)), nil
}

func (r memBookings) Stats(_ context.Context) (domain.BookingStats, error) {
	defer r.m.mu.Unlock()
	if err := r.m.enter("bookings.Stats"); err != nil {
		return domain.BookingStats{}, err
	}
	var s domain.BookingStats
	for _, b := range r.m.bookings {
		s.Total++
		if b.Status == domain.BookingPending {
			s.Pending++
		}
	}
	return s, nil
}

func (m *memDB) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

// ---- object store ----------------------------------------------------------

// memStore is an in-memory storage.ObjectStore. failUpload, when set, is
// consulted for every upload with the key about to be written.
type memStore struct {
	mu           sync.Mutex
	objects      map[string][]byte
	failUpload   func(key string) error
	failRemove   error
	removedKeys  []string
	removedPaths []string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

var _ storage.ObjectStore = (*memStore)(nil)

func (s *memStore) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if s.failUpload != nil {
		if err := s.failUpload(key); err != nil {
			return err
		}
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return nil
}

func (s *memStore) PublicURL(key string) string { return "https://cdn.test/trip-images/" + key }

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRemove != nil {
		return s.failRemove
	}
	delete(s.objects, key)
	s.removedKeys = append(s.removedKeys, key)
	return nil
}

func (s *memStore) RemovePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRemove != nil {
		return s.failRemove
	}
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			delete(s.objects, k)
		}
	}
	s.removedPaths = append(s.removedPaths, prefix)
	return nil
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.objects))
}

// ---- session, cache, events ------------------------------------------------

// mockVerifier returns user, or err when set.
type mockVerifier struct {
	err   error
	calls int
}

func (m *mockVerifier) Verify(context.Context) (domain.User, error) {
	m.calls++
	if m.err != nil {
		return domain.User{}, m.err
	}
	return domain.User{ID: uuid.New(), Email: "admin@example.com"}, nil
}

// recordingInvalidator forwards to next (if any) and records what it saw.
type recordingInvalidator struct {
	mu   sync.Mutex
	seen []cache.Invalidation
	next *cache.Cache
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, inv cache.Invalidation) error {
	r.mu.Lock()
	r.seen = append(r.seen, inv)
	r.mu.Unlock()
	if r.next != nil {
		return r.next.Invalidate(ctx, inv)
	}
	return nil
}

func (r *recordingInvalidator) last() cache.Invalidation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return cache.Invalidation{}
	}
	return r.seen[len(r.seen)-1]
}

// mockPublisher records published events.
type mockPublisher struct {
	mu       sync.Mutex
	keys     []string
	payloads []any
	err      error
}

func (m *mockPublisher) Publish(_ context.Context, key string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	m.payloads = append(m.payloads, payload)
	return m.err
}

// ---- uploads ---------------------------------------------------------------

func upload(name, body string) domain.Upload {
	return domain.Upload{
		Filename:    name,
		ContentType: "image/jpeg",
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}
