// Package service contains the business logic for the Trek Booking service.
// Services validate inputs, enforce business rules, and orchestrate repo,
// storage and cache calls. No SQL lives here.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/trek-booking/internal/cache"
	"github.com/pkordes/trek-booking/internal/domain"
)

// Cache tags. Every cached trip read carries TagTrips; booking-derived reads
// carry TagBookings.
const (
	TagTrips    = "trips"
	TagBookings = "bookings"
)

// Invalidator drops cache entries. *cache.Cache and *events.Broadcaster both
// satisfy it.
type Invalidator interface {
	Invalidate(ctx context.Context, inv cache.Invalidation) error
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Verifier resolves the session of the current request.
type Verifier interface {
	Verify(ctx context.Context) (domain.User, error)
}

func scope(publishedOnly bool) string {
	if publishedOnly {
		return "published"
	}
	return "all"
}

func listKey(publishedOnly bool) string {
	return "trips:list:" + scope(publishedOnly)
}

func slugKey(slug string, publishedOnly bool) string {
	return fmt.Sprintf("trips:slug:%s:%s", slug, scope(publishedOnly))
}

func idKey(id uuid.UUID, publishedOnly bool) string {
	return fmt.Sprintf("trips:id:%s:%s", id, scope(publishedOnly))
}

// tripKeys lists every cache key derived from a trip with the given id and
// slugs, in both scopes, plus both list keys.
func tripKeys(id uuid.UUID, slugs ...string) []string {
	keys := []string{listKey(true), listKey(false), idKey(id, true), idKey(id, false)}
	seen := map[string]bool{}
	for _, s := range slugs {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		keys = append(keys, slugKey(s, true), slugKey(s, false))
	}
	return keys
}

// invalidate applies inv and logs instead of failing: the write it follows
// has already been committed.
func invalidate(ctx context.Context, inv Invalidator, i cache.Invalidation) {
	if err := inv.Invalidate(ctx, i); err != nil {
		slog.WarnContext(ctx, "cache invalidation failed", "error", err, "tags", i.Tags)
	}
}

// warnings collects best-effort failures. Safe for concurrent use.
type warnings struct {
	mu   sync.Mutex
	list []domain.Warning
}

func (w *warnings) add(ctx context.Context, step, item string, err error) {
	slog.WarnContext(ctx, "best-effort step failed", "step", step, "item", item, "error", err)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.list = append(w.list, domain.Warning{Step: step, Item: item, Message: err.Error()})
}

func (w *warnings) slice() []domain.Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.list == nil {
		return []domain.Warning{}
	}
	return append([]domain.Warning(nil), w.list...)
}
