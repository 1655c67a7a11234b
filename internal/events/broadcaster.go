package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pkordes/trek-booking/internal/cache"
)

// Invalidator drops cache entries.
type Invalidator interface {
	Invalidate(ctx context.Context, inv cache.Invalidation) error
}

// invalidationMessage is the cache.invalidate payload.
type invalidationMessage struct {
	Origin string   `json:"origin"`
	Tags   []string `json:"tags,omitempty"`
	Keys   []string `json:"keys,omitempty"`
}

// Broadcaster applies invalidations to the local cache and forwards them to
// the other instances. It satisfies Invalidator itself so services do not
// care whether they run alone or in a fleet.
type Broadcaster struct {
	local  Invalidator
	pub    Publisher
	origin string
}

// NewBroadcaster returns a Broadcaster tagging its messages with origin,
// which must be unique per process.
func NewBroadcaster(local Invalidator, pub Publisher, origin string) *Broadcaster {
	return &Broadcaster{local: local, pub: pub, origin: origin}
}

// Invalidate applies inv locally, then publishes it. A publish failure is
// logged and not returned: the local cache is already correct and remote
// entries expire with their TTL.
func (b *Broadcaster) Invalidate(ctx context.Context, inv cache.Invalidation) error {
	if inv.Empty() {
		return nil
	}
	if err := b.local.Invalidate(ctx, inv); err != nil {
		return fmt.Errorf("events.Broadcaster.Invalidate: %w", err)
	}

	msg := invalidationMessage{Origin: b.origin, Tags: inv.Tags, Keys: inv.Keys}
	if err := b.pub.Publish(ctx, KeyCacheInvalidate, msg); err != nil {
		slog.WarnContext(ctx, "cache invalidation not broadcast", "error", err, "tags", inv.Tags)
	}
	return nil
}

// Listen applies invalidations from other instances until msgs closes or
// ctx is done.
func (b *Broadcaster) Listen(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("invalidation channel closed, stopping listener")
				return
			}
			b.handle(ctx, msg)
		}
	}
}

func (b *Broadcaster) handle(ctx context.Context, msg amqp.Delivery) {
	if msg.RoutingKey != "" && msg.RoutingKey != KeyCacheInvalidate {
		_ = msg.Ack(false)
		return
	}

	var in invalidationMessage
	if err := json.Unmarshal(msg.Body, &in); err != nil {
		slog.WarnContext(ctx, "dropping malformed invalidation", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	if in.Origin != b.origin {
		if err := b.local.Invalidate(ctx, cache.Invalidation{Tags: in.Tags, Keys: in.Keys}); err != nil {
			slog.ErrorContext(ctx, "applying remote invalidation", "error", err)
			_ = msg.Nack(false, true)
			return
		}
	}
	_ = msg.Ack(false)
}
