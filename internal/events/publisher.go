// Package events carries messages between API instances over RabbitMQ:
// cache invalidations so every instance drops the same entries, and
// notifications such as new bookings for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "trek-booking"
	ExchangeKind = "topic"

	KeyCacheInvalidate = "cache.invalidate"
	KeyBookingCreated  = "booking.created"
)

// Publisher sends a JSON payload under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// AMQPPublisher publishes to the topic exchange on its own channel.
type AMQPPublisher struct {
	mu      sync.Mutex
	channel *amqp.Channel
}

// NewPublisher opens a channel on conn and declares the exchange.
func NewPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("events.NewPublisher: channel: %w", err)
	}
	if err := declareExchange(ch); err != nil {
		ch.Close()
		return nil, fmt.Errorf("events.NewPublisher: %w", err)
	}
	return &AMQPPublisher{channel: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events.AMQPPublisher.Publish: marshal: %w", err)
	}

	// amqp channels are not safe for concurrent publishes.
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	}); err != nil {
		return fmt.Errorf("events.AMQPPublisher.Publish %s: %w", routingKey, err)
	}

	slog.DebugContext(ctx, "event published", "exchange", ExchangeName, "routing_key", routingKey)
	return nil
}

func (p *AMQPPublisher) Close() error {
	return p.channel.Close()
}

// NopPublisher drops every message. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

func declareExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}
