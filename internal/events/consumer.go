package events

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer reads from a server-named, exclusive queue bound to the exchange.
// Each API instance gets its own queue, so every instance sees every message.
type Consumer struct {
	channel *amqp.Channel
	queue   string
}

// NewConsumer declares the exchange and an exclusive queue bound to the
// given routing keys.
func NewConsumer(conn *amqp.Connection, routingKeys ...string) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("events.NewConsumer: channel: %w", err)
	}
	if err := declareExchange(ch); err != nil {
		ch.Close()
		return nil, fmt.Errorf("events.NewConsumer: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("events.NewConsumer: queue declare: %w", err)
	}

	for _, key := range routingKeys {
		if err := ch.QueueBind(q.Name, key, ExchangeName, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("events.NewConsumer: queue bind %s: %w", key, err)
		}
	}

	return &Consumer{channel: ch, queue: q.Name}, nil
}

// Consume starts delivery with manual acknowledgement.
func (c *Consumer) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(c.queue, "", false, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("events.Consumer.Consume: %w", err)
	}
	return msgs, nil
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
