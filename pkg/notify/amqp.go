package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

const refreshExchange = "share.refresh"

// AMQPBroadcaster fans refresh signals out across service instances through
// a RabbitMQ fanout exchange. Each subscriber binds its own exclusive
// auto-deleted queue, so every instance sees every signal.
type AMQPBroadcaster struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPBroadcaster dials the broker and declares the fanout exchange.
func NewAMQPBroadcaster(url string) (*AMQPBroadcaster, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("amqp url required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(refreshExchange, "fanout", false, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPBroadcaster{conn: conn, ch: ch}, nil
}

func (b *AMQPBroadcaster) Publish(ctx context.Context, userID string) error {
	return b.ch.PublishWithContext(ctx, refreshExchange, "", false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        []byte(userID),
	})
}

func (b *AMQPBroadcaster) Subscribe(ctx context.Context) (<-chan string, error) {
	queue, err := b.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := b.ch.QueueBind(queue.Name, "", refreshExchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}
	deliveries, err := b.ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	out := make(chan string, 16)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				select {
				case out <- string(d.Body):
				default:
					slog.Warn("refresh signal dropped, subscriber slow")
				}
			}
		}
	}()
	return out, nil
}

// Close shuts down the channel and connection.
func (b *AMQPBroadcaster) Close() error {
	if err := b.ch.Close(); err != nil {
		_ = b.conn.Close()
		return err
	}
	return b.conn.Close()
}
