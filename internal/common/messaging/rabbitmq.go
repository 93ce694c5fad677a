// internal/common/messaging/rabbitmq.go
package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"agritour-certification/internal/common/config"
)

// Publisher publishes domain events to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// RabbitPublisher publishes persistent JSON messages with publisher confirms.
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex
}

func NewRabbitPublisher(cfg config.RabbitMQConfig) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &RabbitPublisher{conn: conn, channel: ch, exchange: cfg.Exchange}, nil
}

// Publish blocks until the broker confirms the message.
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	msg, err := BuildPublishing(payload, time.Now().UTC())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for confirm of %s: %w", routingKey, err)
	}
	if !acked {
		return fmt.Errorf("broker nacked %s", routingKey)
	}
	return nil
}

// BuildPublishing encodes payload as a persistent JSON message.
func BuildPublishing(payload interface{}, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Body:         body,
		Headers:      amqp.Table{"message_type": "JSON"},
	}, nil
}

func (p *RabbitPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NopPublisher drops events. Used when messaging is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
