package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// defaultDialTimeout applies when the caller's context has no deadline.
const defaultDialTimeout = 5 * time.Second

// Publisher delivers audit events.  Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, ev AuditEvent) error
}

// NopPublisher discards every event.  It is used when auditing is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, AuditEvent) error { return nil }

// AMQPPublisher publishes audit events to RabbitMQ.  Each call dials the
// broker, declares the durable queue and publishes one persistent message.
type AMQPPublisher struct {
	url   string
	queue string
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: AuditQueueName}
}

// Publish sends ev to the audit queue.
func (p *AMQPPublisher) Publish(ctx context.Context, ev AuditEvent) error {
	msg, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	conn, err := p.dial(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Declaring is idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		msg,
	); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// dial connects within ctx's deadline.  The deadline also bounds the AMQP
// handshake, so a broker that accepts TCP and then stalls cannot hold the
// caller past it.
func (p *AMQPPublisher) dial(ctx context.Context) (*amqp.Connection, error) {
	timeout := defaultDialTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	return amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

func encodeEvent(ev AuditEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal audit event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}, nil
}
