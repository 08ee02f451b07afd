package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

const attestationQueue = "attestations"

// Outbox publishes signed attestations to a durable queue so the external
// on-chain redeemer can pick them up. The coordinator works fine without
// one; a nil *Outbox drops every publish.
type Outbox struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	q      amqp.Queue
	logger *slog.Logger
}

func Dial(url string, logger *slog.Logger) (*Outbox, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		attestationQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue: %w", err)
	}

	logger.Info("attestation outbox connected", "queue", q.Name)
	return &Outbox{conn: conn, ch: ch, q: q, logger: logger}, nil
}

// Publish enqueues one attestation as a persistent JSON message.
func (o *Outbox) Publish(ctx context.Context, v any) error {
	if o == nil {
		return nil
	}

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding attestation: %w", err)
	}

	err = o.ch.PublishWithContext(ctx,
		"",
		o.q.Name,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publishing attestation: %w", err)
	}
	return nil
}

func (o *Outbox) Close() {
	if o == nil {
		return
	}
	o.ch.Close()
	o.conn.Close()
}
