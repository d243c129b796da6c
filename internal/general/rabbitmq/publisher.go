package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	confirmWait       = 5 * time.Second
	confirmDrainGrace = 2 * time.Second
)

// MQPublisher is the thin publish facade handed to the services.
type MQPublisher struct {
	Client *Client
}

func NewMQPublisher(client *Client) *MQPublisher {
	return &MQPublisher{Client: client}
}

// Publish sends body to exchange under routingKey. Messages are persistent
// JSON and each publish waits for a broker confirm.
func (publisher *MQPublisher) Publish(exchange, routingKey string, body []byte) error {
	return publisher.Client.PublishMessage(exchange, routingKey, body)
}

// PublishMessage does the actual confirmed publish on the shared channel.
func (client *Client) PublishMessage(exchange, routingKey string, body []byte) error {
	client.mu.RLock()
	ch := client.pubChan
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: publish channel is not open")
	}

	// confirms arrive in publish order, so publishes must serialize
	client.pubMu.Lock()
	defer client.pubMu.Unlock()
	confirms := client.pubConfirms

	ctx, cancel := context.WithTimeout(context.Background(), confirmWait)
	defer cancel()

	err := ch.PublishWithContext(ctx, exchange, routingKey, true /* mandatory */, false, /* immediate */
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		return err
	}

	return awaitConfirm(ctx, confirms)
}

// awaitConfirm blocks for the broker ack matching the publish that was just
// written. On timeout it still drains one confirm so the stream stays
// aligned with later publishes.
func awaitConfirm(ctx context.Context, confirms chan amqp.Confirmation) error {
	select {
	case c := <-confirms:
		if !c.Ack {
			return fmt.Errorf("rabbitmq: publish not acknowledged")
		}
		return nil
	case <-ctx.Done():
	}

	select {
	case c := <-confirms:
		if !c.Ack {
			return fmt.Errorf("rabbitmq: publish not acknowledged after timeout")
		}
	case <-time.After(confirmDrainGrace):
		// confirm never arrived, stream alignment is best effort now
	}
	return ctx.Err()
}
