package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// each delivery handler gets this long before its context is cancelled
const handlerTimeout = 30 * time.Second

// consumerChannel opens a dedicated channel with prefetch (QoS) applied.
// Consumers never share the publish channel.
func (client *Client) consumerChannel(prefetch int) (*amqp.Channel, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, errors.New("rabbitmq: connection is not ready")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if prefetch < 0 {
		prefetch = 1
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("rabbitmq: set QoS (prefetch=%d): %w", prefetch, err)
		}
	}

	return ch, nil
}

// Consume reads queue until ctx is cancelled or the channel dies, calling
// handler per delivery with manual ack semantics. A handler error nacks
// without requeue; poison messages must not spin the queue.
func (client *Client) Consume(
	ctx context.Context,
	queue string,
	consumerTag string,
	prefetch int,
	handler func(context.Context, amqp.Delivery) error,
) error {
	ch, err := client.consumerChannel(prefetch)
	if err != nil {
		return err
	}
	defer ch.Close()

	deliveries, err := ch.Consume(
		queue,
		consumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal (ignored by RabbitMQ)
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume(%s): %w", queue, err)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			if consumerTag != "" {
				_ = ch.Cancel(consumerTag, false)
			}
			return nil

		case cerr := <-closed:
			if cerr != nil {
				return fmt.Errorf("rabbitmq: channel closed while consuming %s: %w", queue, cerr)
			}
			return nil

		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			settle(ctx, d, handler)
		}
	}
}

// settle runs one handler invocation under the per-delivery timeout and
// acks or nacks accordingly.
func settle(ctx context.Context, d amqp.Delivery, handler func(context.Context, amqp.Delivery) error) {
	hCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	if err := handler(hCtx, d); err != nil {
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
