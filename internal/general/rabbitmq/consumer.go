package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"ride-dispatch/internal/ports"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	handlerTimeout   = 30 * time.Second
	resubscribeDelay = time.Second
	consumerPrefetch = 1
)

// newConsumerChannel returns a fresh channel with prefetch (QoS) applied.
func (client *Client) newConsumerChannel(prefetch int) (*amqp.Channel, error) {
	conn, _, err := client.ready()
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: set QoS (prefetch=%d): %w", prefetch, err)
	}

	return ch, nil
}

// Subscribe consumes queue with manual acks and one message in flight. A nil
// handler result acks; an error nacks with requeue. When the channel dies the
// subscription is opened again, dialing a fresh connection if needed. It
// returns when ctx is done or the client is closed.
func (client *Client) Subscribe(ctx context.Context, queue string, handler ports.Handler) error {
	for {
		err := client.consume(ctx, queue, handler)
		if ctx.Err() != nil || client.isClosed() {
			return nil
		}

		client.logger.Error(client.logCtx, "rabbitmq_consumer_interrupted",
			"Consumer stopped; resubscribing", err, map[string]any{"queue": queue})

		select {
		case <-ctx.Done():
			return nil
		case <-client.closed:
			return nil
		case <-time.After(resubscribeDelay):
		}
	}
}

// consume runs a single consumer session until its channel or ctx ends.
func (client *Client) consume(ctx context.Context, queue string, handler ports.Handler) error {
	ch, err := client.newConsumerChannel(consumerPrefetch)
	if err != nil {
		return err
	}
	defer ch.Close()

	// durable, not auto-deleted, not exclusive
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare queue %s: %w", queue, err)
	}

	consumerTag := queue + "-" + uuid.NewString()
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

	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(consumerTag, false)
			return nil

		case <-client.closed:
			return nil

		case cerr := <-chClosed:
			if cerr != nil {
				return fmt.Errorf("rabbitmq: channel closed while consuming %s: %w", queue, cerr)
			}
			return fmt.Errorf("rabbitmq: channel closed while consuming %s", queue)

		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq: delivery stream for %s ended", queue)
			}

			hCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
			err := handler(hCtx, ports.Delivery{
				Queue:       queue,
				Body:        d.Body,
				Redelivered: d.Redelivered,
			})
			cancel()

			if err != nil {
				// requeue so another consumer (or this one, later) can take it
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
