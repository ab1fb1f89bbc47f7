package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ride-dispatch/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Publish encodes payload as JSON and delivers it to the named durable queue.
func (client *Client) Publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rabbitmq: encode payload for %s: %w", queue, err)
	}
	return client.PublishMessage(ctx, queue, body)
}

// PublishMessage publishes a persistent JSON body and waits for the broker confirm.
func (client *Client) PublishMessage(ctx context.Context, queue string, body []byte) error {
	_, ch, err := client.ready()
	if err != nil {
		return err
	}

	client.pubMu.Lock()
	defer client.pubMu.Unlock()
	confirms := client.pubConfirms
	if confirms == nil {
		return errNotReady("publish channel is not open")
	}

	if err := client.declareQueue(ch, queue); err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrBrokerUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	seq := ch.GetNextPublishSeqNo()
	if err := ch.PublishWithContext(ctx, "", queue, true /* mandatory */, false, /* immediate */
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("%w: rabbitmq: publish to %s: %v", contracts.ErrBrokerUnavailable, queue, err)
	}

	if err := awaitConfirm(ctx, confirms, seq); err != nil {
		return fmt.Errorf("rabbitmq: publish to %s: %w", queue, err)
	}
	return nil
}

// awaitConfirm waits for the confirm of delivery tag seq. Confirms of earlier
// publishes that timed out arrive first and are skipped.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, seq uint64) error {
	for {
		select {
		case c, ok := <-confirms:
			if !ok {
				return errNotReady("confirm stream closed")
			}
			if c.DeliveryTag < seq {
				continue
			}
			if !c.Ack {
				return fmt.Errorf("%w: not acknowledged", contracts.ErrBrokerUnavailable)
			}
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", contracts.ErrBrokerUnavailable, ctx.Err())
		}
	}
}
