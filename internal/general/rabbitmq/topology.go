package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// declareQueue declares a durable queue on ch unless this connection already did.
func (client *Client) declareQueue(ch *amqp.Channel, name string) error {
	client.declMu.Lock()
	defer client.declMu.Unlock()

	if _, ok := client.declared[name]; ok {
		return nil
	}

	// durable, not auto-deleted, not exclusive
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}

	client.declared[name] = struct{}{}
	return nil
}

// resetDeclared forgets declarations made on a previous connection.
func (client *Client) resetDeclared() {
	client.declMu.Lock()
	client.declared = make(map[string]struct{})
	client.declMu.Unlock()
}

// DeclareQueues eagerly declares the shared queues so messages published before
// the first consumer attaches are retained.
func (client *Client) DeclareQueues(names ...string) error {
	_, ch, err := client.ready()
	if err != nil {
		return err
	}

	client.pubMu.Lock()
	defer client.pubMu.Unlock()

	for _, name := range names {
		if err := client.declareQueue(ch, name); err != nil {
			return err
		}
	}
	return nil
}
