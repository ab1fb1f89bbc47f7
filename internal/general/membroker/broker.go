// Package membroker is an in-process ports.MessageChannel used by the demo
// mode and by tests. Queues are FIFO, every consumer holds at most one
// unacknowledged message, competing consumers are served round-robin and a
// failed message goes back to the head of its queue flagged as redelivered.
package membroker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/ports"
)

type message struct {
	body        []byte
	redelivered bool
}

type queue struct {
	messages []message
	waiters  []chan message // idle consumers, oldest first
}

// Broker is safe for concurrent use.
type Broker struct {
	mu     sync.Mutex
	queues map[string]*queue
	closed bool
	done   chan struct{}
}

func New() *Broker {
	return &Broker{
		queues: make(map[string]*queue),
		done:   make(chan struct{}),
	}
}

func (b *Broker) queueLocked(name string) *queue {
	q, ok := b.queues[name]
	if !ok {
		q = &queue{}
		b.queues[name] = q
	}
	return q
}

// Publish JSON-encodes payload and appends it to queue.
func (b *Broker) Publish(_ context.Context, name string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("membroker: encode payload for %s: %w", name, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("%w: membroker closed", contracts.ErrBrokerUnavailable)
	}
	b.deliverLocked(b.queueLocked(name), message{body: body}, false)
	return nil
}

// deliverLocked hands m to the longest-idle consumer, or stores it.
func (b *Broker) deliverLocked(q *queue, m message, front bool) {
	if len(q.waiters) > 0 {
		w := q.waiters[0]
		q.waiters = q.waiters[1:]
		w <- m // buffered, never blocks
		return
	}
	if front {
		q.messages = append([]message{m}, q.messages...)
		return
	}
	q.messages = append(q.messages, m)
}

// take blocks until a message is available for this consumer.
func (b *Broker) take(ctx context.Context, name string) (message, bool) {
	if ctx.Err() != nil {
		return message{}, false
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return message{}, false
	}
	q := b.queueLocked(name)
	if len(q.messages) > 0 {
		m := q.messages[0]
		q.messages = q.messages[1:]
		b.mu.Unlock()
		return m, true
	}
	w := make(chan message, 1)
	q.waiters = append(q.waiters, w)
	b.mu.Unlock()

	select {
	case m := <-w:
		return m, true
	case <-b.done:
		return message{}, false
	case <-ctx.Done():
	}

	// withdraw; a message handed over in the meantime goes back to the head
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, other := range q.waiters {
		if other == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return message{}, false
		}
	}
	select {
	case m := <-w:
		if !b.closed {
			b.deliverLocked(q, m, true)
		}
	default:
	}
	return message{}, false
}

func (b *Broker) requeue(name string, m message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	m.redelivered = true
	b.deliverLocked(b.queueLocked(name), m, true)
}

// Subscribe blocks, handling one message at a time, until ctx is done or the
// broker is closed.
func (b *Broker) Subscribe(ctx context.Context, name string, handler ports.Handler) error {
	for {
		m, ok := b.take(ctx, name)
		if !ok {
			return nil
		}

		err := handler(ctx, ports.Delivery{Queue: name, Body: m.body, Redelivered: m.redelivered})
		if err != nil {
			b.requeue(name, m)
		}
	}
}

// Len reports the number of messages waiting in queue.
func (b *Broker) Len(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[name]; ok {
		return len(q.messages)
	}
	return 0
}

// Drain removes and returns every waiting message body of queue.
func (b *Broker) Drain(name string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return nil
	}
	out := make([][]byte, 0, len(q.messages))
	for _, m := range q.messages {
		out = append(out, m.body)
	}
	q.messages = nil
	return out
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	return nil
}
