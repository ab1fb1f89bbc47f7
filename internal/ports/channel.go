package ports

import "context"

// Delivery is one message handed to a subscription handler.
type Delivery struct {
	Queue       string
	Body        []byte
	Redelivered bool
}

// Handler processes a delivery. A nil return acknowledges the message; an
// error requeues it for redelivery.
type Handler func(ctx context.Context, d Delivery) error

// MessageChannel is the durable named-queue primitive shared by the engine
// and the actors. Payloads are JSON encoded; delivery is at-least-once.
type MessageChannel interface {
	Publish(ctx context.Context, queue string, payload any) error
	// Subscribe consumes queue with at most one unacknowledged message in
	// flight and blocks until ctx is done or the channel is closed.
	Subscribe(ctx context.Context, queue string, handler Handler) error
	Close() error
}
