package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/ports"

	"github.com/google/uuid"
)

var ErrNoReply = errors.New("no reply from dispatch engine")

const (
	defaultCallTimeout = 10 * time.Second
	defaultAttempts    = 3
)

// DispatchClient invokes engine operations through the command queue and
// waits for the matching reply on its own reply queue. Listen must be running
// for calls to complete.
type DispatchClient struct {
	channel  ports.MessageChannel
	logger   *logger.Logger
	commands string
	replyTo  string
	timeout  time.Duration
	attempts int

	mu      sync.Mutex
	pending map[string]chan contracts.Reply
}

// ClientOption customizes a DispatchClient.
type ClientOption func(*DispatchClient)

// WithCommandQueue overrides the engine's command queue name.
func WithCommandQueue(name string) ClientOption {
	return func(c *DispatchClient) {
		if name != "" {
			c.commands = name
		}
	}
}

// WithCallTimeout bounds the wait for one reply before the command is re-sent.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *DispatchClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAttempts sets how many times a command is sent before giving up.
func WithAttempts(n int) ClientOption {
	return func(c *DispatchClient) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// NewDispatchClient creates a client that receives replies on replyTo.
func NewDispatchClient(channel ports.MessageChannel, replyTo string, logger *logger.Logger, opts ...ClientOption) *DispatchClient {
	client := &DispatchClient{
		channel:  channel,
		logger:   logger,
		commands: contracts.QueueCommands,
		replyTo:  replyTo,
		timeout:  defaultCallTimeout,
		attempts: defaultAttempts,
		pending:  make(map[string]chan contracts.Reply),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ReplyQueue is the queue this client receives replies on.
func (client *DispatchClient) ReplyQueue() string { return client.replyTo }

// Listen consumes the reply queue until ctx is done.
func (client *DispatchClient) Listen(ctx context.Context) error {
	return client.channel.Subscribe(ctx, client.replyTo, client.onReply)
}

func (client *DispatchClient) onReply(ctx context.Context, d ports.Delivery) error {
	var reply contracts.Reply
	if err := json.Unmarshal(d.Body, &reply); err != nil {
		client.logger.Error(ctx, "reply_decode_failed", "Dropping undecodable reply", err, map[string]any{"queue": d.Queue})
		return nil
	}

	client.mu.Lock()
	waiter, ok := client.pending[reply.CommandID]
	if ok {
		delete(client.pending, reply.CommandID)
	}
	client.mu.Unlock()

	if !ok {
		// a duplicate answer to a re-sent command, or one nobody waits for anymore
		client.logger.Debug(ctx, "reply_unmatched", "Dropping reply without a waiting call", map[string]any{"command_id": reply.CommandID})
		return nil
	}
	waiter <- reply
	return nil
}

// Call sends cmd and waits for its reply. On timeout the command is re-sent
// with the same commandId, which the engine answers from its idempotency
// store instead of applying it twice. The returned error is the remote error
// carried by the reply, if any; the reply itself is returned whenever one
// arrived.
func (client *DispatchClient) Call(ctx context.Context, cmd contracts.Command) (*contracts.Reply, error) {
	if cmd.CommandID == "" {
		cmd.CommandID = uuid.NewString()
	}
	cmd.ReplyTo = client.replyTo

	waiter := make(chan contracts.Reply, 1)
	client.mu.Lock()
	client.pending[cmd.CommandID] = waiter
	client.mu.Unlock()
	defer func() {
		client.mu.Lock()
		delete(client.pending, cmd.CommandID)
		client.mu.Unlock()
	}()

	for attempt := 1; ; attempt++ {
		cmd.SentAt = time.Now().UTC()
		if err := client.channel.Publish(ctx, client.commands, cmd); err != nil {
			return nil, fmt.Errorf("send %s: %w", cmd.Type, err)
		}

		timer := time.NewTimer(client.timeout)
		select {
		case reply := <-waiter:
			timer.Stop()
			return &reply, reply.Err()
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		if attempt >= client.attempts {
			return nil, fmt.Errorf("%w: %s %s after %d attempts", ErrNoReply, cmd.Type, cmd.CommandID, attempt)
		}
		client.logger.Info(ctx, "command_resent", "No reply yet, re-sending command", map[string]any{
			"command_id": cmd.CommandID,
			"type":       cmd.Type,
			"attempt":    attempt + 1,
		})
	}
}

func rideOf(reply *contracts.Reply, err error) (*contracts.RideView, error) {
	if reply == nil {
		return nil, err
	}
	return reply.Ride, err
}

func (client *DispatchClient) RequestRide(ctx context.Context, passengerID, pickup, destination string) (*contracts.RideView, error) {
	return rideOf(client.Call(ctx, contracts.Command{
		Type:        contracts.CommandRequestRide,
		PassengerID: passengerID,
		Pickup:      pickup,
		Destination: destination,
	}))
}

func (client *DispatchClient) AcceptRide(ctx context.Context, driverID, rideID string) (*contracts.RideView, error) {
	return rideOf(client.Call(ctx, contracts.Command{
		Type:     contracts.CommandAcceptRide,
		DriverID: driverID,
		RideID:   rideID,
	}))
}

func (client *DispatchClient) UpdateStatus(ctx context.Context, rideID string, status ride.Status, message string) (*contracts.RideView, error) {
	return rideOf(client.Call(ctx, contracts.Command{
		Type:    contracts.CommandUpdateStatus,
		RideID:  rideID,
		Status:  status.String(),
		Message: message,
	}))
}

func (client *DispatchClient) CancelRide(ctx context.Context, rideID, reason string) (*contracts.RideView, error) {
	return rideOf(client.Call(ctx, contracts.Command{
		Type:   contracts.CommandCancelRide,
		RideID: rideID,
		Reason: reason,
	}))
}

func (client *DispatchClient) ListRides(ctx context.Context, filter contracts.RideFilter) ([]contracts.RideView, error) {
	reply, err := client.Call(ctx, contracts.Command{Type: contracts.CommandListRides, Filter: &filter})
	if err != nil {
		return nil, err
	}
	return reply.Rides, nil
}

func (client *DispatchClient) Stats(ctx context.Context) (*contracts.Stats, error) {
	reply, err := client.Call(ctx, contracts.Command{Type: contracts.CommandGetStats})
	if err != nil {
		return nil, err
	}
	if reply.Stats == nil {
		return &contracts.Stats{}, nil
	}
	return reply.Stats, nil
}

func (client *DispatchClient) RegisterDriver(ctx context.Context, driverID string, profile contracts.DriverProfile) error {
	_, err := client.Call(ctx, contracts.Command{
		Type:          contracts.CommandRegisterDriver,
		DriverID:      driverID,
		DriverProfile: &profile,
	})
	return err
}

func (client *DispatchClient) RegisterPassenger(ctx context.Context, passengerID string, profile contracts.PassengerProfile) error {
	_, err := client.Call(ctx, contracts.Command{
		Type:             contracts.CommandRegisterPassenger,
		PassengerID:      passengerID,
		PassengerProfile: &profile,
	})
	return err
}
