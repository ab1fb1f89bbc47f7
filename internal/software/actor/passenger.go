package actor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/ports"
	"ride-dispatch/internal/software/dispatch/notify"

	"golang.org/x/sync/errgroup"
)

// PassengerReplyQueue is where the engine answers commands of passengerID.
func PassengerReplyQueue(passengerID string) string {
	return contracts.PassengerReplyPrefix + passengerID
}

// Passenger requests rides and follows their notifications.
type Passenger struct {
	id      string
	channel ports.MessageChannel
	client  *DispatchClient
	logger  *logger.Logger
	out     io.Writer

	mu     sync.Mutex
	status map[string]string // ride id -> last known status
	outMu  sync.Mutex
}

func NewPassenger(id string, channel ports.MessageChannel, client *DispatchClient, logger *logger.Logger, out io.Writer) *Passenger {
	if out == nil {
		out = io.Discard
	}
	return &Passenger{
		id:      id,
		channel: channel,
		client:  client,
		logger:  logger,
		out:     out,
		status:  make(map[string]string),
	}
}

// Run registers the passenger, requests one ride after delay and follows its
// notifications until ctx is done.
func (p *Passenger) Run(ctx context.Context, pickup, destination string, delay time.Duration) error {
	ctx = p.logger.WithRequestID(ctx, "passenger:"+p.id)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.client.Listen(gctx) })
	g.Go(func() error { return p.Listen(gctx) })

	g.Go(func() error {
		if err := p.client.RegisterPassenger(gctx, p.id, RandomPassengerProfile(p.id)); err != nil {
			return fmt.Errorf("register passenger %s: %w", p.id, err)
		}
		p.printf("🎧 %s waiting for notifications", p.id)
		if !sleep(gctx, delay) {
			return nil
		}
		_, err := p.RequestRide(gctx, pickup, destination)
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Listen consumes the passenger's notification queue until ctx is done.
func (p *Passenger) Listen(ctx context.Context) error {
	return p.channel.Subscribe(ctx, notify.PassengerQueue(p.id), p.onNotification)
}

func (p *Passenger) onNotification(ctx context.Context, msg ports.Delivery) error {
	n, err := contracts.DecodeNotification(msg.Body)
	if err != nil {
		p.logger.Error(ctx, "notification_decode_failed", "Dropping malformed notification", err, nil)
		return nil
	}

	switch n := n.(type) {
	case *contracts.RideAccepted:
		p.track(n.RideID, ride.StatusAccepted.String())
	case *contracts.StatusUpdate:
		p.track(n.RideID, n.NewStatus)
	case *contracts.Generic:
		// informational only
	}
	p.printf("📱 %s: %s", p.id, DescribeNotification(n))
	return nil
}

func (p *Passenger) track(rideID, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status[rideID] = status
}

// RideStatus is the last status this passenger was told about.
func (p *Passenger) RideStatus(rideID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status[rideID]
}

// RequestRide asks the engine for a ride.
func (p *Passenger) RequestRide(ctx context.Context, pickup, destination string) (*contracts.RideView, error) {
	view, err := p.client.RequestRide(ctx, p.id, pickup, destination)
	if view == nil {
		return nil, err
	}
	p.track(view.ID, view.Status)
	p.printf("👤 %s requested ride %s: %s → %s (R$ %.2f)", p.id, view.ID, pickup, destination, view.EstimatedPrice)
	if err != nil {
		p.logger.Error(ctx, "ride_request_degraded", "Ride created but not offered to drivers", err, map[string]any{"ride_id": view.ID})
	}
	return view, err
}

// CancelRide cancels one of the passenger's rides.
func (p *Passenger) CancelRide(ctx context.Context, rideID, reason string) (*contracts.RideView, error) {
	if reason == "" {
		reason = "cancelled by passenger"
	}
	view, err := p.client.CancelRide(ctx, rideID, reason)
	if view != nil {
		p.track(rideID, view.Status)
		p.printf("❌ %s cancelled ride %s", p.id, rideID)
	}
	return view, err
}

func (p *Passenger) printf(format string, args ...any) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	fmt.Fprintf(p.out, format+"\n", args...)
}
