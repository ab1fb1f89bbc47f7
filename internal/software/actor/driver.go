package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/general/config"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/metrics"
	"ride-dispatch/internal/ports"
	"ride-dispatch/internal/software/dispatch/notify"

	"golang.org/x/sync/errgroup"
)

var (
	errDeclined = errors.New("driver declined the ride")
	errBusy     = errors.New("driver is busy")
)

// Decision labels.
const (
	DecisionAccepted = "accepted"
	DecisionDeclined = "declined"
	DecisionBusy     = "busy"
	DecisionLost     = "lost"
)

const (
	defaultBusyBackoff = time.Second
	defaultRetryDelay  = 2 * time.Second
)

// DriverOptions configures a simulated driver.
type DriverOptions struct {
	ID           string
	Profile      *contracts.DriverProfile // random when nil
	Simulation   config.Simulation
	PendingQueue string
	BusyBackoff  time.Duration
	RetryDelay   time.Duration
	Out          io.Writer
	// Rand returns a number in [0, 1) for the accept decision.
	Rand func() float64
}

// Driver competes for pending rides and drives the ones it wins through
// DRIVER_ARRIVED, IN_PROGRESS and COMPLETED.
type Driver struct {
	opts    DriverOptions
	channel ports.MessageChannel
	client  *DispatchClient
	logger  *logger.Logger
	sched   *Scheduler

	mu      sync.Mutex
	current *contracts.RideView
	outMu   sync.Mutex
}

// NewDriver wires a simulated driver. The client must reply on this
// driver's reply queue.
func NewDriver(opts DriverOptions, channel ports.MessageChannel, client *DispatchClient, logger *logger.Logger) *Driver {
	if opts.PendingQueue == "" {
		opts.PendingQueue = contracts.QueuePendingRides
	}
	if opts.BusyBackoff <= 0 {
		opts.BusyBackoff = defaultBusyBackoff
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	return &Driver{opts: opts, channel: channel, client: client, logger: logger}
}

// DriverReplyQueue is where the engine answers commands of driverID.
func DriverReplyQueue(driverID string) string { return contracts.DriverReplyPrefix + driverID }

// CurrentRide returns the id of the ride being driven, empty when available.
func (d *Driver) CurrentRide() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ""
	}
	return d.current.ID
}

// Run registers the driver and serves ride requests and notifications until
// ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(d.logger.WithRequestID(ctx, "driver:"+d.opts.ID))
	defer cancel()
	sched := NewScheduler(ctx)
	defer sched.Stop()
	d.mu.Lock()
	d.sched = sched
	d.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.client.Listen(gctx) })

	profile := d.opts.Profile
	if profile == nil {
		p := RandomDriverProfile(d.opts.ID)
		profile = &p
	}
	if err := d.client.RegisterDriver(gctx, d.opts.ID, *profile); err != nil {
		cancel()
		_ = g.Wait()
		return fmt.Errorf("register driver %s: %w", d.opts.ID, err)
	}
	d.printf("🚗 %s online (%s %s %s), waiting for rides", d.opts.ID, profile.Vehicle.Color, profile.Vehicle.Brand, profile.Vehicle.Model)
	d.logger.Info(gctx, "driver_online", "Driver registered and listening", map[string]any{"driver_id": d.opts.ID})

	g.Go(func() error { return d.channel.Subscribe(gctx, d.opts.PendingQueue, d.onRideRequest) })
	g.Go(func() error { return d.channel.Subscribe(gctx, notify.DriverQueue(d.opts.ID), d.onNotification) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// onRideRequest returns an error to hand the request back to the queue for
// another driver. Requests that can no longer be claimed are acknowledged.
func (d *Driver) onRideRequest(ctx context.Context, msg ports.Delivery) error {
	var req contracts.RideRequestMessage
	if err := json.Unmarshal(msg.Body, &req); err != nil || req.ID == "" {
		d.logger.Error(ctx, "ride_request_decode_failed", "Dropping malformed ride request", err, map[string]any{"size": len(msg.Body)})
		return nil
	}
	ctx = d.logger.WithRideID(ctx, req.ID)

	if d.CurrentRide() != "" {
		metrics.DriverDecisions.WithLabelValues(DecisionBusy).Inc()
		sleep(ctx, d.opts.BusyBackoff)
		return errBusy
	}

	d.printf("🔔 ride %s for %s: %s → %s (R$ %.2f)", req.ID, d.opts.ID, req.Pickup, req.Destination, req.EstimatedPrice)
	if !sleep(ctx, between(d.opts.Simulation.DecisionDelayMin, d.opts.Simulation.DecisionDelayMax)) {
		return ctx.Err()
	}

	if d.opts.Rand() >= d.opts.Simulation.AcceptProbability {
		metrics.DriverDecisions.WithLabelValues(DecisionDeclined).Inc()
		d.printf("❌ %s declined ride %s", d.opts.ID, req.ID)
		d.logger.Info(ctx, "ride_declined", "Driver declined the ride", map[string]any{"driver_id": d.opts.ID})
		return errDeclined
	}

	view, err := d.client.AcceptRide(ctx, d.opts.ID, req.ID)
	switch {
	case view != nil:
		// claimed; a failed passenger notification does not undo the claim
		if err != nil {
			d.logger.Error(ctx, "ride_claim_degraded", "Ride claimed but notification failed", err, nil)
		}
	case errors.Is(err, ride.ErrNotClaimable):
		// the claim may have committed on an earlier delivery whose reply never arrived
		if owned := d.resume(ctx); owned != "" {
			if owned == req.ID {
				return nil
			}
			return errBusy
		}
		fallthrough
	case errors.Is(err, ride.ErrNotFound):
		metrics.DriverDecisions.WithLabelValues(DecisionLost).Inc()
		d.printf("⌛ %s missed ride %s: %v", d.opts.ID, req.ID, err)
		d.logger.Info(ctx, "ride_claim_lost", "Ride was no longer claimable", map[string]any{"driver_id": d.opts.ID})
		return nil
	default:
		d.logger.Error(ctx, "ride_claim_failed", "Failed to claim ride", err, map[string]any{"driver_id": d.opts.ID})
		return err
	}

	metrics.DriverDecisions.WithLabelValues(DecisionAccepted).Inc()
	d.mu.Lock()
	d.current = view
	d.mu.Unlock()
	d.printf("✅ %s accepted ride %s, heading to pickup", d.opts.ID, req.ID)
	d.startProgression(view)
	return nil
}

// resume adopts the active ride the engine has bound to this driver when the
// driver lost track of it, and returns its id.
func (d *Driver) resume(ctx context.Context) string {
	rides, err := d.client.ListRides(ctx, contracts.RideFilter{DriverID: d.opts.ID})
	if err != nil {
		d.logger.Error(ctx, "ride_resume_failed", "Failed to look up rides of driver", err, map[string]any{"driver_id": d.opts.ID})
		return ""
	}
	for i := range rides {
		view := &rides[i]
		if ride.Status(view.Status).Terminal() {
			continue
		}

		d.mu.Lock()
		if d.current != nil {
			current := d.current.ID
			d.mu.Unlock()
			return current
		}
		d.current = view
		d.mu.Unlock()

		metrics.DriverDecisions.WithLabelValues(DecisionAccepted).Inc()
		d.printf("🔁 %s resumes ride %s (%s)", d.opts.ID, view.ID, view.Status)
		d.logger.Info(ctx, "ride_resumed", "Driver resumed a ride it already holds", map[string]any{
			"driver_id": d.opts.ID,
			"ride_id":   view.ID,
			"status":    view.Status,
		})
		d.startProgression(view)
		return view.ID
	}
	return ""
}

type progressStep struct {
	status  ride.Status
	at      time.Duration // since acceptance
	message string
}

func (d *Driver) startProgression(view *contracts.RideView) {
	sim := d.opts.Simulation
	arrive := between(sim.ArriveDelayMin, sim.ArriveDelayMax)
	start := max(arrive, between(sim.StartDelayMin, sim.StartDelayMax))
	complete := max(start, between(sim.CompleteDelayMin, sim.CompleteDelayMax))

	steps := []progressStep{
		{ride.StatusDriverArrived, arrive, "Driver arrived at the pickup point"},
		{ride.StatusInProgress, start, "Ride started! Destination: " + view.Destination},
		{ride.StatusCompleted, complete, "Ride completed successfully!"},
	}
	// a resumed ride continues after the status it already has
	first, since := 0, time.Duration(0)
	for i, step := range steps[:len(steps)-1] {
		if step.status.String() == view.Status {
			first, since = i+1, step.at
		}
	}
	d.scheduleStep(view.ID, steps, first, since)
}

func (d *Driver) scheduleStep(rideID string, steps []progressStep, i int, since time.Duration) {
	step := steps[i]
	d.sched.After(rideID, step.at-since, func(ctx context.Context) {
		ctx = d.logger.WithRideID(ctx, rideID)
		view, err := d.client.UpdateStatus(ctx, rideID, step.status, step.message)
		committed := view != nil && view.Status == step.status.String()

		switch {
		case ctx.Err() != nil:
			return
		case committed:
			if err != nil {
				d.logger.Error(ctx, "ride_update_degraded", "Status committed but notification failed", err, nil)
			}
		case errors.Is(err, ride.ErrInvalidState), errors.Is(err, ride.ErrNotFound):
			d.logger.Info(ctx, "ride_progression_stopped", "Ride can no longer progress", map[string]any{"reason": err.Error()})
			d.finish(rideID)
			return
		default:
			d.logger.Error(ctx, "ride_update_failed", "Failed to update ride status, retrying", err, map[string]any{"status": step.status})
			d.sched.After(rideID, d.opts.RetryDelay, func(context.Context) {
				d.scheduleStep(rideID, steps, i, step.at)
			})
			return
		}

		d.printf("📍 %s: ride %s is %s", d.opts.ID, rideID, step.status)
		if i+1 < len(steps) {
			d.scheduleStep(rideID, steps, i+1, step.at)
			return
		}
		d.finish(rideID)
	})
}

func (d *Driver) onNotification(ctx context.Context, msg ports.Delivery) error {
	n, err := contracts.DecodeNotification(msg.Body)
	if err != nil {
		d.logger.Error(ctx, "notification_decode_failed", "Dropping malformed notification", err, nil)
		return nil
	}
	d.printf("📱 %s: %s", d.opts.ID, DescribeNotification(n))

	if update, ok := n.(*contracts.StatusUpdate); ok && update.NewStatus == ride.StatusCancelled.String() {
		if d.sched.Cancel(update.RideID) {
			d.logger.Info(ctx, "ride_progression_cancelled", "Ride cancelled, progression stopped", map[string]any{"ride_id": update.RideID})
		}
		d.finish(update.RideID)
	}
	return nil
}

// CancelCurrent cancels the ride being driven, if any.
func (d *Driver) CancelCurrent(ctx context.Context, reason string) error {
	d.mu.Lock()
	current, sched := d.current, d.sched
	d.mu.Unlock()
	if current == nil {
		return nil
	}
	if reason == "" {
		reason = "cancelled by driver"
	}

	sched.Cancel(current.ID)
	_, err := d.client.CancelRide(ctx, current.ID, reason)
	if err != nil && !errors.Is(err, ride.ErrInvalidState) {
		return err
	}
	d.finish(current.ID)
	return nil
}

func (d *Driver) finish(rideID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil && d.current.ID == rideID {
		d.current = nil
		d.printf("🟢 %s is available again", d.opts.ID)
	}
}

func (d *Driver) printf(format string, args ...any) {
	d.outMu.Lock()
	defer d.outMu.Unlock()
	fmt.Fprintf(d.opts.Out, format+"\n", args...)
}

// sleep waits for d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
