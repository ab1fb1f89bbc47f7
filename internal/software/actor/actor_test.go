package actor

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ride-dispatch/internal/domain/driver"
	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/general/config"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/membroker"
	"ride-dispatch/internal/general/memstore"
	"ride-dispatch/internal/ports"
	"ride-dispatch/internal/software/dispatch/handler"
	"ride-dispatch/internal/software/dispatch/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engine struct {
	svc    ports.DispatchService
	broker *membroker.Broker
	log    *logger.Logger
	ctx    context.Context
}

// startEngine runs a dispatch engine with its command consumer over channel.
func startEngine(t *testing.T, channel ports.MessageChannel, broker *membroker.Broker) *engine {
	t.Helper()
	log := logger.New("actor-test")
	log.SetLevel("error")

	svc := service.NewDispatchService(log, memstore.NewRideRepo(), memstore.NewDriverRepo(), memstore.NewPassengerRepo(),
		channel, service.WithPricer(service.FixedPricer(20)))
	cmds := handler.NewCommandHandler(svc, channel, memstore.NewIdempotencyStore(), time.Minute, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cmds.Run(ctx, contracts.QueueCommands, 4)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &engine{svc: svc, broker: broker, log: log, ctx: ctx}
}

func newEngine(t *testing.T) *engine {
	broker := membroker.New()
	return startEngine(t, broker, broker)
}

// client returns a listening client on replyTo.
func (e *engine) client(t *testing.T, replyTo string, opts ...ClientOption) *DispatchClient {
	t.Helper()
	c := NewDispatchClient(e.broker, replyTo, e.log, opts...)
	go func() { _ = c.Listen(e.ctx) }()
	return c
}

func fastSimulation() config.Simulation {
	return config.Simulation{
		AcceptProbability: 1,
		DecisionDelayMin:  time.Millisecond,
		DecisionDelayMax:  2 * time.Millisecond,
		ArriveDelayMin:    5 * time.Millisecond,
		ArriveDelayMax:    10 * time.Millisecond,
		StartDelayMin:     15 * time.Millisecond,
		StartDelayMax:     20 * time.Millisecond,
		CompleteDelayMin:  25 * time.Millisecond,
		CompleteDelayMax:  30 * time.Millisecond,
	}
}

func (e *engine) runDriver(t *testing.T, opts DriverOptions) *Driver {
	t.Helper()
	d := NewDriver(opts, e.broker, NewDispatchClient(e.broker, DriverReplyQueue(opts.ID), e.log), e.log)
	ctx, cancel := context.WithCancel(e.ctx)
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return d
}

func (e *engine) rideStatus(t *testing.T, id string) ride.Status {
	t.Helper()
	rides, err := e.svc.GetAllRides(context.Background())
	require.NoError(t, err)
	for _, r := range rides {
		if r.ID == id {
			return r.Status
		}
	}
	return ""
}

func TestDispatchClient_RoundTrip(t *testing.T) {
	e := newEngine(t)
	c := e.client(t, OperatorReplyQueue("session-1"))
	ctx := context.Background()

	require.NoError(t, c.RegisterDriver(ctx, "d1", RandomDriverProfile("d1")))
	require.NoError(t, c.RegisterPassenger(ctx, "p1", RandomPassengerProfile("p1")))

	view, err := c.RequestRide(ctx, "p1", "Centro", "Aeroporto")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "PENDING", view.Status)
	assert.Equal(t, 20.0, view.EstimatedPrice)

	accepted, err := c.AcceptRide(ctx, "d1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, "d1", accepted.DriverID)

	_, err = c.AcceptRide(ctx, "d2", view.ID)
	assert.ErrorIs(t, err, ride.ErrNotClaimable)

	_, err = c.AcceptRide(ctx, "d2", "missing")
	assert.ErrorIs(t, err, ride.ErrNotFound)

	_, err = c.UpdateStatus(ctx, view.ID, ride.StatusPending, "")
	assert.ErrorIs(t, err, ride.ErrInvalidState)

	_, err = c.RequestRide(ctx, "", "a", "b")
	assert.ErrorIs(t, err, ride.ErrInvalidRequest)

	rides, err := c.ListRides(ctx, contracts.RideFilter{DriverID: "d1"})
	require.NoError(t, err)
	require.Len(t, rides, 1)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Drivers)
}

// replyDropper silently loses the first reply published on one queue.
type replyDropper struct {
	*membroker.Broker
	queue   string
	dropped atomic.Bool
}

func (c *replyDropper) Publish(ctx context.Context, queue string, payload any) error {
	if queue == c.queue && c.dropped.CompareAndSwap(false, true) {
		return nil
	}
	return c.Broker.Publish(ctx, queue, payload)
}

func TestDispatchClient_ResendIsAnsweredOnce(t *testing.T) {
	broker := membroker.New()
	replyTo := PassengerReplyQueue("ana")
	e := startEngine(t, &replyDropper{Broker: broker, queue: replyTo}, broker)
	c := e.client(t, replyTo, WithCallTimeout(100*time.Millisecond), WithAttempts(5))

	view, err := c.RequestRide(context.Background(), "ana", "A", "B")
	require.NoError(t, err)
	require.NotNil(t, view)

	rides, err := e.svc.GetAllRides(context.Background())
	require.NoError(t, err)
	require.Len(t, rides, 1)
	assert.Equal(t, view.ID, rides[0].ID)
}

func TestDispatchClient_NoReply(t *testing.T) {
	broker := membroker.New()
	log := logger.New("actor-test")
	log.SetLevel("error")
	c := NewDispatchClient(broker, OperatorReplyQueue("x"), log, WithCallTimeout(20*time.Millisecond), WithAttempts(2))

	_, err := c.Stats(context.Background())
	assert.ErrorIs(t, err, ErrNoReply)
	assert.Equal(t, 2, broker.Len(contracts.QueueCommands))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Stats(ctx)
	assert.Error(t, err)
}

func TestScheduler(t *testing.T) {
	s := NewScheduler(context.Background())

	var ran atomic.Int32
	require.True(t, s.After("r1", time.Millisecond, func(context.Context) { ran.Add(1) }))
	require.True(t, s.After("r2", time.Hour, func(context.Context) { ran.Add(100) }))
	assert.Equal(t, 1, s.Pending("r2"))

	assert.Eventually(t, func() bool { return ran.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return s.Pending("r1") == 0 }, time.Second, 5*time.Millisecond)

	assert.True(t, s.Cancel("r2"))
	assert.False(t, s.Cancel("r2"))
	assert.Eventually(t, func() bool { return s.Pending("r2") == 0 }, time.Second, 5*time.Millisecond)

	// a running task sees its key's cancellation
	started := make(chan struct{})
	var cancelled atomic.Bool
	s.After("r3", 0, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	})
	<-started
	s.Cancel("r3")

	s.Stop()
	assert.True(t, cancelled.Load())
	assert.Equal(t, int32(1), ran.Load())
	assert.False(t, s.After("r4", 0, func(context.Context) {}))
}

func TestDriver_DrivesRideToCompletion(t *testing.T) {
	e := newEngine(t)
	var out bytes.Buffer
	d := e.runDriver(t, DriverOptions{ID: "joao", Simulation: fastSimulation(), Out: &syncWriter{w: &out}})

	p := NewPassenger("ana", e.broker, e.client(t, PassengerReplyQueue("ana")), e.log, nil)
	go func() { _ = p.Listen(e.ctx) }()

	view, err := p.RequestRide(context.Background(), "Centro", "Aeroporto")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return e.rideStatus(t, view.ID) == ride.StatusCompleted }, 3*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return p.RideStatus(view.ID) == "COMPLETED" }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return d.CurrentRide() == "" }, time.Second, 10*time.Millisecond)

	rides, err := e.svc.ListRides(context.Background(), contracts.RideFilter{DriverID: "joao"})
	require.NoError(t, err)
	require.Len(t, rides, 1)
	assert.Equal(t, view.ID, rides[0].ID)
}

func TestDriver_ResumesRideClaimedBeforeReplyWasLost(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	_, err := e.svc.RegisterDriver(ctx, "rui", driver.Profile{})
	require.NoError(t, err)

	// the claim committed but the driver never saw the reply; the request is redelivered
	view, err := e.svc.RequestRide(ctx, "ana", "A", "B")
	require.NoError(t, err)
	_, err = e.svc.AcceptRide(ctx, "rui", view.ID)
	require.NoError(t, err)

	var out bytes.Buffer
	d := e.runDriver(t, DriverOptions{ID: "rui", Simulation: fastSimulation(), Out: &syncWriter{w: &out}})

	assert.Eventually(t, func() bool { return e.rideStatus(t, view.ID) == ride.StatusCompleted }, 3*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return d.CurrentRide() == "" }, time.Second, 10*time.Millisecond)
}

func TestDriver_ResumeContinuesAfterCurrentStatus(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	view, err := e.svc.RequestRide(ctx, "ana", "A", "B")
	require.NoError(t, err)
	_, err = e.svc.AcceptRide(ctx, "rui", view.ID)
	require.NoError(t, err)
	_, err = e.svc.UpdateRideStatus(ctx, view.ID, ride.StatusDriverArrived, "")
	require.NoError(t, err)
	_, err = e.svc.UpdateRideStatus(ctx, view.ID, ride.StatusInProgress, "")
	require.NoError(t, err)

	e.runDriver(t, DriverOptions{ID: "rui", Simulation: fastSimulation()})

	assert.Eventually(t, func() bool { return e.rideStatus(t, view.ID) == ride.StatusCompleted }, 3*time.Second, 10*time.Millisecond)
}

func TestDriver_DeclinedRideGoesToAnotherDriver(t *testing.T) {
	e := newEngine(t)
	sim := fastSimulation()
	sim.AcceptProbability = 0.7
	sim.ArriveDelayMin, sim.ArriveDelayMax = time.Hour, time.Hour

	e.runDriver(t, DriverOptions{ID: "picky", Simulation: sim, Rand: func() float64 { return 0.99 }})
	keen := e.runDriver(t, DriverOptions{ID: "keen", Simulation: sim, Rand: func() float64 { return 0 }})

	view, err := e.svc.RequestRide(context.Background(), "ana", "A", "B")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return keen.CurrentRide() == view.ID }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, ride.StatusAccepted, e.rideStatus(t, view.ID))
}

func TestDriver_CancellationStopsProgression(t *testing.T) {
	e := newEngine(t)
	sim := fastSimulation()
	sim.ArriveDelayMin, sim.ArriveDelayMax = time.Hour, time.Hour
	d := e.runDriver(t, DriverOptions{ID: "maria", Simulation: sim})

	view, err := e.svc.RequestRide(context.Background(), "bruno", "A", "B")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return d.CurrentRide() == view.ID }, 3*time.Second, 10*time.Millisecond)

	op := NewOperator(e.client(t, OperatorReplyQueue("ops")), &bytes.Buffer{})
	require.NoError(t, op.Cancel(context.Background(), view.ID, ""))

	assert.Eventually(t, func() bool { return d.CurrentRide() == "" }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return d.sched.Pending(view.ID) == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, ride.StatusCancelled, e.rideStatus(t, view.ID))

	rides, err := e.svc.ListRides(context.Background(), contracts.RideFilter{Status: "CANCELLED"})
	require.NoError(t, err)
	require.Len(t, rides, 1)
	require.NotNil(t, rides[0].CancellationReason)
	assert.Equal(t, DefaultCancelReason, *rides[0].CancellationReason)
}

func TestDriver_CancelCurrent(t *testing.T) {
	e := newEngine(t)
	sim := fastSimulation()
	sim.ArriveDelayMin, sim.ArriveDelayMax = time.Hour, time.Hour
	d := e.runDriver(t, DriverOptions{ID: "carlos", Simulation: sim})

	view, err := e.svc.RequestRide(context.Background(), "carla", "A", "B")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return d.CurrentRide() == view.ID }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, d.CancelCurrent(context.Background(), ""))
	assert.Equal(t, "", d.CurrentRide())
	assert.Equal(t, ride.StatusCancelled, e.rideStatus(t, view.ID))
}

func TestPassenger_Run(t *testing.T) {
	e := newEngine(t)
	p := NewPassenger("ana", e.broker, NewDispatchClient(e.broker, PassengerReplyQueue("ana"), e.log), e.log, nil)

	ctx, cancel := context.WithCancel(e.ctx)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, "Shopping", "Airport", 0) }()

	assert.Eventually(t, func() bool {
		rides, _ := e.svc.GetPendingRides(context.Background())
		return len(rides) == 1
	}, 3*time.Second, 10*time.Millisecond)

	stats, err := e.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Passengers)

	cancel()
	assert.NoError(t, <-done)
}

func TestDescribeNotification(t *testing.T) {
	accepted := DescribeNotification(&contracts.RideAccepted{RideID: "r1", DriverID: "d1", Message: "Ride accepted by driver d1!", EstimatedArrival: contracts.EstimatedArrival})
	assert.Contains(t, accepted, "d1")
	assert.Contains(t, accepted, contracts.EstimatedArrival)

	update := DescribeNotification(&contracts.StatusUpdate{RideID: "r1", OldStatus: "ACCEPTED", NewStatus: "DRIVER_ARRIVED", Message: "here"})
	assert.Contains(t, update, "ACCEPTED → DRIVER_ARRIVED")
	assert.Contains(t, update, "head to the car")

	assert.Contains(t, DescribeNotification(&contracts.Generic{Message: "hello"}), "hello")
	assert.Contains(t, DescribeNotification(&contracts.Generic{}), "notification received")
}

func TestOperator(t *testing.T) {
	e := newEngine(t)
	var out bytes.Buffer
	op := NewOperator(e.client(t, OperatorReplyQueue("ops")), &out)
	ctx := context.Background()

	created, err := op.GenerateTestRides(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, "test_passenger_001", created[0].PassengerID)

	require.NoError(t, op.Monitor(ctx))
	assert.Contains(t, out.String(), created[2].ID)
	assert.Contains(t, out.String(), "total rides:      3")

	out.Reset()
	require.NoError(t, op.List(ctx, "pending"))
	assert.Contains(t, out.String(), "rides in PENDING: 3")
	assert.ErrorIs(t, op.List(ctx, "parked"), ride.ErrInvalidStatus)

	require.NoError(t, op.Update(ctx, created[0].ID, "CANCELLED", "no longer needed"))
	assert.ErrorIs(t, op.Update(ctx, created[0].ID, "COMPLETED", ""), ride.ErrInvalidState)
	assert.ErrorIs(t, op.Cancel(ctx, "missing", ""), ride.ErrNotFound)
}

func TestRandomProfiles(t *testing.T) {
	p := RandomDriverProfile("d9")
	assert.Equal(t, "Driver d9", p.Name)
	assert.GreaterOrEqual(t, p.Rating, 4.0)
	assert.LessOrEqual(t, p.Rating, 5.0)
	assert.Regexp(t, `^[A-Z]{3}-\d{4}$`, p.Vehicle.Plate)
	assert.Regexp(t, `^\(11\) 9\d{4}-\d{4}$`, p.Phone)

	for range 100 {
		d := between(time.Second, 2*time.Second)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 2*time.Second)
	}
	assert.Equal(t, time.Second, between(time.Second, time.Second))
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
