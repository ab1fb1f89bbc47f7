package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ride-dispatch/cmd/engine"
	"ride-dispatch/internal/general/config"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/membroker"
	"ride-dispatch/internal/general/rabbitmq"
	"ride-dispatch/internal/ports"
	"ride-dispatch/internal/software/actor"

	"golang.org/x/sync/errgroup"
)

const (
	BrokerMemory   = "memory"
	BrokerRabbitMQ = "rabbitmq"
)

var drivers = []string{"driver_joao", "driver_maria", "driver_carlos"}

var trips = []struct {
	passenger, pickup, destination string
}{
	{"ana_silva", "Shopping Ibirapuera", "Aeroporto de Congonhas"},
	{"bruno_costa", "Estação da Sé", "Shopping Vila Olímpia"},
	{"carla_santos", "Universidade de São Paulo", "Teatro Municipal"},
}

// Timing paces the demo.
type Timing struct {
	Warmup          time.Duration // drivers online before the first request
	Stagger         time.Duration // between passenger requests
	MonitorInterval time.Duration
	MonitorFor      time.Duration
}

var DefaultTiming = Timing{
	Warmup:          3 * time.Second,
	Stagger:         2 * time.Second,
	MonitorInterval: 15 * time.Second,
	MonitorFor:      2 * time.Minute,
}

// Run starts the engine, three drivers and three passengers in one process
// over the chosen broker and prints a ride monitor periodically.
func Run(ctx context.Context, configPath, broker string) error {
	logger := logger.New("demo")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.Log.Level)

	var channel ports.MessageChannel
	switch strings.ToLower(broker) {
	case BrokerMemory, "":
		channel = membroker.New()
	case BrokerRabbitMQ:
		mq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg.AMQPURL(), logger)
		if err != nil {
			return err
		}
		channel = mq
	default:
		return fmt.Errorf("unknown broker %q (want %s or %s)", broker, BrokerMemory, BrokerRabbitMQ)
	}
	defer channel.Close()

	return Simulate(ctx, cfg, channel, logger, os.Stdout, DefaultTiming)
}

// Simulate runs the demo cast over channel until ctx is cancelled.
func Simulate(ctx context.Context, cfg *config.Config, channel ports.MessageChannel, logger *logger.Logger, out io.Writer, timing Timing) error {
	fmt.Fprintln(out, "🚀 === ride dispatch demo ===")
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return engine.Serve(gctx, cfg, channel, logger.Named("dispatch-engine"), 50) })

	for _, id := range drivers {
		client := actor.NewDispatchClient(channel, actor.DriverReplyQueue(id), logger, actor.WithCommandQueue(cfg.Queues.Commands))
		d := actor.NewDriver(actor.DriverOptions{
			ID:           id,
			Simulation:   cfg.Simulation,
			PendingQueue: cfg.Queues.Pending,
			Out:          out,
		}, channel, client, logger.Named("driver-simulator"))
		g.Go(func() error { return d.Run(gctx) })
	}
	fmt.Fprintf(out, "✅ %d drivers online\n", len(drivers))

	for i, trip := range trips {
		client := actor.NewDispatchClient(channel, actor.PassengerReplyQueue(trip.passenger), logger, actor.WithCommandQueue(cfg.Queues.Commands))
		p := actor.NewPassenger(trip.passenger, channel, client, logger.Named("passenger-simulator"), out)
		delay := timing.Warmup + time.Duration(i)*timing.Stagger
		g.Go(func() error { return p.Run(gctx, trip.pickup, trip.destination, delay) })
	}

	g.Go(func() error { return monitor(gctx, cfg, channel, logger, out, timing) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// monitor prints the ride table every interval until the monitoring window ends.
func monitor(ctx context.Context, cfg *config.Config, channel ports.MessageChannel, logger *logger.Logger, out io.Writer, timing Timing) error {
	if timing.MonitorInterval <= 0 {
		return nil
	}
	client := actor.NewDispatchClient(channel, actor.OperatorReplyQueue("demo-monitor"), logger, actor.WithCommandQueue(cfg.Queues.Commands))
	go func() { _ = client.Listen(ctx) }()
	op := actor.NewOperator(client, out)

	ticker := time.NewTicker(timing.MonitorInterval)
	defer ticker.Stop()
	deadline := time.After(timing.MonitorFor)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			fmt.Fprintln(out, "⏹️  monitoring window over")
			return nil
		case <-ticker.C:
			fmt.Fprintln(out, strings.Repeat("=", 60))
			if err := op.Monitor(ctx); err != nil && ctx.Err() == nil {
				logger.Error(ctx, "demo_monitor_failed", "Failed to print ride monitor", err, nil)
			}
		}
	}
}
