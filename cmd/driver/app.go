package driversim

import (
	"context"
	"os"

	"ride-dispatch/internal/general/config"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/rabbitmq"
	"ride-dispatch/internal/software/actor"

	"github.com/google/uuid"
)

// Run starts one simulated driver and blocks until ctx is cancelled.
func Run(ctx context.Context, configPath, driverID string) error {
	if driverID == "" {
		driverID = "driver_" + uuid.NewString()[:8]
	}
	logger := logger.New("driver-simulator")
	ctx = logger.WithRequestID(ctx, "startup-"+driverID)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}
	logger.SetLevel(cfg.Log.Level)

	mq := rabbitmq.NewClient(ctx, cfg.AMQPURL(), logger)
	defer mq.Close()

	client := actor.NewDispatchClient(mq, actor.DriverReplyQueue(driverID), logger, actor.WithCommandQueue(cfg.Queues.Commands))
	driver := actor.NewDriver(actor.DriverOptions{
		ID:           driverID,
		Simulation:   cfg.Simulation,
		PendingQueue: cfg.Queues.Pending,
		Out:          os.Stdout,
	}, mq, client, logger)

	return driver.Run(ctx)
}
