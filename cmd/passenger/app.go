package passengersim

import (
	"context"
	"os"
	"time"

	"ride-dispatch/internal/general/config"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/rabbitmq"
	"ride-dispatch/internal/software/actor"

	"github.com/google/uuid"
)

// Run starts one simulated passenger that requests a single ride and then
// follows its notifications until ctx is cancelled.
func Run(ctx context.Context, configPath, passengerID, pickup, destination string) error {
	if passengerID == "" {
		passengerID = "passenger_" + uuid.NewString()[:8]
	}
	logger := logger.New("passenger-simulator")
	ctx = logger.WithRequestID(ctx, "startup-"+passengerID)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}
	logger.SetLevel(cfg.Log.Level)

	mq := rabbitmq.NewClient(ctx, cfg.AMQPURL(), logger)
	defer mq.Close()

	client := actor.NewDispatchClient(mq, actor.PassengerReplyQueue(passengerID), logger, actor.WithCommandQueue(cfg.Queues.Commands))
	passenger := actor.NewPassenger(passengerID, mq, client, logger, os.Stdout)
	return passenger.Run(ctx, pickup, destination, time.Second)
}
