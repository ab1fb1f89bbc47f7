package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ride-dispatch/internal/general/config"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/rabbitmq"
	"ride-dispatch/internal/ports"
	"ride-dispatch/internal/software/actor"

	"github.com/google/uuid"
)

var ErrUsage = errors.New("usage")

const testRidePause = 500 * time.Millisecond

// PrintUsage lists the operator commands.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, `Commands:
  monitor                              show every ride and the statistics
  list <status>                        list rides in a status
  update <rideId> <status> [message]   move a ride to a status
  cancel <rideId> [reason]             cancel a ride
  test [count]                         create test rides (default 3)

Statuses: PENDING, ACCEPTED, DRIVER_ARRIVED, IN_PROGRESS, COMPLETED, CANCELLED`)
}

// Run connects to RabbitMQ and executes one operator command.
func Run(ctx context.Context, configPath string, args []string, out io.Writer) error {
	logger := logger.New("ctl")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.Log.Level)

	mq := rabbitmq.NewClient(ctx, cfg.AMQPURL(), logger)
	defer mq.Close()

	return Execute(ctx, mq, cfg.Queues.Commands, logger, args, out)
}

// Execute runs one operator command over channel.
func Execute(ctx context.Context, channel ports.MessageChannel, commandQueue string, logger *logger.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		PrintUsage(out)
		return ErrUsage
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := actor.NewDispatchClient(channel, actor.OperatorReplyQueue(uuid.NewString()), logger, actor.WithCommandQueue(commandQueue))
	go func() { _ = client.Listen(ctx) }()
	op := actor.NewOperator(client, out)

	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "monitor":
		return op.Monitor(ctx)

	case "list":
		if len(rest) < 1 {
			return usage(out, "list <status>")
		}
		return op.List(ctx, rest[0])

	case "update":
		if len(rest) < 2 {
			return usage(out, "update <rideId> <status> [message]")
		}
		return op.Update(ctx, rest[0], rest[1], strings.Join(rest[2:], " "))

	case "cancel":
		if len(rest) < 1 {
			return usage(out, "cancel <rideId> [reason]")
		}
		return op.Cancel(ctx, rest[0], strings.Join(rest[1:], " "))

	case "test":
		count := 3
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err != nil || n < 1 {
				return usage(out, "test [count]")
			}
			count = n
		}
		created, err := op.GenerateTestRides(ctx, count, testRidePause)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✅ %d test rides created\n", len(created))
		return nil

	default:
		PrintUsage(out)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func usage(out io.Writer, syntax string) error {
	fmt.Fprintln(out, "Usage: ctl "+syntax)
	return fmt.Errorf("%w: ctl %s", ErrUsage, syntax)
}
