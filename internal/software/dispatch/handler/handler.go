package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/metrics"
	"ride-dispatch/internal/ports"

	"golang.org/x/sync/errgroup"
)

// CommandHandler consumes actor commands from the broker, applies them to the
// dispatch service and publishes a Reply to the command's replyTo queue.
type CommandHandler struct {
	service ports.DispatchService
	channel ports.MessageChannel
	idem    ports.IdempotencyStore
	ttl     time.Duration
	logger  *logger.Logger
	locks   *keyedLocker
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(
	service ports.DispatchService,
	channel ports.MessageChannel,
	idem ports.IdempotencyStore,
	ttl time.Duration,
	logger *logger.Logger,
) *CommandHandler {
	return &CommandHandler{
		service: service,
		channel: channel,
		idem:    idem,
		ttl:     ttl,
		logger:  logger,
		locks:   newKeyedLocker(),
	}
}

// Run starts workers subscriptions on queue and blocks until ctx is done or
// one of them fails.
func (handler *CommandHandler) Run(ctx context.Context, queue string, workers int) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			return handler.channel.Subscribe(gctx, queue, handler.Handle)
		})
	}

	handler.logger.Info(ctx, "command_consumer_started", "Consuming dispatch commands", map[string]any{
		"queue":   queue,
		"workers": workers,
	})
	return g.Wait()
}

// Handle processes one delivery. A returned error requeues the command; that
// only happens when the outcome could not be recorded or the reply could not
// be published, and the redelivery then replays the recorded reply.
func (handler *CommandHandler) Handle(ctx context.Context, d ports.Delivery) error {
	var cmd contracts.Command
	if err := json.Unmarshal(d.Body, &cmd); err != nil {
		handler.logger.Error(ctx, "command_parse_failed", "Dropping unreadable command", err, map[string]any{"body": string(d.Body)})
		return nil
	}
	if err := cmd.Validate(); err != nil {
		handler.logger.Error(ctx, "command_invalid", "Dropping malformed command", err, map[string]any{"command_id": cmd.CommandID})
		return nil
	}
	ctx = handler.logger.WithRequestID(ctx, cmd.CommandID)

	// duplicates of one command never run side by side
	unlock := handler.locks.lock(cmd.CommandID)
	defer unlock()

	// replay a remembered outcome
	stored, found, err := handler.idem.Get(ctx, cmd.CommandID)
	if err != nil {
		handler.logger.Error(ctx, "idempotency_lookup_failed", "Failed to look up command outcome", err, nil)
		return err
	}
	if found {
		metrics.CommandReplays.Inc()
		handler.logger.Info(ctx, "command_replayed", "Duplicate command answered from stored reply", map[string]any{
			"type":        cmd.Type,
			"redelivered": d.Redelivered,
		})
		return handler.reply(ctx, cmd, stored)
	}

	start := time.Now()
	reply := handler.execute(ctx, cmd)
	code := string(reply.Code)
	if reply.OK {
		code = "OK"
	}
	metrics.CommandsHandled.WithLabelValues(string(cmd.Type), code).Inc()
	metrics.CommandLatency.WithLabelValues(string(cmd.Type)).Observe(time.Since(start).Seconds())

	body, err := json.Marshal(reply)
	if err != nil {
		handler.logger.Error(ctx, "reply_encode_failed", "Failed to encode reply", err, nil)
		return nil
	}

	if err := handler.idem.Put(ctx, cmd.CommandID, body, handler.ttl); err != nil {
		// already applied; a redelivery would run it again
		handler.logger.Error(ctx, "idempotency_store_failed", "Failed to record command outcome", err, nil)
	}

	return handler.reply(ctx, cmd, body)
}

func (handler *CommandHandler) reply(ctx context.Context, cmd contracts.Command, body []byte) error {
	if cmd.ReplyTo == "" {
		return nil
	}
	if err := handler.channel.Publish(ctx, cmd.ReplyTo, json.RawMessage(body)); err != nil {
		handler.logger.Error(ctx, "reply_publish_failed", "Failed to publish command reply", err, map[string]any{
			"reply_to": cmd.ReplyTo,
		})
		return fmt.Errorf("reply to %s: %w", cmd.ReplyTo, err)
	}
	return nil
}
