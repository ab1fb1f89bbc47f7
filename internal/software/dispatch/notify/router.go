// Package notify addresses ride notifications to the participants' queues.
package notify

import (
	"context"
	"errors"
	"fmt"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/metrics"
	"ride-dispatch/internal/ports"
)

// DriverQueue is the notification queue of one driver.
func DriverQueue(driverID string) string {
	return contracts.DriverNotificationPrefix + driverID
}

// PassengerQueue is the notification queue of one passenger.
func PassengerQueue(passengerID string) string {
	return contracts.PassengerNotificationPrefix + passengerID
}

// Targets lists the queues a notification of kind about r is delivered to.
// RIDE_ACCEPTED goes to the passenger only; everything else also reaches the
// driver once one is attached.
func Targets(r *ride.Ride, kind contracts.NotificationType) []string {
	targets := []string{PassengerQueue(r.PassengerID)}
	if kind == contracts.NotificationRideAccepted {
		return targets
	}
	if d := r.Driver(); d != "" {
		targets = append(targets, DriverQueue(d))
	}
	return targets
}

// Router publishes notifications through a MessageChannel.
type Router struct {
	channel ports.MessageChannel
	logger  *logger.Logger
}

func NewRouter(channel ports.MessageChannel, logger *logger.Logger) *Router {
	return &Router{channel: channel, logger: logger}
}

// Send delivers n to every target of r. Each target is attempted; failures
// are joined and returned so the caller can surface them.
func (router *Router) Send(ctx context.Context, r *ride.Ride, n contracts.Notification) error {
	var errs []error
	for _, queue := range Targets(r, n.Kind()) {
		if err := router.channel.Publish(ctx, queue, n); err != nil {
			metrics.NotificationsPublished.WithLabelValues(string(n.Kind()), metrics.ResultFailed).Inc()
			router.logger.Error(ctx, "notification_publish_failed", "Failed to publish notification", err, map[string]any{
				"ride_id": r.ID,
				"queue":   queue,
				"type":    n.Kind(),
			})
			errs = append(errs, fmt.Errorf("notify %s: %w", queue, err))
			continue
		}

		metrics.NotificationsPublished.WithLabelValues(string(n.Kind()), metrics.ResultOK).Inc()
		router.logger.Debug(ctx, "notification_published", "Published notification", map[string]any{
			"ride_id": r.ID,
			"queue":   queue,
			"type":    n.Kind(),
		})
	}
	return errors.Join(errs...)
}
