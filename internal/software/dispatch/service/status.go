package service

import (
	"context"
	"fmt"
	"strings"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/metrics"
)

const defaultCancelReason = "cancelled by operator"

// UpdateRideStatus moves a ride forward (or cancels it) and tells both
// participants. For CANCELLED the message doubles as the cancellation reason.
func (service *dispatchService) UpdateRideStatus(ctx context.Context, rideID string, next ride.Status, message string) (*ride.Ride, error) {
	return service.transition(ctx, rideID, next, strings.TrimSpace(message))
}

// CancelRide cancels a non-terminal ride, recording reason.
func (service *dispatchService) CancelRide(ctx context.Context, rideID, reason string) (*ride.Ride, error) {
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = defaultCancelReason
	}
	return service.transition(ctx, rideID, ride.StatusCancelled, reason)
}

func (service *dispatchService) transition(ctx context.Context, rideID string, next ride.Status, message string) (*ride.Ride, error) {
	if rideID = strings.TrimSpace(rideID); rideID == "" {
		return nil, fmt.Errorf("%w: ride id is required", ride.ErrInvalidRequest)
	}
	ctx = service.logger.WithRideID(ctx, rideID)
	now := service.now()

	updated, err := service.rides.Update(ctx, rideID,
		func(r *ride.Ride) error {
			return r.Advance(next, message, now)
		},
		func(ctx context.Context, before ride.Status, after *ride.Ride) error {
			if after.Status.Terminal() {
				service.releaseDriver(ctx, after)
			}
			service.emit(ctx, ride.EventFor(after.Status), before, after)

			text := message
			if text == "" {
				text = after.Status.DefaultMessage()
			}
			return service.router.Send(ctx, after, &contracts.StatusUpdate{
				RideID:    after.ID,
				OldStatus: before.String(),
				NewStatus: after.Status.String(),
				Message:   text,
				Timestamp: *after.LastUpdate,
			})
		},
	)
	if updated == nil {
		if outcome(err) {
			service.logger.Info(ctx, "ride_status_rejected", "Status update rejected", map[string]any{
				"status": next,
				"reason": err.Error(),
			})
		} else {
			service.logger.Error(ctx, "ride_status_failed", "Failed to update ride status", err, map[string]any{"status": next})
		}
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(updated.Status.String()).Inc()
	if err != nil {
		return updated, fmt.Errorf("ride %s is %s but participants not notified: %w", rideID, updated.Status, err)
	}

	service.logger.Info(ctx, "ride_status_updated", fmt.Sprintf("Ride %s is now %s", rideID, updated.Status), map[string]any{
		"status":    updated.Status,
		"driver_id": updated.Driver(),
	})
	return updated, nil
}
