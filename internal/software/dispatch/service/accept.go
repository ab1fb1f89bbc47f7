package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ride-dispatch/internal/domain/driver"
	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/metrics"
	"ride-dispatch/internal/ports"
)

// AcceptRide claims a PENDING ride for driverID. The check and the write happen
// under the ride's lock, so of several concurrent claims exactly one wins and
// the rest get ErrNotClaimable. The passenger is told inside the same critical
// section, which keeps RIDE_ACCEPTED ahead of every later update of the ride.
func (service *dispatchService) AcceptRide(ctx context.Context, driverID, rideID string) (*ride.Ride, error) {
	driverID = strings.TrimSpace(driverID)
	if rideID = strings.TrimSpace(rideID); rideID == "" {
		return nil, fmt.Errorf("%w: ride id is required", ride.ErrInvalidRequest)
	}
	ctx = service.logger.WithRideID(ctx, rideID)
	now := service.now()

	updated, err := service.rides.Update(ctx, rideID,
		func(r *ride.Ride) error {
			if err := r.Accept(driverID, now); err != nil {
				return err
			}
			// reserve the driver before the claim commits; a busy driver loses
			switch err := service.drivers.Occupy(ctx, driverID, r.ID); {
			case errors.Is(err, driver.ErrDriverBusy):
				return fmt.Errorf("%w: driver %s is on another ride", ride.ErrNotClaimable, driverID)
			case errors.Is(err, ports.ErrDriverNotFound):
				service.logger.Debug(ctx, "driver_not_registered", "Claiming driver is not registered", map[string]any{"driver_id": driverID})
			case err != nil:
				return err
			}
			return nil
		},
		func(ctx context.Context, before ride.Status, after *ride.Ride) error {
			service.emit(ctx, ride.EventRideAccepted, before, after)

			return service.router.Send(ctx, after, &contracts.RideAccepted{
				RideID:           after.ID,
				DriverID:         driverID,
				Message:          fmt.Sprintf("Ride accepted by driver %s!", driverID),
				EstimatedArrival: contracts.EstimatedArrival,
				Timestamp:        *after.AcceptedAt,
			})
		},
	)
	if updated == nil {
		metrics.RideClaims.WithLabelValues(metrics.ResultRejected).Inc()
		if outcome(err) {
			service.logger.Info(ctx, "ride_claim_rejected", "Ride is not claimable", map[string]any{
				"driver_id": driverID,
				"reason":    err.Error(),
			})
		} else {
			service.logger.Error(ctx, "ride_claim_failed", "Failed to claim ride", err, map[string]any{"driver_id": driverID})
		}
		return nil, err
	}

	metrics.RideClaims.WithLabelValues(metrics.ResultWon).Inc()
	metrics.StatusTransitions.WithLabelValues(updated.Status.String()).Inc()
	if err != nil {
		return updated, fmt.Errorf("ride %s claimed but passenger not notified: %w", rideID, err)
	}

	service.logger.Info(ctx, "ride_claimed", fmt.Sprintf("Ride %s accepted by driver %s", rideID, driverID), map[string]any{
		"driver_id":    driverID,
		"passenger_id": updated.PassengerID,
	})
	return updated, nil
}
