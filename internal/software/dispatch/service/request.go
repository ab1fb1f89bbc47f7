package service

import (
	"context"
	"errors"
	"fmt"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/metrics"
	"ride-dispatch/internal/ports"

	"github.com/google/uuid"
)

// RequestRide creates a PENDING ride and offers it on the pending queue.
// When the publish fails the ride is kept and returned together with the error.
func (service *dispatchService) RequestRide(ctx context.Context, passengerID, pickup, destination string) (*ride.Ride, error) {
	// build the ride with a fresh identifier
	r, err := ride.NewRide(uuid.NewString(), passengerID, pickup, destination,
		service.pricer.Estimate(pickup, destination), service.now())
	if err != nil {
		service.logger.Info(ctx, "ride_request_rejected", "Ride request rejected", map[string]any{
			"passenger_id": passengerID,
			"reason":       err.Error(),
		})
		return nil, err
	}
	ctx = service.logger.WithRideID(ctx, r.ID)

	// unknown passengers are registered with a default profile
	service.ensurePassenger(ctx, r.PassengerID)

	if err := service.rides.Insert(ctx, r); err != nil {
		service.logger.Error(ctx, "ride_insert_failed", "Failed to store ride", err, nil)
		return nil, err
	}
	metrics.RidesRequested.Inc()
	service.emit(ctx, ride.EventRideRequested, "", r)

	// offer to drivers
	if err := service.channel.Publish(ctx, service.pendingQueue, contracts.NewRideRequestMessage(r)); err != nil {
		service.logger.Error(ctx, "ride_request_publish_failed", "Ride stored but not offered to drivers", err, map[string]any{
			"queue": service.pendingQueue,
		})
		return r, fmt.Errorf("offer ride %s: %w", r.ID, err)
	}

	service.logger.Info(ctx, "ride_requested", fmt.Sprintf("Ride requested by %s", r.PassengerID), map[string]any{
		"passenger_id":    r.PassengerID,
		"pickup":          r.Pickup,
		"destination":     r.Destination,
		"estimated_price": r.EstimatedPrice,
	})
	return r, nil
}

func (service *dispatchService) ensurePassenger(ctx context.Context, passengerID string) {
	_, err := service.passengers.Get(ctx, passengerID)
	if err == nil {
		return
	}
	if !errors.Is(err, ports.ErrPassengerNotFound) {
		service.logger.Error(ctx, "passenger_lookup_failed", "Failed to look up passenger", err, nil)
		return
	}

	p, err := user.NewPassenger(passengerID, "", "", service.now())
	if err != nil {
		return
	}
	if _, err := service.passengers.Register(ctx, p); err != nil {
		service.logger.Error(ctx, "passenger_register_failed", "Failed to register passenger", err, nil)
	}
}
