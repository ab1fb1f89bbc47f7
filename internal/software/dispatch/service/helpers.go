package service

import (
	"context"
	"errors"
	"sort"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/ports"
)

// emit offers a committed change to watchers.
func (service *dispatchService) emit(ctx context.Context, eventType ride.EventType, oldStatus ride.Status, snapshot *ride.Ride) {
	ev, err := ride.NewEvent(eventType, oldStatus, snapshot)
	if err != nil {
		service.logger.Error(ctx, "ride_event_invalid", "Failed to build ride event", err, nil)
		return
	}
	service.hub.publish(*ev)
}

// outcome reports whether err is an expected state-machine result rather than a fault.
func outcome(err error) bool {
	return errors.Is(err, ride.ErrInvalidRequest) ||
		errors.Is(err, ride.ErrNotFound) ||
		errors.Is(err, ride.ErrNotClaimable) ||
		errors.Is(err, ride.ErrInvalidState)
}

// releaseDriver frees the driver bound to a ride that just became terminal.
func (service *dispatchService) releaseDriver(ctx context.Context, r *ride.Ride) {
	driverID := r.Driver()
	if driverID == "" {
		return
	}
	released, err := service.drivers.Release(ctx, driverID, r.ID)
	if err != nil {
		if !errors.Is(err, ports.ErrDriverNotFound) {
			service.logger.Error(ctx, "driver_release_failed", "Failed to release driver", err, map[string]any{"driver_id": driverID})
		}
		return
	}
	if released {
		service.logger.Debug(ctx, "driver_available", "Driver is available again", map[string]any{"driver_id": driverID})
	}
}

func sortOldestFirst(rides []*ride.Ride) {
	sort.Slice(rides, func(i, j int) bool {
		if rides[i].CreatedAt.Equal(rides[j].CreatedAt) {
			return rides[i].ID < rides[j].ID
		}
		return rides[i].CreatedAt.Before(rides[j].CreatedAt)
	})
}

func sortNewestFirst(rides []*ride.Ride) {
	sort.Slice(rides, func(i, j int) bool {
		if rides[i].CreatedAt.Equal(rides[j].CreatedAt) {
			return rides[i].ID > rides[j].ID
		}
		return rides[i].CreatedAt.After(rides[j].CreatedAt)
	})
}
