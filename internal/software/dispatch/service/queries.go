package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/general/contracts"
)

// GetPendingRides returns the rides still waiting for a driver, oldest first.
func (service *dispatchService) GetPendingRides(ctx context.Context) ([]*ride.Ride, error) {
	rides, err := service.rides.List(ctx, func(r *ride.Ride) bool {
		return r.Status == ride.StatusPending
	})
	if err != nil {
		return nil, err
	}
	sortOldestFirst(rides)
	return rides, nil
}

// GetAllRides returns every ride in creation order.
func (service *dispatchService) GetAllRides(ctx context.Context) ([]*ride.Ride, error) {
	rides, err := service.rides.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	sortOldestFirst(rides)
	return rides, nil
}

// ListRides filters by status, passenger and driver; newest first.
func (service *dispatchService) ListRides(ctx context.Context, filter contracts.RideFilter) ([]*ride.Ride, error) {
	var status ride.Status
	if s := strings.TrimSpace(filter.Status); s != "" {
		parsed, err := ride.ParseStatus(s)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown status %q", ride.ErrInvalidRequest, s)
		}
		status = parsed
	}
	passengerID := strings.TrimSpace(filter.PassengerID)
	driverID := strings.TrimSpace(filter.DriverID)

	rides, err := service.rides.List(ctx, func(r *ride.Ride) bool {
		return (status == "" || r.Status == status) &&
			(passengerID == "" || r.PassengerID == passengerID) &&
			(driverID == "" || r.Driver() == driverID)
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(rides)
	return rides, nil
}

// Stats summarizes rides, revenue and registered actors.
func (service *dispatchService) Stats(ctx context.Context) (contracts.Stats, error) {
	var stats contracts.Stats

	rides, err := service.rides.List(ctx, nil)
	if err != nil {
		return stats, err
	}
	for _, r := range rides {
		stats.Total++
		switch r.Status {
		case ride.StatusPending:
			stats.Pending++
		case ride.StatusAccepted:
			stats.Accepted++
		case ride.StatusDriverArrived:
			stats.DriverArrived++
		case ride.StatusInProgress:
			stats.InProgress++
		case ride.StatusCompleted:
			stats.Completed++
			stats.TotalRevenue += r.EstimatedPrice
		case ride.StatusCancelled:
			stats.Cancelled++
		}
	}
	stats.TotalRevenue = math.Round(stats.TotalRevenue*100) / 100
	if stats.Total > 0 {
		stats.CompletionRate = math.Round(float64(stats.Completed)/float64(stats.Total)*1000) / 10
	}

	drivers, err := service.drivers.List(ctx)
	if err != nil {
		return stats, err
	}
	stats.Drivers = len(drivers)
	for _, d := range drivers {
		if d.Available() {
			stats.AvailableDrivers++
		}
	}

	if stats.Passengers, err = service.passengers.Count(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}
