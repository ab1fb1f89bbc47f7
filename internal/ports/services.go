package ports

import (
	"context"

	"ride-dispatch/internal/domain/driver"
	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/contracts"
)

// DispatchService is the collaborator-facing API of the Dispatch Engine.
type DispatchService interface {
	RequestRide(ctx context.Context, passengerID, pickup, destination string) (*ride.Ride, error)
	AcceptRide(ctx context.Context, driverID, rideID string) (*ride.Ride, error)
	UpdateRideStatus(ctx context.Context, rideID string, next ride.Status, message string) (*ride.Ride, error)
	CancelRide(ctx context.Context, rideID, reason string) (*ride.Ride, error)

	GetPendingRides(ctx context.Context) ([]*ride.Ride, error)
	GetAllRides(ctx context.Context) ([]*ride.Ride, error)
	ListRides(ctx context.Context, filter contracts.RideFilter) ([]*ride.Ride, error)
	Stats(ctx context.Context) (contracts.Stats, error)

	RegisterDriver(ctx context.Context, id string, profile driver.Profile) (*driver.Driver, error)
	RegisterPassenger(ctx context.Context, id, name, phone string) (*user.Passenger, error)

	// Watch streams committed ride changes until cancel is called. Slow
	// watchers miss events rather than block the engine.
	Watch(buffer int) (events <-chan ride.Event, cancel func())
}

// Pricer estimates the fare of a trip. Results must be non-negative.
type Pricer interface {
	Estimate(pickup, destination string) float64
}
