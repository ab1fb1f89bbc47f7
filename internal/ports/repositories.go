package ports

import (
	"context"
	"errors"
	"time"

	"ride-dispatch/internal/domain/driver"
	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/domain/user"
)

var ErrDuplicateRide = errors.New("ride id already exists")

// CommitHook runs after a ride change is committed, still inside the ride's
// critical section. Its error does not undo the commit.
type CommitHook func(ctx context.Context, before ride.Status, after *ride.Ride) error

// RideRepository is the ride table. Writers to the same ride id are
// serialized; writers to different rides proceed concurrently.
type RideRepository interface {
	Insert(ctx context.Context, r *ride.Ride) error
	Get(ctx context.Context, id string) (*ride.Ride, error)
	// Update applies fn to a private copy of the ride under the ride's write lock.
	// When fn fails nothing is written and (nil, err) is returned. Otherwise the
	// copy is committed, hook (if any) runs, and the committed snapshot is
	// returned along with the hook's error.
	Update(ctx context.Context, id string, fn func(r *ride.Ride) error, hook CommitHook) (*ride.Ride, error)
	List(ctx context.Context, keep func(r *ride.Ride) bool) ([]*ride.Ride, error)
}

// DriverRegistry tracks driver presence and availability.
type DriverRegistry interface {
	Register(ctx context.Context, d *driver.Driver) (*driver.Driver, error)
	Get(ctx context.Context, id string) (*driver.Driver, error)
	Occupy(ctx context.Context, driverID, rideID string) error
	Release(ctx context.Context, driverID, rideID string) (bool, error)
	List(ctx context.Context) ([]*driver.Driver, error)
}

// PassengerRegistry holds passenger display records.
type PassengerRegistry interface {
	Register(ctx context.Context, p *user.Passenger) (*user.Passenger, error)
	Get(ctx context.Context, id string) (*user.Passenger, error)
	Count(ctx context.Context) (int, error)
}

// IdempotencyStore remembers the outcome of processed commands.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

var (
	ErrDriverNotFound    = errors.New("driver not found")
	ErrPassengerNotFound = errors.New("passenger not found")
)
