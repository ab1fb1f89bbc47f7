package driver

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Vehicle describes the car a driver operates.
type Vehicle struct {
	Brand string
	Model string
	Color string
	Plate string
	Year  int
}

// Profile is the display information of a driver.
type Profile struct {
	Name    string
	Vehicle Vehicle
	Rating  float64
	Phone   string
}

// Driver tracks presence and availability of a driver.
type Driver struct {
	ID           string
	Profile      Profile
	Status       DriverStatus
	CurrentRide  *string // nil while available
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

var (
	ErrDriverIDRequired = errors.New("driver id is required")
	ErrInvalidRating    = errors.New("rating must be between 0.0 and 5.0")
	ErrDriverBusy       = errors.New("driver is busy")
)

// NewDriver creates an AVAILABLE driver.
func NewDriver(id string, profile Profile, now time.Time) (*Driver, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, ErrDriverIDRequired
	}
	if profile.Rating < 0 || profile.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if strings.TrimSpace(profile.Name) == "" {
		profile.Name = "Driver " + id
	}

	now = now.UTC()
	return &Driver{
		ID:           id,
		Profile:      profile,
		Status:       DriverStatusAvailable,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

// Available reports whether the driver can take a new ride.
func (driver *Driver) Available() bool {
	return driver.Status == DriverStatusAvailable
}

// Occupy marks the driver BUSY with rideID. A driver bound to another ride
// is left untouched and ErrDriverBusy is returned.
func (driver *Driver) Occupy(rideID string, now time.Time) error {
	if driver.CurrentRide != nil {
		if *driver.CurrentRide == rideID {
			return nil
		}
		return fmt.Errorf("%w: on ride %s", ErrDriverBusy, *driver.CurrentRide)
	}
	driver.CurrentRide = &rideID
	driver.Status = DriverStatusBusy
	driver.UpdatedAt = now.UTC()
	return nil
}

// Release frees the driver if it is still bound to rideID.
// It reports whether the driver became available.
func (driver *Driver) Release(rideID string, now time.Time) bool {
	if driver.CurrentRide == nil || *driver.CurrentRide != rideID {
		return false
	}
	driver.CurrentRide = nil
	driver.Status = DriverStatusAvailable
	driver.UpdatedAt = now.UTC()
	return true
}

// Clone returns a deep copy.
func (driver *Driver) Clone() *Driver {
	cp := *driver
	if driver.CurrentRide != nil {
		id := *driver.CurrentRide
		cp.CurrentRide = &id
	}
	return &cp
}
