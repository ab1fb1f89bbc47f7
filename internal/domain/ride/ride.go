package ride

import (
	"fmt"
	"strings"
	"time"
)

// Ride is the dispatch record of a single trip request.
type Ride struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time

	// Actors
	PassengerID string
	DriverID    *string // nil until claimed, immutable afterwards

	// Trip
	Pickup         string
	Destination    string
	EstimatedPrice float64

	// Core state
	Status Status

	// Lifecycle timestamps
	AcceptedAt *time.Time
	LastUpdate *time.Time

	// Set when the ride is cancelled
	CancellationReason *string
}

// NewRide creates a new ride in PENDING state.
func NewRide(id, passengerID, pickup, destination string, estimatedPrice float64, now time.Time) (*Ride, error) {
	var missing []string
	if id = strings.TrimSpace(id); id == "" {
		missing = append(missing, "id")
	}
	if passengerID = strings.TrimSpace(passengerID); passengerID == "" {
		missing = append(missing, "passengerId")
	}
	if pickup = strings.TrimSpace(pickup); pickup == "" {
		missing = append(missing, "pickup")
	}
	if destination = strings.TrimSpace(destination); destination == "" {
		missing = append(missing, "destination")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if estimatedPrice < 0 {
		return nil, fmt.Errorf("%w: negative estimated price", ErrInvalidRequest)
	}

	return &Ride{
		ID:             id,
		CreatedAt:      now.UTC(),
		PassengerID:    passengerID,
		Pickup:         pickup,
		Destination:    destination,
		EstimatedPrice: estimatedPrice,
		Status:         StatusPending,
	}, nil
}

// Accept attaches the driver and moves PENDING -> ACCEPTED.
func (ride *Ride) Accept(driverID string, now time.Time) error {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return fmt.Errorf("%w: driver id is required", ErrInvalidRequest)
	}
	if ride.DriverID != nil {
		return fmt.Errorf("%w: already claimed by %s", ErrNotClaimable, *ride.DriverID)
	}
	if ride.Status != StatusPending {
		return fmt.Errorf("%w: status is %s", ErrNotClaimable, ride.Status)
	}

	at := now.UTC()
	ride.DriverID = &driverID
	ride.AcceptedAt = &at
	ride.Status = StatusAccepted
	return nil
}

// Advance applies a non-claim transition. Claims must go through Accept.
func (ride *Ride) Advance(next Status, reason string, now time.Time) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, next)
	}
	if ride.Status.Terminal() {
		return fmt.Errorf("%w: ride is already %s", ErrInvalidState, ride.Status)
	}
	if next == StatusAccepted {
		return fmt.Errorf("%w: ACCEPTED is only reachable by claiming the ride", ErrInvalidState)
	}
	if !ride.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, ride.Status, next)
	}

	at := now.UTC()
	ride.Status = next
	ride.LastUpdate = &at
	if next == StatusCancelled {
		if rs := strings.TrimSpace(reason); rs != "" {
			ride.CancellationReason = &rs
		}
	}
	return nil
}

// Driver returns the attached driver id or "".
func (ride *Ride) Driver() string {
	if ride.DriverID == nil {
		return ""
	}
	return *ride.DriverID
}

// Clone returns a deep copy that shares no pointers with ride.
func (ride *Ride) Clone() *Ride {
	cp := *ride
	cp.DriverID = clonePtr(ride.DriverID)
	cp.AcceptedAt = clonePtr(ride.AcceptedAt)
	cp.LastUpdate = clonePtr(ride.LastUpdate)
	cp.CancellationReason = clonePtr(ride.CancellationReason)
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
