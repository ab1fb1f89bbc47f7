package ride

import (
	"errors"
	"strings"
)

// Status is the lifecycle state of a ride.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusAccepted      Status = "ACCEPTED"
	StatusDriverArrived Status = "DRIVER_ARRIVED"
	StatusInProgress    Status = "IN_PROGRESS"
	StatusCompleted     Status = "COMPLETED"
	StatusCancelled     Status = "CANCELLED"
)

var ErrInvalidStatus = errors.New("invalid ride status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed ride status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusPending, StatusAccepted, StatusDriverArrived, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// rank orders the forward chain. CANCELLED sits outside it.
func (status Status) rank() int {
	switch status {
	case StatusPending:
		return 0
	case StatusAccepted:
		return 1
	case StatusDriverArrived:
		return 2
	case StatusInProgress:
		return 3
	case StatusCompleted:
		return 4
	default:
		return -1
	}
}

// CanTransitionTo specifies if the status can transition to the next status.
//
// PENDING only leaves through a claim (ACCEPTED) or a cancellation. Once a
// driver is attached the ride moves strictly forward along
// ACCEPTED -> DRIVER_ARRIVED -> IN_PROGRESS -> COMPLETED, intermediate steps may
// be skipped, and CANCELLED stays reachable until a terminal state.
func (status Status) CanTransitionTo(next Status) bool {
	if status.Terminal() || !next.Valid() {
		return false
	}

	switch {
	case next == StatusCancelled:
		return true
	case status == StatusPending:
		return next == StatusAccepted
	default:
		return next.rank() > status.rank()
	}
}

// Terminal indicates if the status is in a terminal/completed state.
func (status Status) Terminal() bool {
	return status == StatusCompleted || status == StatusCancelled
}

// DefaultMessage is the human-readable text sent with a status notification when the caller gives none.
func (status Status) DefaultMessage() string {
	switch status {
	case StatusPending:
		return "Looking for a driver..."
	case StatusAccepted:
		return "Driver on the way!"
	case StatusDriverArrived:
		return "Driver arrived at the pickup location"
	case StatusInProgress:
		return "Ride in progress"
	case StatusCompleted:
		return "Ride completed successfully"
	case StatusCancelled:
		return "Ride cancelled"
	default:
		return "Status updated"
	}
}
