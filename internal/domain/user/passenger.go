package user

import (
	"errors"
	"strings"
	"time"
)

// Passenger is the display record of a rider.
type Passenger struct {
	ID           string
	Name         string
	Phone        string
	RegisteredAt time.Time
}

var ErrPassengerIDRequired = errors.New("passenger id is required")

// NewPassenger constructs a Passenger, defaulting the display name.
func NewPassenger(id, name, phone string, now time.Time) (*Passenger, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, ErrPassengerIDRequired
	}
	if name = strings.TrimSpace(name); name == "" {
		name = "Passenger " + id
	}

	return &Passenger{
		ID:           id,
		Name:         name,
		Phone:        strings.TrimSpace(phone),
		RegisteredAt: now.UTC(),
	}, nil
}
