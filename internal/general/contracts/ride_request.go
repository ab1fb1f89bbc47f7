package contracts

import (
	"time"

	"ride-dispatch/internal/domain/ride"
)

// RideRequestMessage is published by the Dispatch Engine on QueuePendingRides.
type RideRequestMessage struct {
	ID             string    `json:"id"`
	PassengerID    string    `json:"passengerId"`
	Pickup         string    `json:"pickup"`
	Destination    string    `json:"destination"`
	Status         string    `json:"status"` // PENDING
	Timestamp      time.Time `json:"timestamp"`
	EstimatedPrice float64   `json:"estimatedPrice"`
}

// NewRideRequestMessage builds the pending-queue payload for r.
func NewRideRequestMessage(r *ride.Ride) RideRequestMessage {
	return RideRequestMessage{
		ID:             r.ID,
		PassengerID:    r.PassengerID,
		Pickup:         r.Pickup,
		Destination:    r.Destination,
		Status:         r.Status.String(),
		Timestamp:      r.CreatedAt,
		EstimatedPrice: r.EstimatedPrice,
	}
}
