package contracts

import (
	"time"

	"ride-dispatch/internal/domain/driver"
	"ride-dispatch/internal/domain/ride"
)

type VehicleInfo struct {
	Brand string `json:"brand,omitempty"`
	Model string `json:"model,omitempty"`
	Color string `json:"color,omitempty"`
	Plate string `json:"plate,omitempty"`
	Year  int    `json:"year,omitempty"`
}

type DriverProfile struct {
	Name    string      `json:"name,omitempty"`
	Vehicle VehicleInfo `json:"vehicle"`
	Rating  float64     `json:"rating,omitempty"`
	Phone   string      `json:"phone,omitempty"`
}

type PassengerProfile struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// RideView is the full ride record as exposed to collaborators.
type RideView struct {
	ID                 string     `json:"id"`
	PassengerID        string     `json:"passengerId"`
	Pickup             string     `json:"pickup"`
	Destination        string     `json:"destination"`
	Status             string     `json:"status"`
	Timestamp          time.Time  `json:"timestamp"`
	EstimatedPrice     float64    `json:"estimatedPrice"`
	DriverID           string     `json:"driverId,omitempty"`
	AcceptedAt         *time.Time `json:"acceptedAt,omitempty"`
	LastUpdate         *time.Time `json:"lastUpdate,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`
}

// NewRideView maps a domain ride onto its wire shape.
func NewRideView(r *ride.Ride) RideView {
	view := RideView{
		ID:             r.ID,
		PassengerID:    r.PassengerID,
		Pickup:         r.Pickup,
		Destination:    r.Destination,
		Status:         r.Status.String(),
		Timestamp:      r.CreatedAt,
		EstimatedPrice: r.EstimatedPrice,
		DriverID:       r.Driver(),
		AcceptedAt:     r.AcceptedAt,
		LastUpdate:     r.LastUpdate,
	}
	if r.CancellationReason != nil {
		view.CancellationReason = *r.CancellationReason
	}
	return view
}

// NewRideViews maps a slice of rides.
func NewRideViews(rides []*ride.Ride) []RideView {
	out := make([]RideView, 0, len(rides))
	for _, r := range rides {
		out = append(out, NewRideView(r))
	}
	return out
}

// ToProfile converts the wire profile into the driver domain profile.
func (p DriverProfile) ToProfile() driver.Profile {
	return driver.Profile{
		Name:   p.Name,
		Rating: p.Rating,
		Phone:  p.Phone,
		Vehicle: driver.Vehicle{
			Brand: p.Vehicle.Brand,
			Model: p.Vehicle.Model,
			Color: p.Vehicle.Color,
			Plate: p.Vehicle.Plate,
			Year:  p.Vehicle.Year,
		},
	}
}
