package service

import (
	"context"
	"fmt"

	"ride-dispatch/internal/domain/driver"
	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/domain/user"
)

// RegisterDriver announces a driver as online and AVAILABLE. Re-registering
// refreshes the profile without touching availability.
func (service *dispatchService) RegisterDriver(ctx context.Context, id string, profile driver.Profile) (*driver.Driver, error) {
	d, err := driver.NewDriver(id, profile, service.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ride.ErrInvalidRequest, err)
	}

	stored, err := service.drivers.Register(ctx, d)
	if err != nil {
		service.logger.Error(ctx, "driver_register_failed", "Failed to register driver", err, map[string]any{"driver_id": d.ID})
		return nil, err
	}

	service.logger.Info(ctx, "driver_registered", fmt.Sprintf("Driver %s registered", stored.ID), map[string]any{
		"driver_id": stored.ID,
		"name":      stored.Profile.Name,
		"status":    stored.Status,
	})
	return stored, nil
}

// RegisterPassenger records a passenger's display profile.
func (service *dispatchService) RegisterPassenger(ctx context.Context, id, name, phone string) (*user.Passenger, error) {
	p, err := user.NewPassenger(id, name, phone, service.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ride.ErrInvalidRequest, err)
	}

	stored, err := service.passengers.Register(ctx, p)
	if err != nil {
		service.logger.Error(ctx, "passenger_register_failed", "Failed to register passenger", err, map[string]any{"passenger_id": p.ID})
		return nil, err
	}

	service.logger.Info(ctx, "passenger_registered", fmt.Sprintf("Passenger %s registered", stored.ID), map[string]any{
		"passenger_id": stored.ID,
		"name":         stored.Name,
	})
	return stored, nil
}
