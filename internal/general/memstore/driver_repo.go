package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ride-dispatch/internal/domain/driver"
	"ride-dispatch/internal/ports"
)

// DriverRepo is the in-memory driver registry.
type DriverRepo struct {
	mu      sync.RWMutex
	drivers map[string]*driver.Driver
	now     func() time.Time
}

// NewDriverRepo constructs an empty DriverRepo.
func NewDriverRepo() *DriverRepo {
	return &DriverRepo{drivers: make(map[string]*driver.Driver), now: time.Now}
}

var _ ports.DriverRegistry = (*DriverRepo)(nil)

// Register adds d or, for a known id, refreshes its profile keeping its availability.
func (repo *DriverRepo) Register(ctx context.Context, d *driver.Driver) (*driver.Driver, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if existing, ok := repo.drivers[d.ID]; ok {
		existing.Profile = d.Profile
		existing.UpdatedAt = repo.now().UTC()
		return existing.Clone(), nil
	}

	repo.drivers[d.ID] = d.Clone()
	return d.Clone(), nil
}

func (repo *DriverRepo) Get(ctx context.Context, id string) (*driver.Driver, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	d, ok := repo.drivers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrDriverNotFound, id)
	}
	return d.Clone(), nil
}

// Occupy marks a registered driver BUSY with rideID.
func (repo *DriverRepo) Occupy(ctx context.Context, driverID, rideID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	d, ok := repo.drivers[driverID]
	if !ok {
		return fmt.Errorf("%w: %s", ports.ErrDriverNotFound, driverID)
	}
	return d.Occupy(rideID, repo.now())
}

// Release frees the driver if it is still bound to rideID.
func (repo *DriverRepo) Release(ctx context.Context, driverID, rideID string) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	d, ok := repo.drivers[driverID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ports.ErrDriverNotFound, driverID)
	}
	return d.Release(rideID, repo.now()), nil
}

// List returns every driver ordered by id.
func (repo *DriverRepo) List(ctx context.Context) ([]*driver.Driver, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	out := make([]*driver.Driver, 0, len(repo.drivers))
	for _, d := range repo.drivers {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
