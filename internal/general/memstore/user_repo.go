package memstore

import (
	"context"
	"fmt"
	"sync"

	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/ports"
)

// PassengerRepo is the in-memory passenger registry.
type PassengerRepo struct {
	mu         sync.RWMutex
	passengers map[string]user.Passenger
}

func NewPassengerRepo() *PassengerRepo {
	return &PassengerRepo{passengers: make(map[string]user.Passenger)}
}

var _ ports.PassengerRegistry = (*PassengerRepo)(nil)

// Register upserts p. The original registration time survives re-registration.
func (repo *PassengerRepo) Register(ctx context.Context, p *user.Passenger) (*user.Passenger, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	stored := *p
	if existing, ok := repo.passengers[p.ID]; ok {
		stored.RegisteredAt = existing.RegisteredAt
	}
	repo.passengers[p.ID] = stored
	return &stored, nil
}

func (repo *PassengerRepo) Get(ctx context.Context, id string) (*user.Passenger, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	p, ok := repo.passengers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrPassengerNotFound, id)
	}
	return &p, nil
}

func (repo *PassengerRepo) Count(ctx context.Context) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return len(repo.passengers), nil
}
