// Package memstore keeps the dispatch tables in process memory.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/ports"
)

// rideEntry holds the committed snapshot of one ride. Writers serialize on mu;
// readers load the snapshot without locking and never observe a partial write.
type rideEntry struct {
	mu      sync.Mutex
	current atomic.Pointer[ride.Ride]
}

// RideRepo is the in-memory ride table.
type RideRepo struct {
	mu    sync.RWMutex
	rides map[string]*rideEntry
}

// NewRideRepo constructs an empty RideRepo.
func NewRideRepo() *RideRepo {
	return &RideRepo{rides: make(map[string]*rideEntry)}
}

var _ ports.RideRepository = (*RideRepo)(nil)

// Insert stores a new ride; ids are never reused.
func (repo *RideRepo) Insert(ctx context.Context, r *ride.Ride) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("%w: ride id is required", ride.ErrInvalidRequest)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, exists := repo.rides[r.ID]; exists {
		return fmt.Errorf("%w: %s", ports.ErrDuplicateRide, r.ID)
	}

	entry := &rideEntry{}
	entry.current.Store(r.Clone())
	repo.rides[r.ID] = entry
	return nil
}

func (repo *RideRepo) entry(id string) (*rideEntry, bool) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	e, ok := repo.rides[id]
	return e, ok
}

// Get returns a copy of the last committed ride.
func (repo *RideRepo) Get(ctx context.Context, id string) (*ride.Ride, error) {
	e, ok := repo.entry(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ride.ErrNotFound, id)
	}
	return e.current.Load().Clone(), nil
}

// Update runs fn on a private copy under the ride's write lock, commits it and
// then runs hook before releasing the lock, so hooks of one ride never interleave.
func (repo *RideRepo) Update(ctx context.Context, id string, fn func(r *ride.Ride) error, hook ports.CommitHook) (*ride.Ride, error) {
	e, ok := repo.entry(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ride.ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.current.Load()
	next := before.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	e.current.Store(next)

	var hookErr error
	if hook != nil {
		hookErr = hook(ctx, before.Status, next.Clone())
	}
	return next.Clone(), hookErr
}

// List returns copies of the rides accepted by keep (all rides when keep is nil).
func (repo *RideRepo) List(ctx context.Context, keep func(r *ride.Ride) bool) ([]*ride.Ride, error) {
	repo.mu.RLock()
	entries := make([]*rideEntry, 0, len(repo.rides))
	for _, e := range repo.rides {
		entries = append(entries, e)
	}
	repo.mu.RUnlock()

	out := make([]*ride.Ride, 0, len(entries))
	for _, e := range entries {
		r := e.current.Load()
		if keep == nil || keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}
