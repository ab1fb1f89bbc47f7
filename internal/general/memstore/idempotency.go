package memstore

import (
	"context"
	"sync"
	"time"

	"ride-dispatch/internal/ports"
)

type idemEntry struct {
	value     []byte
	expiresAt time.Time
}

// IdempotencyStore remembers command replies until their ttl elapses.
// Expired entries are purged lazily on write.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idemEntry
	now     func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{entries: make(map[string]idemEntry), now: time.Now}
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

func (store *IdempotencyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	e, ok := store.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !store.now().Before(e.expiresAt) {
		delete(store.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (store *IdempotencyStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := store.now()
	for k, e := range store.entries {
		if !now.Before(e.expiresAt) {
			delete(store.entries, k)
		}
	}

	store.entries[key] = idemEntry{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(ttl),
	}
	return nil
}
