// Package redisstore shares command outcomes between engine replicas through Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ride-dispatch/internal/ports"

	"github.com/redis/go-redis/v9"
)

// KeyCommandReply is the Redis key of a remembered command reply.
const KeyCommandReply = "dispatch:command:%s"

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return client, nil
}

// IdempotencyStore keeps replies as plain string values with an expiry.
type IdempotencyStore struct {
	client *redis.Client
}

func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

func (store *IdempotencyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := store.client.Get(ctx, fmt.Sprintf(KeyCommandReply, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get command reply: %w", err)
	}
	return val, true, nil
}

// Put records value unless a reply for key already exists; the first reply wins.
func (store *IdempotencyStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := store.client.SetNX(ctx, fmt.Sprintf(KeyCommandReply, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: store command reply: %w", err)
	}
	return nil
}
