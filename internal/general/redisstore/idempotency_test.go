package redisstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *IdempotencyStore) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewIdempotencyStore(client)
}

func TestIdempotencyStore_PutGet(t *testing.T) {
	mr, store := setupMiniredis(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "cmd-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "cmd-1", []byte(`{"ok":true}`), time.Minute))

	// first reply wins
	require.NoError(t, store.Put(ctx, "cmd-1", []byte(`{"ok":false}`), time.Minute))

	val, ok, err := store.Get(ctx, "cmd-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"ok":true}`, string(val))

	key := fmt.Sprintf(KeyCommandReply, "cmd-1")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(time.Minute + time.Second)
	_, ok, err = store.Get(ctx, "cmd-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotencyStore_ServerDown(t *testing.T) {
	mr, store := setupMiniredis(t)
	mr.Close()

	_, _, err := store.Get(context.Background(), "cmd-1")
	require.Error(t, err)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), "127.0.0.1:1", "", 0)
	require.Error(t, err)
}
