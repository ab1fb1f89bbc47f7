package memstore

import (
	"context"
	"testing"
	"time"

	"ride-dispatch/internal/domain/driver"
	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverRepo_Lifecycle(t *testing.T) {
	repo := NewDriverRepo()
	ctx := context.Background()

	d, err := driver.NewDriver("d2", driver.Profile{Name: "Bea"}, t0)
	require.NoError(t, err)
	_, err = repo.Register(ctx, d)
	require.NoError(t, err)
	d1, _ := driver.NewDriver("d1", driver.Profile{}, t0)
	_, err = repo.Register(ctx, d1)
	require.NoError(t, err)

	require.NoError(t, repo.Occupy(ctx, "d2", "r1"))
	require.ErrorIs(t, repo.Occupy(ctx, "d2", "r2"), driver.ErrDriverBusy)

	// re-registering refreshes the profile but keeps the driver busy
	again, _ := driver.NewDriver("d2", driver.Profile{Name: "Beatriz", Rating: 4.8}, t0)
	stored, err := repo.Register(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, "Beatriz", stored.Profile.Name)
	assert.Equal(t, driver.DriverStatusBusy, stored.Status)

	released, err := repo.Release(ctx, "d2", "other-ride")
	require.NoError(t, err)
	assert.False(t, released)

	released, err = repo.Release(ctx, "d2", "r1")
	require.NoError(t, err)
	assert.True(t, released)

	got, err := repo.Get(ctx, "d2")
	require.NoError(t, err)
	assert.True(t, got.Available())
	assert.Nil(t, got.CurrentRide)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "d1", list[0].ID)
	assert.Equal(t, "Driver d1", list[0].Profile.Name)

	require.ErrorIs(t, repo.Occupy(ctx, "ghost", "r1"), ports.ErrDriverNotFound)
	_, err = repo.Get(ctx, "ghost")
	require.ErrorIs(t, err, ports.ErrDriverNotFound)
}

func TestPassengerRepo(t *testing.T) {
	repo := NewPassengerRepo()
	ctx := context.Background()

	p, err := user.NewPassenger("ana", "", "555", t0)
	require.NoError(t, err)
	_, err = repo.Register(ctx, p)
	require.NoError(t, err)

	later, _ := user.NewPassenger("ana", "Ana Souza", "", t0.Add(time.Hour))
	stored, err := repo.Register(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", stored.Name)
	assert.Equal(t, t0, stored.RegisteredAt)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.Get(ctx, "bob")
	require.ErrorIs(t, err, ports.ErrPassengerNotFound)
}

func TestIdempotencyStore_Expiry(t *testing.T) {
	store := NewIdempotencyStore()
	now := t0
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "cmd-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "cmd-1", []byte(`{"ok":true}`), time.Minute))
	v, ok, err := store.Get(ctx, "cmd-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"ok":true}`, string(v))

	now = now.Add(time.Minute)
	_, ok, err = store.Get(ctx, "cmd-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
