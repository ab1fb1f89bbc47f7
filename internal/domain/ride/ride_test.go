package ride

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newPending(t *testing.T) *Ride {
	t.Helper()
	r, err := NewRide("ride-1", "p1", "A", "B", 12.5, t0)
	require.NoError(t, err)
	return r
}

func TestNewRide(t *testing.T) {
	r := newPending(t)
	assert.Equal(t, StatusPending, r.Status)
	assert.Nil(t, r.DriverID)
	assert.Equal(t, "A", r.Pickup)
	assert.Equal(t, "B", r.Destination)

	_, err := NewRide("ride-2", "p1", " ", "B", 1, t0)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = NewRide("ride-3", "", "A", "B", 1, t0)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = NewRide("ride-4", "p1", "A", "B", -1, t0)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRide_Accept(t *testing.T) {
	r := newPending(t)

	require.NoError(t, r.Accept("d1", t0.Add(time.Second)))
	assert.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, "d1", r.Driver())
	require.NotNil(t, r.AcceptedAt)

	err := r.Accept("d2", t0.Add(2*time.Second))
	assert.ErrorIs(t, err, ErrNotClaimable)
	assert.Equal(t, "d1", r.Driver(), "driver must not change after a claim")

	assert.ErrorIs(t, newPending(t).Accept("", t0), ErrInvalidRequest)
}

func TestRide_AcceptCancelled(t *testing.T) {
	r := newPending(t)
	require.NoError(t, r.Advance(StatusCancelled, "changed my mind", t0))

	assert.ErrorIs(t, r.Accept("d1", t0), ErrNotClaimable)
	assert.Nil(t, r.DriverID)
	require.NotNil(t, r.CancellationReason)
	assert.Equal(t, "changed my mind", *r.CancellationReason)
}

func TestRide_Advance(t *testing.T) {
	r := newPending(t)

	assert.ErrorIs(t, r.Advance(StatusInProgress, "", t0), ErrInvalidState, "no driver attached yet")
	assert.ErrorIs(t, r.Advance(StatusAccepted, "", t0), ErrInvalidState)

	require.NoError(t, r.Accept("d1", t0))
	require.NoError(t, r.Advance(StatusInProgress, "", t0.Add(time.Minute)))
	assert.ErrorIs(t, r.Advance(StatusDriverArrived, "", t0), ErrInvalidState)
	require.NoError(t, r.Advance(StatusCompleted, "", t0.Add(2*time.Minute)))

	assert.ErrorIs(t, r.Advance(StatusCancelled, "", t0), ErrInvalidState)
	assert.ErrorIs(t, r.Advance(Status("LOST"), "", t0), ErrInvalidRequest)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, t0.Add(2*time.Minute), *r.LastUpdate)
}

func TestRide_Clone(t *testing.T) {
	r := newPending(t)
	require.NoError(t, r.Accept("d1", t0))

	cp := r.Clone()
	*cp.DriverID = "other"
	assert.Equal(t, "d1", r.Driver())
}

func TestNewEvent(t *testing.T) {
	r := newPending(t)
	ev, err := NewEvent(EventRideRequested, "", r)
	require.NoError(t, err)
	assert.Equal(t, "ride-1", ev.Ride.ID)

	_, err = NewEvent(EventType("NOPE"), "", r)
	assert.ErrorIs(t, err, ErrInvalidEventType)

	assert.Equal(t, EventRideCancelled, EventFor(StatusCancelled))
	assert.Equal(t, EventStatusChanged, EventFor(StatusDriverArrived))
}
