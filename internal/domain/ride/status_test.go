package ride

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("  in_progress ")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("REQUESTED")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusDriverArrived, false},
		{StatusPending, StatusCompleted, false},
		{StatusAccepted, StatusDriverArrived, true},
		{StatusAccepted, StatusInProgress, true},
		{StatusAccepted, StatusPending, false},
		{StatusDriverArrived, StatusAccepted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusInProgress, false},
		{StatusInProgress, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusAccepted, Status("BOGUS"), false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusInProgress.Terminal())
}
