package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	return out
}

func TestLogger_InfoCarriesContext(t *testing.T) {
	var buf bytes.Buffer
	l := New("dispatch-engine")
	l.SetOutput(&buf)

	ctx := l.WithRideID(l.WithRequestID(context.Background(), "req-1"), "ride-9")
	l.Info(ctx, "ride_claimed", " claimed ", map[string]any{"driver_id": "d1"})

	line := decodeLine(t, &buf)
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "dispatch-engine", line["service"])
	assert.Equal(t, "ride_claimed", line["action"])
	assert.Equal(t, "claimed", line["message"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "ride-9", line["ride_id"])
	assert.Contains(t, line, "timestamp")
	assert.Equal(t, "d1", line["details"].(map[string]any)["driver_id"])
}

func TestLogger_ErrorAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("")
	l.SetOutput(&buf)

	l.Debug(context.Background(), "noise", "hidden at info level", nil)
	assert.Zero(t, buf.Len())

	l.Error(context.Background(), "", "publish failed", errors.New("boom"), nil)
	line := decodeLine(t, &buf)
	assert.Equal(t, "unknown-service", line["service"])
	assert.Equal(t, "unspecified", line["action"])
	assert.Equal(t, "boom", line["error"].(map[string]any)["msg"])

	buf.Reset()
	l.SetLevel("debug")
	l.Named("driver-sim").Debug(context.Background(), "noise", "now visible", nil)
	assert.Equal(t, "driver-sim", decodeLine(t, &buf)["service"])
}
