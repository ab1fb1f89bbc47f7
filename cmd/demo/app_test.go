package demo

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"ride-dispatch/internal/general/config"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/membroker"
	"ride-dispatch/internal/software/actor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSimulate_EveryTripCompletes(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Engine.HTTPPort = 0
	cfg.Simulation = config.Simulation{
		AcceptProbability: 1,
		DecisionDelayMin:  time.Millisecond,
		DecisionDelayMax:  5 * time.Millisecond,
		ArriveDelayMin:    5 * time.Millisecond,
		ArriveDelayMax:    10 * time.Millisecond,
		StartDelayMin:     10 * time.Millisecond,
		StartDelayMax:     20 * time.Millisecond,
		CompleteDelayMin:  20 * time.Millisecond,
		CompleteDelayMax:  30 * time.Millisecond,
	}

	log := logger.New("demo-test")
	log.SetLevel("error")
	broker := membroker.New()
	out := &lockedBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Simulate(ctx, cfg, broker, log, out, Timing{
			Warmup:          20 * time.Millisecond,
			Stagger:         10 * time.Millisecond,
			MonitorInterval: 50 * time.Millisecond,
			MonitorFor:      time.Second,
		})
	}()

	observer := actor.NewDispatchClient(broker, actor.OperatorReplyQueue("observer"), log)
	go func() { _ = observer.Listen(ctx) }()

	assert.Eventually(t, func() bool {
		stats, err := observer.Stats(ctx)
		return err == nil && stats.Completed == len(trips)
	}, 10*time.Second, 50*time.Millisecond)

	stats, err := observer.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(drivers), stats.Drivers)
	assert.Equal(t, len(drivers), stats.AvailableDrivers)
	assert.Equal(t, 100.0, stats.CompletionRate)

	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "ride monitor") }, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("demo did not stop")
	}
}

func TestRun_UnknownBroker(t *testing.T) {
	t.Chdir(t.TempDir())
	err := Run(context.Background(), "", "kafka")
	assert.ErrorContains(t, err, "unknown broker")
}
