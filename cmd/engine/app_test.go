package engine

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"ride-dispatch/internal/general/config"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/membroker"
	"ride-dispatch/internal/software/actor"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Engine.HTTPPort = 0
	cfg.Engine.CommandWorkers = 2
	return cfg
}

func serve(t *testing.T, cfg *config.Config) (*membroker.Broker, *logger.Logger) {
	t.Helper()
	log := logger.New("engine-test")
	log.SetLevel("error")
	broker := membroker.New()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg, broker, log, 10) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("engine did not stop")
		}
	})
	return broker, log
}

func TestServe_AnswersCommands(t *testing.T) {
	cfg := testConfig(t)
	broker, log := serve(t, cfg)

	client := actor.NewDispatchClient(broker, actor.OperatorReplyQueue("t1"), log, actor.WithCommandQueue(cfg.Queues.Commands))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Listen(ctx) }()

	view, err := client.RequestRide(ctx, "ana", "A", "B")
	require.NoError(t, err)
	assert.Equal(t, 1, broker.Len(cfg.Queues.Pending))

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)

	rides, err := client.ListRides(ctx, contracts.RideFilter{PassengerID: "ana"})
	require.NoError(t, err)
	require.Len(t, rides, 1)
	assert.Equal(t, view.ID, rides[0].ID)
}

func TestServe_RedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()
	broker, log := serve(t, cfg)

	client := actor.NewDispatchClient(broker, actor.OperatorReplyQueue("t2"), log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Listen(ctx) }()

	reply, err := client.Call(ctx, contracts.Command{CommandID: "cmd-42", Type: contracts.CommandGetStats})
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.True(t, mr.Exists("dispatch:command:cmd-42"))
}

func TestServe_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"

	log := logger.New("engine-test")
	log.SetLevel("error")
	err := Serve(context.Background(), cfg, membroker.New(), log, 10)
	assert.Error(t, err)
}

func TestServe_MonitoringBoard(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := testConfig(t)
	cfg.Engine.HTTPPort = port
	serve(t, cfg)

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	assert.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)
}
