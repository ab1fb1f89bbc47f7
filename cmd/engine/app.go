package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"ride-dispatch/internal/general/config"
	"ride-dispatch/internal/general/jwt"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/general/memstore"
	"ride-dispatch/internal/general/rabbitmq"
	"ride-dispatch/internal/general/redisstore"
	"ride-dispatch/internal/ports"
	boardhandler "ride-dispatch/internal/software/adminboard/handler"
	"ride-dispatch/internal/software/dispatch/handler"
	"ride-dispatch/internal/software/dispatch/service"

	"golang.org/x/sync/errgroup"
)

// Run loads the configuration, connects to RabbitMQ and serves the Dispatch
// Engine until ctx is cancelled.
func Run(ctx context.Context, configPath string, maxConcurrent int) error {
	logger := logger.New("dispatch-engine")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}
	logger.SetLevel(cfg.Log.Level)

	mq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg.AMQPURL(), logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connect_failed", "Failed to connect to RabbitMQ", err, map[string]any{"host": cfg.RabbitMQ.Host})
		return err
	}
	defer mq.Close()

	if err := mq.DeclareQueues(cfg.Queues.Pending, cfg.Queues.Commands); err != nil {
		logger.Error(ctx, "rabbitmq_topology_failed", "Failed to declare engine queues", err, nil)
		return err
	}

	return Serve(ctx, cfg, mq, logger, maxConcurrent)
}

// Serve runs the engine over channel: the command consumer and, when
// engine.http_port is set, the monitoring board. It blocks until ctx is
// cancelled or a component fails.
func Serve(ctx context.Context, cfg *config.Config, channel ports.MessageChannel, logger *logger.Logger, maxConcurrent int) error {
	idem, closeIdem, err := idempotencyStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeIdem()

	svc := service.NewDispatchService(logger,
		memstore.NewRideRepo(), memstore.NewDriverRepo(), memstore.NewPassengerRepo(),
		channel, service.WithPendingQueue(cfg.Queues.Pending))
	commands := handler.NewCommandHandler(svc, channel, idem, cfg.Engine.IdempotencyTTL, logger)

	var auth *jwt.Manager
	if cfg.Admin.JWTSecret != "" {
		if auth, err = jwt.NewManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return commands.Run(gctx, cfg.Queues.Commands, cfg.Engine.CommandWorkers)
	})

	if cfg.Engine.HTTPPort > 0 {
		board := boardhandler.NewBoardHTTPHandler(svc, logger, auth)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Engine.HTTPPort),
			Handler:           withConcurrencyLimit(maxConcurrent, board.Handler()),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			IdleTimeout:       60 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return gctx },
		}
		srv.RegisterOnShutdown(board.Close)

		g.Go(func() error {
			logger.Info(gctx, "service_started", fmt.Sprintf("Monitoring board listening on port %d", cfg.Engine.HTTPPort), map[string]any{
				"port":           cfg.Engine.HTTPPort,
				"max_concurrent": maxConcurrent,
				"auth":           auth != nil,
			})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(gctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Engine.HTTPPort})
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shCtx); err != nil {
				logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
			}
			return nil
		})
	}

	err = g.Wait()
	logger.Info(ctx, "service_stopped", "Dispatch engine stopped", nil)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// idempotencyStore picks the Redis store when enabled, the in-memory one otherwise.
func idempotencyStore(ctx context.Context, cfg *config.Config, logger *logger.Logger) (ports.IdempotencyStore, func(), error) {
	if !cfg.Redis.Enabled {
		return memstore.NewIdempotencyStore(), func() {}, nil
	}

	rdb, err := redisstore.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error(ctx, "redis_connect_failed", "Failed to connect to Redis", err, map[string]any{"addr": cfg.Redis.Addr})
		return nil, nil, err
	}
	logger.Info(ctx, "redis_connected", "Command replies are remembered in Redis", map[string]any{"addr": cfg.Redis.Addr})
	return redisstore.NewIdempotencyStore(rdb), func() { _ = rdb.Close() }, nil
}

// withConcurrencyLimit bounds the number of requests in progress at once.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
