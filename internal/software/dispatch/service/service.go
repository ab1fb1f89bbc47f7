package service

import (
	"time"

	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/logger"
	"ride-dispatch/internal/ports"
	"ride-dispatch/internal/software/dispatch/notify"
)

// dispatchService is the only writer of the ride table.
type dispatchService struct {
	logger       *logger.Logger
	rides        ports.RideRepository
	drivers      ports.DriverRegistry
	passengers   ports.PassengerRegistry
	channel      ports.MessageChannel
	router       *notify.Router
	pricer       ports.Pricer
	pendingQueue string
	hub          *hub
	now          func() time.Time
}

// Option customizes a dispatch service.
type Option func(*dispatchService)

// WithPricer replaces the default random fare estimate.
func WithPricer(p ports.Pricer) Option {
	return func(s *dispatchService) { s.pricer = p }
}

// WithPendingQueue overrides the shared pending-ride queue name.
func WithPendingQueue(name string) Option {
	return func(s *dispatchService) {
		if name != "" {
			s.pendingQueue = name
		}
	}
}

// WithClock sets the time source used for ride timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *dispatchService) { s.now = now }
}

// NewDispatchService creates a new instance of the DispatchService with the provided dependencies.
func NewDispatchService(
	logger *logger.Logger,
	rides ports.RideRepository,
	drivers ports.DriverRegistry,
	passengers ports.PassengerRegistry,
	channel ports.MessageChannel,
	opts ...Option,
) ports.DispatchService {
	service := &dispatchService{
		logger:       logger,
		rides:        rides,
		drivers:      drivers,
		passengers:   passengers,
		channel:      channel,
		router:       notify.NewRouter(channel, logger),
		pricer:       RandomPricer{},
		pendingQueue: contracts.QueuePendingRides,
		hub:          newHub(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}
