package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client is a lazily connected RabbitMQ channel implementing
// ports.MessageChannel over durable queues on the default exchange. One
// connection is shared by every queue the client touches. There is no
// background reconnect: a dead connection is dialed again by the next call
// that needs it.
type Client struct {
	url    string
	logger *logger.Logger
	logCtx context.Context // context for logging (without cancel)

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	pubMu       sync.Mutex
	pubConfirms chan amqp.Confirmation

	declMu   sync.Mutex
	declared map[string]struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// NewClient returns a client that dials on first use.
func NewClient(ctx context.Context, url string, logger *logger.Logger) *Client {
	return &Client{
		url:      url,
		logger:   logger,
		logCtx:   context.WithoutCancel(ctx),
		declared: make(map[string]struct{}),
		closed:   make(chan struct{}),
	}
}

// ConnectRabbitMQ is NewClient followed by an immediate dial, for callers that
// want to fail fast at startup.
func ConnectRabbitMQ(ctx context.Context, url string, logger *logger.Logger) (*Client, error) {
	client := NewClient(ctx, url, logger)
	if _, _, err := client.ready(); err != nil {
		return nil, err
	}
	return client, nil
}

// Close releases the connection. Blocked subscriptions return.
func (client *Client) Close() error {
	client.closeOnce.Do(func() { close(client.closed) })

	client.mu.Lock()
	var err error
	if client.pubChan != nil {
		_ = client.pubChan.Close()
		client.pubChan = nil
	}
	if client.conn != nil {
		err = client.conn.Close()
		client.conn = nil
	}
	client.mu.Unlock()

	// the confirms listener is closed by amqp along with its channel
	client.pubMu.Lock()
	client.pubConfirms = nil
	client.pubMu.Unlock()

	if err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("rabbitmq: close: %w", err)
	}
	return nil
}

func (client *Client) isClosed() bool {
	select {
	case <-client.closed:
		return true
	default:
		return false
	}
}

func errNotReady(what string) error {
	return fmt.Errorf("%w: rabbitmq: %s", contracts.ErrBrokerUnavailable, what)
}

// --- internals ---

// ready returns a live connection and publishing channel, dialing if needed.
func (client *Client) ready() (*amqp.Connection, *amqp.Channel, error) {
	if client.isClosed() {
		return nil, nil, errNotReady("client is closed")
	}

	client.mu.RLock()
	conn, ch := client.conn, client.pubChan
	client.mu.RUnlock()
	if conn != nil && !conn.IsClosed() && ch != nil && !ch.IsClosed() {
		return conn, ch, nil
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	// another caller may have dialed meanwhile
	if client.conn != nil && !client.conn.IsClosed() && client.pubChan != nil && !client.pubChan.IsClosed() {
		return client.conn, client.pubChan, nil
	}
	if client.isClosed() {
		return nil, nil, errNotReady("client is closed")
	}
	if err := client.connectLocked(); err != nil {
		return nil, nil, err
	}
	return client.conn, client.pubChan, nil
}

// connectLocked dials and opens the confirm-mode publishing channel. Caller holds mu.
func (client *Client) connectLocked() (err error) {
	if client.conn != nil && !client.conn.IsClosed() {
		_ = client.conn.Close()
	}

	// establish connection with sane defaults
	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_dial_failed", "Failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("%w: rabbitmq dial failed: %v", contracts.ErrBrokerUnavailable, err)
	}

	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	// create a channel for publishing messages
	ch, err := conn.Channel()
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_open_channel_failed", "Failed to open RabbitMQ channel", err, nil)
		return fmt.Errorf("%w: rabbitmq: failed to open channel: %v", contracts.ErrBrokerUnavailable, err)
	}

	// enable publisher confirms on the publishing channel
	if err = ch.Confirm(false); err != nil {
		_ = ch.Close()
		client.logger.Error(client.logCtx, "rabbitmq_enable_confirms_failed", "Failed to enable publisher confirms", err, nil)
		return fmt.Errorf("%w: rabbitmq: failed to enable confirms: %v", contracts.ErrBrokerUnavailable, err)
	}

	// queues declared on a dead connection must be declared again
	client.resetDeclared()

	client.pubMu.Lock()
	client.pubConfirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	client.pubMu.Unlock()

	// unroutable messages (publish with mandatory=true)
	returns := ch.NotifyReturn(make(chan amqp.Return, 1))
	go func() {
		for r := range returns {
			client.logger.Error(client.logCtx, "rabbitmq_returned",
				"Message was returned (unroutable)",
				fmt.Errorf("code=%d text=%s", r.ReplyCode, r.ReplyText),
				map[string]any{
					"routing_key": r.RoutingKey,
					"size":        len(r.Body),
				},
			)
		}
	}()

	client.conn = conn
	client.pubChan = ch

	client.logger.Info(client.logCtx, "rabbitmq_connected", "RabbitMQ connection established successfully", nil)
	return nil
}
