// Package bus wraps github.com/rabbitmq/amqp091-go into the five named
// topics the system's services communicate over. Each topic is a durable
// topic exchange; each (topic, consumer-group) pair gets its own durable
// queue bound with routing key "#", giving a single sequential consumer per
// queue — sufficient to satisfy per-key total ordering without RabbitMQ
// native partitioning.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ride-hail/internal/bus/contracts"
	"ride-hail/internal/common/config"
	"ride-hail/internal/common/log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Topics is the full set of named topics this system's bus topology declares.
var Topics = []string{
	contracts.TopicRideRequests,
	contracts.TopicRideMatches,
	contracts.TopicRideUpdates,
	contracts.TopicDriverLocations,
	contracts.TopicDriverAvailability,
}

// Client is a resilient RabbitMQ connector with auto-reconnect and topology setup.
type Client struct {
	url        string
	ackTimeout time.Duration
	logger     *log.Logger
	logCtx     context.Context // context for logging (without cancel)

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	pubMu       sync.Mutex
	pubConfirms chan amqp.Confirmation

	closed    chan struct{}
	reconnect chan struct{}
}

// Connect establishes the connection, declares the five topic exchanges, and
// starts a background watcher that reconnects (and re-declares topology) on failure.
func Connect(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)

	client := &Client{
		url:        url,
		ackTimeout: time.Duration(cfg.RabbitMQ.AckTimeoutSeconds) * time.Second,
		logger:     logger,
		logCtx:     context.WithoutCancel(ctx),
		closed:     make(chan struct{}),
		reconnect:  make(chan struct{}, 1),
	}

	if err := client.connectOnce(); err != nil {
		return nil, err
	}

	go client.watch()

	return client, nil
}

// Close gracefully stops the watcher and closes AMQP resources.
func (c *Client) Close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	c.mu.Lock()
	if c.pubChan != nil {
		_ = c.pubChan.Close()
		c.pubChan = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.pubMu.Lock()
	if c.pubConfirms != nil {
		close(c.pubConfirms)
		c.pubConfirms = nil
	}
	c.pubMu.Unlock()
}

func declareTopology(ch *amqp.Channel) error {
	for _, topic := range Topics {
		if err := ch.ExchangeDeclare(topic, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", topic, err)
		}
	}
	return nil
}

func (c *Client) connectOnce() error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		c.logger.Error(c.logCtx, "bus_dial_failed", "Failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("bus dial failed: %w", err)
	}

	defer func() {
		if err != nil && conn != nil {
			_ = conn.Close()
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		c.logger.Error(c.logCtx, "bus_open_channel_failed", "Failed to open RabbitMQ channel", err, nil)
		return fmt.Errorf("bus: failed to open channel: %w", err)
	}

	defer func() {
		if err != nil && ch != nil {
			_ = ch.Close()
		}
	}()

	if err = declareTopology(ch); err != nil {
		c.logger.Error(c.logCtx, "bus_declare_topology_failed", "Failed to declare bus topology", err, nil)
		return fmt.Errorf("bus: failed to declare topology: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		c.logger.Error(c.logCtx, "bus_enable_confirms_failed", "Failed to enable publisher confirms", err, nil)
		return fmt.Errorf("bus: failed to enable confirms: %w", err)
	}

	c.pubMu.Lock()
	oldConfirms := c.pubConfirms
	c.pubConfirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	c.pubMu.Unlock()

	if oldConfirms != nil {
		close(oldConfirms)
	}

	returns := ch.NotifyReturn(make(chan amqp.Return, 1))
	go func() {
		for r := range returns {
			c.logger.Error(c.logCtx, "bus_returned", "Message was returned (unroutable)",
				fmt.Errorf("code=%d text=%s", r.ReplyCode, r.ReplyText),
				map[string]any{"exchange": r.Exchange, "routingKey": r.RoutingKey, "size": len(r.Body)})
		}
	}()

	c.mu.Lock()
	if c.pubChan != nil && !c.pubChan.IsClosed() {
		_ = c.pubChan.Close()
	}
	c.conn = conn
	c.pubChan = ch
	c.mu.Unlock()

	go func(conn *amqp.Connection, ch *amqp.Channel) {
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-c.closed:
			return
		case <-connClosed:
		case <-chClosed:
		}
		select {
		case c.reconnect <- struct{}{}:
		default:
		}
	}(conn, ch)

	c.logger.Info(c.logCtx, "bus_connected", "RabbitMQ connection established successfully", nil)

	return nil
}

func (c *Client) watch() {
	backoff := time.Second
	for {
		select {
		case <-c.closed:
			return
		case <-c.reconnect:
			for {
				select {
				case <-c.closed:
					return
				default:
				}

				err := c.connectOnce()
				if err == nil {
					backoff = time.Second
					c.logger.Info(c.logCtx, "bus_reconnected", "Reconnected to RabbitMQ and re-declared topology", nil)
					break
				}

				c.logger.Error(c.logCtx, "bus_retry_attempted", "Failed to reconnect to RabbitMQ", err, nil)

				time.Sleep(backoff)
				if backoff < 30*time.Second {
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
				}
			}
		}
	}
}

// Publish marshals value as JSON and publishes it to topic with the given
// routing key, waiting up to the configured ack timeout for a publisher confirm.
func (c *Client) Publish(ctx context.Context, topic, key string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("bus: marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.pubChan
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("bus: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("bus: publish channel is not open")
	}

	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	confirms := c.pubConfirms

	pctx, cancel := context.WithTimeout(ctx, c.ackTimeout)
	defer cancel()

	if err := ch.PublishWithContext(pctx, topic, key, true, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("bus: publish to %s: %w", topic, err)
	}

	select {
	case conf := <-confirms:
		if !conf.Ack {
			return fmt.Errorf("bus: publish to %s not acknowledged", topic)
		}
	case <-pctx.Done():
		select {
		case conf := <-confirms:
			if !conf.Ack {
				return fmt.Errorf("bus: publish to %s not acknowledged after timeout", topic)
			}
		case <-time.After(2 * time.Second):
		}
		return fmt.Errorf("bus: publish to %s timed out waiting for ack: %w", topic, pctx.Err())
	}

	return nil
}

// Handler processes one delivery's decoded key and raw JSON value.
type Handler func(ctx context.Context, key string, value []byte) error

// Consume declares (if absent) the durable queue owned by (topic, group),
// binds it to topic with routing key "#", and loops pulling one delivery at
// a time: each handler call runs under a 30-second derived context, acks on
// success, nacks (no-requeue) on error. Blocks until ctx is cancelled or the
// channel/connection closes.
func (c *Client) Consume(ctx context.Context, topic, group string, prefetch int, handler Handler) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || conn.IsClosed() {
		return errors.New("bus: connection is not ready")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("bus: open consumer channel: %w", err)
	}
	defer ch.Close()

	queue := topic + "." + group
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("bus: declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, "#", topic, false, nil); err != nil {
		return fmt.Errorf("bus: bind queue %s to %s: %w", queue, topic, err)
	}

	if prefetch < 0 {
		prefetch = 1
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("bus: set QoS (prefetch=%d): %w", prefetch, err)
		}
	}

	deliveries, err := ch.Consume(queue, group, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("bus: consume(%s): %w", queue, err)
	}

	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(group, false)
			return nil

		case cerr := <-chClosed:
			if cerr != nil {
				return fmt.Errorf("bus: channel closed while consuming %s: %w", queue, cerr)
			}
			return nil

		case d, ok := <-deliveries:
			if !ok {
				return nil
			}

			hCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err := handler(hCtx, d.RoutingKey, d.Body)
			cancel()

			if err != nil {
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
