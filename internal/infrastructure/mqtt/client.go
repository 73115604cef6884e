package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/config"
)

// Logger receives handler failures and reconnect notices. logging.Logger
// satisfies it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler handles one inbound message. paho calls handlers from its
// own goroutines; a returned error is logged and the message is still
// acknowledged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client is the gateway's broker connection.
//
// Subscriptions made through Subscribe survive reconnects. The retained
// status topic reads "online" while the client is connected, and
// "offline" after Close or (via the Last Will) after a crash.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	connected atomic.Bool

	mu            sync.RWMutex
	subscriptions map[string]subscription
	onConnect     func()
	onDisconnect  func(error)
	logger        Logger
}

func newClient(cfg config.MQTTConfig) *Client {
	return &Client{
		cfg:           cfg,
		topics:        NewTopics(cfg.TopicPrefix),
		subscriptions: make(map[string]subscription),
	}
}

// Connect dials the broker and waits up to ten seconds for the session.
//
// After a successful Connect the client reconnects on its own with
// exponential backoff bounded by the reconnect settings.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := newClient(cfg)

	opts := clientOptions(cfg, c.topics).
		SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleConnectionLost(err) }).
		SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
			c.warn("MQTT reconnecting", "broker", brokerURL(cfg.Broker))
		})

	c.client = pahomqtt.NewClient(opts)
	if err := wait(c.client.Connect(), connectTimeout, ErrConnectionFailed); err != nil {
		// Stop the background connect retries.
		c.client.Disconnect(0)
		return nil, err
	}

	// The connect handler runs asynchronously; report connected now.
	c.connected.Store(true)
	return c, nil
}

// wait blocks on a paho token and wraps its failure in op.
func wait(tok pahomqtt.Token, timeout time.Duration, op error) error {
	if !tok.WaitTimeout(timeout) {
		return fmt.Errorf("%w: %w after %v", op, ErrTimeout, timeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %w", op, err)
	}
	return nil
}

func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.restoreSubscriptions()
	c.client.Publish(c.statusTopic(), byte(c.cfg.QoS), true, onlineStatus(c.cfg.Broker.ClientID, time.Now()))

	c.mu.RLock()
	fn := c.onConnect
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) handleConnectionLost(err error) {
	c.connected.Store(false)

	c.mu.RLock()
	fn := c.onDisconnect
	c.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// restoreSubscriptions re-subscribes after a reconnect. It runs on paho's
// connect callback and must not block on the tokens.
func (c *Client) restoreSubscriptions() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for topic, sub := range c.subscriptions {
		tok := c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
		go func(topic string) {
			if err := wait(tok, operationTimeout, ErrSubscribeFailed); err != nil {
				c.warn("MQTT resubscribe failed", "topic", topic, "error", err)
			}
		}(topic)
	}
}

func (c *Client) statusTopic() string {
	return c.topics.Status(c.cfg.Broker.ClientID)
}

// Close publishes a graceful offline status and disconnects. Closing a
// client that never connected is a no-op.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		tok := c.client.Publish(c.statusTopic(), byte(c.cfg.QoS), true, offlineStatus(c.cfg.Broker.ClientID, time.Now()))
		tok.WaitTimeout(operationTimeout)
	}
	c.client.Disconnect(disconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Topics returns the topic builders for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

// IsConnected reports the last known session state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

// SetOnConnect installs a callback run after every (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect installs a callback run when the session is lost.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// SetLogger sets the logger for handler failures. Nil silences them.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

func (c *Client) warn(msg string, args ...any) {
	if l := c.getLogger(); l != nil {
		l.Warn(msg, args...)
	}
}

// wrapHandler adapts a MessageHandler to paho, logging returned errors and
// recovering panics so one bad payload cannot kill the client.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if l := c.getLogger(); l != nil {
					l.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}
