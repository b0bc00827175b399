// Package mqtt connects the selection node to an MQTT broker.  Command tokens,
// detection sets and optionally frames are received by subscription, and
// confirmed planning IDs are published to the object id topic.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/swdee/go-bciselect/config"
	"github.com/swdee/go-bciselect/message"
)

const (
	connectTimeout   = 5 * time.Second
	subscribeTimeout = 5 * time.Second
	publishTimeout   = 2 * time.Second
)

// Handlers receive the payloads of the subscribed topics.  A nil handler
// leaves its topic unsubscribed.
type Handlers struct {
	OnCommand func(token string)
	OnObjects func(payload []byte)
	OnImage   func(payload []byte)
}

// Stats contains client statistics
type Stats struct {
	Connected bool              `json:"connected"`
	Published map[string]uint64 `json:"published"`
	Received  map[string]uint64 `json:"received"`
	Errors    uint64            `json:"errors"`
}

// Client wraps a paho client with the node's topics
type Client struct {
	cfg    config.MQTTConfig
	client paho.Client
	logger *slog.Logger

	mu         sync.RWMutex
	published  map[string]uint64
	received   map[string]uint64
	errors     uint64
	subscribed []string
	// closed is set once Disconnect starts, later emits are dropped
	closed bool
	wg     sync.WaitGroup
}

// New returns a Client for the configured broker, call Connect before use
func New(cfg config.MQTTConfig, logger *slog.Logger) *Client {

	c := newClient(cfg, logger)
	c.client = paho.NewClient(c.options())

	return c
}

// options returns the paho client options for the configured broker
func (c *Client) options() *paho.ClientOptions {

	cfg := c.cfg

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	// detection sets and commands are applied in arrival order, handlers run
	// on paho's router so they must never wait on a token
	opts.SetOrderMatters(true)

	opts.OnConnect = func(pc paho.Client) {
		c.logger.Info("mqtt connection established",
			"broker", cfg.Broker,
			"client_id", cfg.ClientID)
	}

	opts.OnConnectionLost = func(pc paho.Client, err error) {
		c.logger.Warn("mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", cfg.Broker)
	}

	return opts
}

// NewWithClient returns a Client using an existing paho client
func NewWithClient(cfg config.MQTTConfig, client paho.Client, logger *slog.Logger) *Client {
	c := newClient(cfg, logger)
	c.client = client
	return c
}

func newClient(cfg config.MQTTConfig, logger *slog.Logger) *Client {

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:       cfg,
		logger:    logger,
		published: make(map[string]uint64),
		received:  make(map[string]uint64),
	}
}

// Connect establishes connection to the MQTT broker
func (c *Client) Connect(ctx context.Context) error {

	c.logger.Info("connecting to mqtt broker", "broker", c.cfg.Broker)

	token := c.client.Connect()

	if err := wait(ctx, token, connectTimeout); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	return nil
}

// Subscribe subscribes to the topics that have a handler
func (c *Client) Subscribe(ctx context.Context, h Handlers) error {

	if h.OnCommand != nil {
		err := c.subscribe(ctx, c.cfg.Topics.Command, "command", func(payload []byte) {
			h.OnCommand(message.DecodeCommand(payload))
		})
		if err != nil {
			return err
		}
	}

	if h.OnObjects != nil {
		if err := c.subscribe(ctx, c.cfg.Topics.Objects, "objects", h.OnObjects); err != nil {
			return err
		}
	}

	if h.OnImage != nil && c.cfg.Topics.Image != "" {
		if err := c.subscribe(ctx, c.cfg.Topics.Image, "image", h.OnImage); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) subscribe(ctx context.Context, topic, name string, handler func([]byte)) error {

	qos := c.qos(name)

	c.logger.Info("subscribing to topic", "topic", topic, "qos", qos)

	token := c.client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		c.mu.Lock()
		c.received[msg.Topic()]++
		c.mu.Unlock()

		handler(msg.Payload())
	})

	if err := wait(ctx, token, subscribeTimeout); err != nil {
		return fmt.Errorf("subscription to %s failed: %w", topic, err)
	}

	c.mu.Lock()
	c.subscribed = append(c.subscribed, topic)
	c.mu.Unlock()

	return nil
}

// Emit publishes a confirmed planning ID to the object id topic.  It does not
// wait for delivery, failures are logged and counted.  Emits after Disconnect
// has started are dropped.
func (c *Client) Emit(planningID int) {

	topic := c.cfg.Topics.ObjectID

	c.mu.Lock()

	if c.closed {
		c.errors++
		c.mu.Unlock()
		c.logger.Warn("mqtt client disconnecting, object id dropped",
			"planning_id", planningID)
		return
	}

	c.wg.Add(1)
	c.mu.Unlock()

	payload := message.EncodeObjectID(planningID)
	token := c.client.Publish(topic, c.qos("object_id"), false, payload)

	go func() {
		defer c.wg.Done()

		if err := wait(context.Background(), token, publishTimeout); err != nil {
			c.mu.Lock()
			c.errors++
			c.mu.Unlock()

			c.logger.Error("failed to publish object id",
				"topic", topic,
				"planning_id", planningID,
				"error", err)
			return
		}

		c.mu.Lock()
		c.published[topic]++
		c.mu.Unlock()

		c.logger.Debug("object id published", "topic", topic, "planning_id", planningID)
	}()
}

// Disconnect unsubscribes, waits for pending publishes and closes the
// connection
func (c *Client) Disconnect() {

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	topics := c.subscribed
	c.subscribed = nil
	c.mu.Unlock()

	c.wg.Wait()

	if !c.client.IsConnected() {
		return
	}

	if len(topics) > 0 {
		c.client.Unsubscribe(topics...).WaitTimeout(subscribeTimeout)
	}

	c.client.Disconnect(250)
	c.logger.Info("mqtt disconnected")
}

// Stats returns client statistics
func (c *Client) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	published := make(map[string]uint64, len(c.published))
	for k, v := range c.published {
		published[k] = v
	}

	received := make(map[string]uint64, len(c.received))
	for k, v := range c.received {
		received[k] = v
	}

	return Stats{
		Connected: c.client.IsConnected(),
		Published: published,
		Received:  received,
		Errors:    c.errors,
	}
}

// qos returns the QoS level configured for a topic, default 0
func (c *Client) qos(name string) byte {
	if qos, ok := c.cfg.QoS[name]; ok {
		return qos
	}
	return 0
}

// wait blocks until the token completes, the timeout passes or ctx is done
func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timeout after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
