package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250 // milliseconds handed to paho's Disconnect
)

// ClientConfig holds the broker connection settings.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	QoS       byte
}

// Logger defines the logging interface used by the client.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageHandler is the callback signature for received messages. Handlers
// run on paho goroutines and must not block for long.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	topic   string
	handler MessageHandler
}

// Client wraps paho.mqtt.golang with reconnect handling and panic-safe
// subscription dispatch. Safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    ClientConfig
	logger Logger

	mu            sync.RWMutex
	subscriptions map[string]subscription
}

// statusPayload is the retained system status document.
type statusPayload struct {
	ClientID string `json:"client_id"`
	Status   string `json:"status"`
	Time     string `json:"time"`
}

func statusJSON(clientID, status string) []byte {
	b, _ := json.Marshal(statusPayload{
		ClientID: clientID,
		Status:   status,
		Time:     time.Now().UTC().Format(time.RFC3339),
	})
	return b
}

// Connect establishes the broker connection, configures an LWT that flips
// the retained status to offline on crash, and publishes the online status.
func Connect(cfg ClientConfig) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		logger:        noopLogger{},
		subscriptions: make(map[string]subscription),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute).
		SetWill(TopicSystemStatus, string(statusJSON(cfg.ClientID, "offline")), cfg.QoS, true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.logger.Warn("broker connection lost", "error", err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

// handleConnect restores subscriptions and refreshes the retained online
// status. Runs on initial connect and every reconnect.
func (c *Client) handleConnect() {
	c.mu.RLock()
	subs := make([]subscription, 0, len(c.subscriptions))
	for _, s := range c.subscriptions {
		subs = append(subs, s)
	}
	c.mu.RUnlock()

	for _, s := range subs {
		c.client.Subscribe(s.topic, c.cfg.QoS, c.wrapHandler(s.handler))
	}
	c.client.Publish(TopicSystemStatus, c.cfg.QoS, true, statusJSON(c.cfg.ClientID, "online"))
}

// Publish sends a payload without waiting for broker acknowledgment.
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}
	c.client.Publish(topic, c.cfg.QoS, false, payload)
	return nil
}

// Subscribe registers a handler for the topic. The subscription survives
// reconnects.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	c.mu.Lock()
	c.subscriptions[topic] = subscription{topic: topic, handler: handler}
	c.mu.Unlock()

	token := c.client.Subscribe(topic, c.cfg.QoS, c.wrapHandler(handler))
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("telemetry: subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: subscribe %s: %w", topic, err)
	}
	return nil
}

// Close publishes the graceful offline status and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.client.IsConnected() {
		token := c.client.Publish(TopicSystemStatus, c.cfg.QoS, true, statusJSON(c.cfg.ClientID, "offline"))
		token.WaitTimeout(publishTimeout)
	}
	c.client.Disconnect(disconnectQuiesce)
	return nil
}

// IsConnected reports the current connection state.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// wrapHandler adds panic recovery and error logging around a handler.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("message handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("message handler failed", "topic", msg.Topic(), "error", err)
		}
	}
}
