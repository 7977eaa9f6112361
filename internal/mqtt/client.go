// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/env_monitor/internal/env"
)

// ErrStopped is returned by Connect after Disconnect.
var ErrStopped = errors.New("mqtt client stopped")

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt client not connected")

const publishTimeout = 5 * time.Second

// SampleHandler receives a decoded sample and the topic it arrived on.
type SampleHandler func(topic string, s env.Sample)

type subscription struct {
	filter  string
	handler mqtt.MessageHandler
}

// Client wraps a paho client. Subscriptions are restored after every
// reconnect.
type Client struct {
	client    mqtt.Client
	broker    string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	subs      []subscription

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewClient creates a client for broker ("tcp://host:port").
func NewClient(broker, clientID string, logger *slog.Logger) *Client {
	c := &Client{
		broker: broker,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(cl mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", broker)
		c.resubscribe(cl)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect waits for the initial connection, respecting ctx and Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	if c.IsConnected() {
		return nil
	}

	// With ConnectRetry the token only completes once a connection is up.
	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect %s: %w", c.broker, err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return ErrStopped
		default:
		}
	}
}

// PublishSample publishes s as JSON on topic. Samples are retained so late
// subscribers get the current value immediately.
func (c *Client) PublishSample(topic string, s env.Sample) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}

	token := c.client.Publish(topic, 0, true, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	c.logger.Debug("published sample", "topic", topic, "channel", s.Channel)
	return nil
}

// SubscribeSamples subscribes to filter (wildcards allowed) and decodes each
// message as a Sample. Messages that do not decode are logged and dropped.
func (c *Client) SubscribeSamples(filter string, h SampleHandler) error {
	handler := c.sampleHandler(h)

	c.mu.Lock()
	c.subs = append(c.subs, subscription{filter: filter, handler: handler})
	c.mu.Unlock()

	if !c.IsConnected() {
		// Applied by the connect handler.
		return nil
	}
	return c.subscribe(c.client, filter, handler)
}

func (c *Client) sampleHandler(h SampleHandler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var s env.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			c.logger.Warn("invalid sample payload", "topic", msg.Topic(), "error", err)
			return
		}
		h(msg.Topic(), s)
	}
}

func (c *Client) subscribe(cl mqtt.Client, filter string, handler mqtt.MessageHandler) error {
	token := cl.Subscribe(filter, 0, handler)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe timeout for %s", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}
	c.logger.Info("mqtt subscribed", "filter", filter)
	return nil
}

func (c *Client) resubscribe(cl mqtt.Client) {
	c.mu.RLock()
	subs := append([]subscription(nil), c.subs...)
	c.mu.RUnlock()

	// The connect handler runs on paho's goroutine; waiting on tokens there
	// would block it.
	go func() {
		for _, s := range subs {
			if err := c.subscribe(cl, s.filter, s.handler); err != nil {
				c.logger.Error("mqtt resubscribe failed", "filter", s.filter, "error", err)
			}
		}
	}()
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the connection. It is idempotent.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
