// Package emitter publishes workout events to an MQTT broker.
package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/repcoach/internal/workout"
)

// queueSize bounds events waiting for the publisher goroutine.
const queueSize = 256

// ErrNotConnected is returned when publishing before Connect succeeded or
// while the broker is unreachable.
var ErrNotConnected = errors.New("mqtt not connected")

// Config selects the broker and topic layout.
type Config struct {
	Broker      string // host:port
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// publisher is the part of mqtt.Client the emitter uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTEmitter publishes session events to <prefix>/<client id>/<event kind>.
// Emit never blocks the caller; a background goroutine does the publishing.
type MQTTEmitter struct {
	cfg    Config
	logger *slog.Logger
	client mqtt.Client
	pub    publisher

	qmu       sync.RWMutex
	queue     chan workout.Event
	closed    bool
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu        sync.RWMutex
	published map[string]uint64
	errors    uint64
	dropped   uint64
	connected bool
}

// NewMQTTEmitter creates an emitter and starts its publisher goroutine.
// Call Connect before events can reach the broker.
func NewMQTTEmitter(cfg Config, logger *slog.Logger) *MQTTEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "repcoach"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "repcoach"
	}

	e := &MQTTEmitter{
		cfg:       cfg,
		logger:    logger,
		queue:     make(chan workout.Event, queueSize),
		published: make(map[string]uint64),
	}

	e.wg.Add(1)
	go e.run()

	return e
}

// Connect establishes the connection to the broker. The client keeps
// reconnecting on its own afterwards.
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		e.logger.Info("mqtt connection established", "broker", e.cfg.Broker, "client_id", e.cfg.ClientID)
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		e.logger.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", e.cfg.Broker)
	}

	client := mqtt.NewClient(opts)

	// Stored before waiting: paho keeps retrying after a timeout.
	e.mu.Lock()
	e.client = client
	e.pub = client
	e.mu.Unlock()

	e.logger.Info("connecting to mqtt broker", "broker", e.cfg.Broker)

	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return nil
}

// Topic returns the topic an event kind is published on.
func (e *MQTTEmitter) Topic(kind workout.EventKind) string {
	return strings.Join([]string{e.cfg.TopicPrefix, e.cfg.ClientID, string(kind)}, "/")
}

// Emit queues ev for publishing. When the queue is full, or the emitter
// is closed, the event is dropped and counted.
func (e *MQTTEmitter) Emit(ev workout.Event) {
	e.qmu.RLock()
	defer e.qmu.RUnlock()

	if e.closed {
		e.countDropped()
		return
	}
	select {
	case e.queue <- ev:
	default:
		e.countDropped()
	}
}

func (e *MQTTEmitter) countDropped() {
	e.mu.Lock()
	e.dropped++
	e.mu.Unlock()
}

func (e *MQTTEmitter) run() {
	defer e.wg.Done()
	for ev := range e.queue {
		if err := e.Publish(ev); err != nil {
			e.logger.Debug("mqtt publish failed", "kind", ev.Kind, "error", err)
		}
	}
}

// Publish sends ev synchronously.
func (e *MQTTEmitter) Publish(ev workout.Event) error {
	e.mu.RLock()
	pub, connected := e.pub, e.connected
	e.mu.RUnlock()

	if pub == nil || !connected {
		e.countError()
		return ErrNotConnected
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		e.countError()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := e.Topic(ev.Kind)
	token := pub.Publish(topic, e.cfg.QoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	e.logger.Debug("event published", "topic", topic, "qos", e.cfg.QoS, "size", len(payload))
	return nil
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

// Close publishes what is still queued and disconnects.
func (e *MQTTEmitter) Close() error {
	e.closeOnce.Do(func() {
		e.qmu.Lock()
		e.closed = true
		close(e.queue)
		e.qmu.Unlock()
		e.wg.Wait()

		e.mu.Lock()
		client := e.client
		e.connected = false
		e.mu.Unlock()

		if client != nil {
			wasConnected := client.IsConnected()
			client.Disconnect(250)
			if wasConnected {
				e.logger.Info("mqtt disconnected")
			}
		}
	})
	return nil
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool              `json:"connected"`
	Published map[string]uint64 `json:"published"`
	Errors    uint64            `json:"errors"`
	Dropped   uint64            `json:"dropped"`
}

// Stats returns emitter statistics
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}

	return Stats{
		Connected: e.connected,
		Published: published,
		Errors:    e.errors,
		Dropped:   e.dropped,
	}
}
