package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/mqttswarm/pkg/logging"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// DefaultPort is the standard MQTT port.
const DefaultPort = 1883

// Config configures the embedded broker.
type Config struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port" yaml:"port"`
}

// SubscriptionHandler is a callback for messages seen by the broker.
type SubscriptionHandler func(topic string, payload []byte)

// Option customizes a Broker.
type Option func(*Broker)

// WithLogger sets the operational logger for the broker.
func WithLogger(log *slog.Logger) Option {
	return func(b *Broker) {
		b.log = logging.OrNop(log)
	}
}

// Broker is an embedded MQTT broker.
type Broker struct {
	config              *Config
	server              *mqtt.Server
	hook                *TrafficHook
	mu                  sync.RWMutex
	running             bool
	startedAt           time.Time
	log                 *slog.Logger
	internalSubscribers map[string][]SubscriptionHandler
	// stopping is set during shutdown so hook callbacks skip b.mu,
	// which would deadlock with server.Close().
	stopping atomic.Int32
}

// NewBroker creates a new embedded broker.
func NewBroker(config *Config, opts ...Option) (*Broker, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	if config.Port <= 0 {
		config.Port = DefaultPort
	}

	broker := &Broker{
		config:              config,
		log:                 logging.Nop(),
		internalSubscribers: make(map[string][]SubscriptionHandler),
	}
	for _, opt := range opts {
		opt(broker)
	}

	broker.server = mqtt.New(&mqtt.Options{
		InlineClient: true,
		Logger:       broker.log.With("component", "mochi"),
	})

	// mochi-mqtt rejects every client unless an auth hook is present.
	if err := broker.server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("failed to add allow hook: %w", err)
	}

	broker.hook = NewTrafficHook(broker)
	if err := broker.server.AddHook(broker.hook, nil); err != nil {
		return nil, fmt.Errorf("failed to add traffic hook: %w", err)
	}

	return broker, nil
}

// Start binds the listener and starts serving.
// The context can be used for cancellation during startup.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return errors.New("broker is already running")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	listener := listeners.NewTCP(listeners.Config{
		ID:      fmt.Sprintf("mqtt-%d", b.config.Port),
		Address: b.listenAddress(),
	})
	if err := b.server.AddListener(listener); err != nil {
		return fmt.Errorf("failed to add listener: %w", err)
	}

	go func() {
		if err := b.server.Serve(); err != nil {
			b.log.Error("MQTT server error", "error", err)
		}
	}()

	b.running = true
	b.startedAt = time.Now()
	b.log.Info("embedded broker listening", "address", b.listenAddress())

	return nil
}

// Stop gracefully shuts down the broker, waiting at most timeout.
func (b *Broker) Stop(ctx context.Context, timeout time.Duration) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.stopping.Store(1)
	b.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// b.mu must not be held here: Close disconnects clients, which fires hooks.
	done := make(chan error, 1)
	go func() {
		done <- b.server.Close()
	}()

	var closeErr error
	select {
	case err := <-done:
		closeErr = err
	case <-shutdownCtx.Done():
		closeErr = fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
	}

	b.mu.Lock()
	b.running = false
	b.startedAt = time.Time{}
	b.mu.Unlock()

	if closeErr != nil {
		return fmt.Errorf("failed to close server: %w", closeErr)
	}
	return nil
}

// IsRunning returns true if the broker is running.
func (b *Broker) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Publish publishes a message from the broker's inline client.
func (b *Broker) Publish(topic string, payload []byte, qos byte, retain bool) error {
	if !b.IsRunning() {
		return errors.New("broker is not running")
	}
	return b.server.Publish(topic, payload, retain, qos)
}

// Subscribe registers an in-process handler for messages matching filter.
func (b *Broker) Subscribe(filter string, handler SubscriptionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.internalSubscribers[filter] = append(b.internalSubscribers[filter], handler)
}

// Unsubscribe removes all in-process handlers for filter.
func (b *Broker) Unsubscribe(filter string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.internalSubscribers, filter)
}

func (b *Broker) notifySubscribers(topic string, payload []byte) {
	if b.stopping.Load() != 0 {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	for filter, handlers := range b.internalSubscribers {
		if MatchTopic(filter, topic) {
			for _, handler := range handlers {
				go handler(topic, payload)
			}
		}
	}
}

// ClientCount returns the number of currently attached clients.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.server == nil {
		return 0
	}
	// The inline client is registered alongside network clients.
	n := 0
	for _, cl := range b.server.Clients.GetAll() {
		if cl.Net.Inline {
			continue
		}
		n++
	}
	return n
}

// Stats returns a snapshot of the traffic seen so far.
func (b *Broker) Stats() Stats {
	stats := b.hook.snapshot()

	b.mu.RLock()
	stats.Running = b.running
	if b.running && !b.startedAt.IsZero() {
		stats.Uptime = time.Since(b.startedAt)
	}
	stats.Port = b.config.Port
	b.mu.RUnlock()

	return stats
}

// Port returns the configured listen port.
func (b *Broker) Port() int {
	return b.config.Port
}

// Address returns host:port suitable for dialing the broker, or "" when
// the broker is not running.
func (b *Broker) Address() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running {
		return ""
	}
	host := b.config.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(b.config.Port))
}

func (b *Broker) listenAddress() string {
	return net.JoinHostPort(b.config.Host, strconv.Itoa(b.config.Port))
}
