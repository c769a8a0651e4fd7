package client

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

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/getmockd/mqttswarm/pkg/catalog"
	"github.com/getmockd/mqttswarm/pkg/logging"
	"github.com/google/uuid"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultHost              = "localhost"
	DefaultPort              = 1883
	DefaultKeepAlive         = 60 * time.Second
	DefaultConnectTimeout    = 10 * time.Second
	DefaultPublishTimeout    = 5 * time.Second
	DefaultDisconnectQuiesce = 250 * time.Millisecond

	// inboundBuffer bounds messages queued while the delivery loop is stopped.
	inboundBuffer = 64
)

var (
	// ErrConnect is returned when the broker cannot be reached or refuses the connection.
	ErrConnect = errors.New("connect failed")
	// ErrAlreadyConnected is returned by Connect on a client that is not disconnected.
	ErrAlreadyConnected = errors.New("client already connected")
	// ErrNotConnected is returned by Publish before Connect succeeds.
	ErrNotConnected = errors.New("client not connected")
	// ErrPublishTimeout is returned when a publish is not handed to the network in time.
	ErrPublishTimeout = errors.New("publish timed out")
)

// Config configures a Client.
type Config struct {
	Host              string        `json:"host" yaml:"host"`
	Port              int           `json:"port" yaml:"port"`
	ClientID          string        `json:"clientId,omitempty" yaml:"clientId,omitempty"`
	Username          string        `json:"username,omitempty" yaml:"username,omitempty"`
	Password          string        `json:"password,omitempty" yaml:"password,omitempty"`
	KeepAlive         time.Duration `json:"keepAlive" yaml:"keepAlive"`
	SubscribeTopic    string        `json:"subscribeTopic" yaml:"subscribeTopic"`
	QoS               byte          `json:"qos" yaml:"qos"`
	ConnectTimeout    time.Duration `json:"connectTimeout" yaml:"connectTimeout"`
	PublishTimeout    time.Duration `json:"publishTimeout" yaml:"publishTimeout"`
	DisconnectQuiesce time.Duration `json:"disconnectQuiesce" yaml:"disconnectQuiesce"`
}

// BrokerURL returns the tcp:// URL paho dials.
func (c Config) BrokerURL() string {
	return "tcp://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = DefaultKeepAlive
	}
	if c.SubscribeTopic == "" {
		c.SubscribeTopic = catalog.DefaultSubscribeTopic
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.PublishTimeout < 0 {
		c.PublishTimeout = 0
	}
	if c.DisconnectQuiesce <= 0 {
		c.DisconnectQuiesce = DefaultDisconnectQuiesce
	}
	if c.ClientID == "" {
		c.ClientID = "mqttswarm-" + uuid.NewString()[:8]
	}
	return c
}

// Message is an inbound message delivered by the broker.
type Message struct {
	Topic   string
	Payload []byte
}

// MessageHandler is invoked by the delivery loop for every inbound message.
type MessageHandler func(Message)

// Client owns one MQTT connection.
type Client struct {
	cfg  Config
	conn paho.Client
	log  *slog.Logger

	state   atomic.Int32
	inbound chan Message
	dropped atomic.Int64

	mu          sync.Mutex
	onMessage   MessageHandler
	loopDone    chan struct{}
	loopStopped chan struct{}
	subscribed  chan struct{}
	subOnce     *sync.Once
}

// New creates a client for cfg. No network activity happens until Connect.
func New(cfg Config, log *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:     cfg,
		log:     logging.OrNop(log).With("clientId", cfg.ClientID),
		inbound: make(chan Message, inboundBuffer),
	}
	c.onMessage = c.logMessage
	c.resetSubscribed()

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetClientID(cfg.ClientID)
	opts.SetProtocolVersion(4)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(c.handleConnect)
	opts.SetConnectionLostHandler(c.handleConnectionLost)
	opts.SetDefaultPublishHandler(c.enqueue)

	c.conn = paho.NewClient(opts)
	return c
}

// Config returns the effective configuration, defaults applied.
func (c *Client) Config() Config {
	return c.cfg
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// OnMessage replaces the handler the delivery loop calls for inbound messages.
// The default handler logs the topic and payload text.
func (c *Client) OnMessage(h MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h == nil {
		h = c.logMessage
	}
	c.onMessage = h
}

// Subscribed returns a channel closed once the broker acknowledges the
// subscription made on connect.
func (c *Client) Subscribed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed
}

// Dropped returns the number of inbound messages discarded because the
// delivery queue was full.
func (c *Client) Dropped() int64 {
	return c.dropped.Load()
}

// Connect opens the connection and blocks until the broker answers,
// the connect timeout expires, or ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}
	c.resetSubscribed()

	c.log.Debug("connecting", "broker", c.cfg.BrokerURL(), "keepAlive", c.cfg.KeepAlive)
	token := c.conn.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		c.conn.Disconnect(0)
		c.state.Store(int32(StateDisconnected))
		return ctx.Err()
	}

	if err := token.Error(); err != nil {
		c.state.Store(int32(StateDisconnected))
		code := byte(packets.ErrNetworkError)
		if ct, ok := token.(*paho.ConnectToken); ok {
			code = ct.ReturnCode()
		}
		c.log.Error("connection failed", "broker", c.cfg.BrokerURL(), "code", code, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrConnect, c.cfg.BrokerURL(), err)
	}

	// The connection-lost handler may already have run.
	c.state.CompareAndSwap(int32(StateConnecting), int32(StateConnected))
	return nil
}

// Start begins delivering inbound messages to the message handler.
// It does not block and is a no-op if the loop is already running.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loopDone != nil {
		return
	}
	c.loopDone = make(chan struct{})
	c.loopStopped = make(chan struct{})
	go c.deliver(c.loopDone, c.loopStopped)
}

// Stop halts the delivery loop and waits for it to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	done, stopped := c.loopDone, c.loopStopped
	c.loopDone, c.loopStopped = nil, nil
	c.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	<-stopped
}

// Running reports whether the delivery loop is running.
func (c *Client) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loopDone != nil
}

// Publish sends message to topic. Delivery is not confirmed; with a non-zero
// PublishTimeout it waits only for the packet to be handed to the network.
func (c *Client) Publish(topic, message string) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}

	token := c.conn.Publish(topic, c.cfg.QoS, false, message)
	if c.cfg.PublishTimeout == 0 {
		return nil
	}
	if !token.WaitTimeout(c.cfg.PublishTimeout) {
		return fmt.Errorf("publish to %q: %w", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %q: %w", topic, err)
	}
	return nil
}

// Disconnect closes the connection. The delivery loop should be stopped
// first; if it is still running it is stopped here.
func (c *Client) Disconnect() {
	c.Stop()

	if c.state.Swap(int32(StateDisconnected)) == int32(StateDisconnected) {
		return
	}
	c.conn.Disconnect(uint(c.cfg.DisconnectQuiesce / time.Millisecond))
	c.log.Debug("disconnected")
}

func (c *Client) handleConnect(conn paho.Client) {
	c.log.Info("Connected with result code", "code", packets.Accepted)

	c.mu.Lock()
	once, subscribed := c.subOnce, c.subscribed
	c.mu.Unlock()

	token := conn.Subscribe(c.cfg.SubscribeTopic, c.cfg.QoS, nil)
	go func() {
		// A lost connection completes the token with an error, so this never leaks.
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.Warn("subscribe failed", "topic", c.cfg.SubscribeTopic, "error", err)
			return
		}
		c.log.Debug("subscribed", "topic", c.cfg.SubscribeTopic)
		once.Do(func() { close(subscribed) })
	}()
}

func (c *Client) handleConnectionLost(_ paho.Client, err error) {
	c.state.Store(int32(StateDisconnected))
	c.log.Warn("connection lost", "error", err)
}

func (c *Client) enqueue(_ paho.Client, msg paho.Message) {
	m := Message{Topic: msg.Topic(), Payload: msg.Payload()}
	select {
	case c.inbound <- m:
	default:
		c.dropped.Add(1)
	}
}

func (c *Client) deliver(done, stopped chan struct{}) {
	defer close(stopped)
	for {
		select {
		case <-done:
			return
		case m := <-c.inbound:
			c.mu.Lock()
			h := c.onMessage
			c.mu.Unlock()
			h(m)
		}
	}
}

func (c *Client) logMessage(m Message) {
	c.log.Info("Received message", "topic", m.Topic, "message", string(m.Payload))
}

func (c *Client) resetSubscribed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = make(chan struct{})
	c.subOnce = new(sync.Once)
}
