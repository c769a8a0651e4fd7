package client

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/getmockd/mqttswarm/pkg/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func startBroker(t *testing.T) *broker.Broker {
	t.Helper()
	b, err := broker.NewBroker(&broker.Config{Host: "127.0.0.1", Port: getFreePort(t)})
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() {
		b.Stop(context.Background(), 5*time.Second)
	})
	return b
}

func testConfig(b *broker.Broker) Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           b.Port(),
		ConnectTimeout: 5 * time.Second,
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.KeepAlive)
	assert.Equal(t, "my/topic", cfg.SubscribeTopic)
	assert.True(t, strings.HasPrefix(cfg.ClientID, "mqttswarm-"))
	assert.Equal(t, "tcp://localhost:1883", cfg.BrokerURL())
}

func TestConfig_BrokerURL_IPv6(t *testing.T) {
	cfg := Config{Host: "::1", Port: 1883}
	assert.Equal(t, "tcp://[::1]:1883", cfg.BrokerURL())
}

func TestClient_ConnectUnreachable(t *testing.T) {
	c := New(Config{Host: "127.0.0.1", Port: getFreePort(t), ConnectTimeout: 2 * time.Second}, nil)

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnect)
	assert.Equal(t, StateDisconnected, c.State())

	assert.ErrorIs(t, c.Publish("sensors/home", "Doing"), ErrNotConnected)
}

func TestClient_ConnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Non-routable address keeps the dial pending until ctx wins.
	c := New(Config{Host: "10.255.255.1", Port: 1883, ConnectTimeout: 10 * time.Second}, nil)
	err := c.Connect(ctx)
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClient_PublishBeforeConnect(t *testing.T) {
	c := New(Config{}, nil)
	assert.ErrorIs(t, c.Publish("sensors/home", "Doing"), ErrNotConnected)
}

func TestClient_Lifecycle(t *testing.T) {
	b := startBroker(t)
	c := New(testConfig(b), nil)
	assert.Equal(t, StateDisconnected, c.State())

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, StateConnected, c.State())

	assert.ErrorIs(t, c.Connect(context.Background()), ErrAlreadyConnected)

	select {
	case <-c.Subscribed():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription was never acknowledged")
	}
	require.Eventually(t, func() bool {
		return b.Stats().ByFilter["my/topic"] == 1
	}, 5*time.Second, 20*time.Millisecond)

	c.Start()
	assert.True(t, c.Running())
	require.NoError(t, c.Publish("sensors/home", "Doing"))

	require.Eventually(t, func() bool {
		return b.Stats().ByTopic["sensors/home"] == 1
	}, 5*time.Second, 20*time.Millisecond)

	c.Stop()
	assert.False(t, c.Running())
	c.Disconnect()
	assert.Equal(t, StateDisconnected, c.State())

	// Disconnecting twice is harmless.
	c.Disconnect()
}

func TestClient_ReceivesOwnMessageOnSubscribedTopic(t *testing.T) {
	b := startBroker(t)
	c := New(testConfig(b), nil)

	received := make(chan Message, 1)
	c.OnMessage(func(m Message) { received <- m })

	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(c.Disconnect)
	<-c.Subscribed()

	c.Start()
	require.NoError(t, c.Publish("my/topic", "angola"))

	select {
	case m := <-received:
		assert.Equal(t, "my/topic", m.Topic)
		assert.Equal(t, "angola", string(m.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("message on subscribed topic never delivered")
	}
}

func TestClient_NoDeliveryWhileStopped(t *testing.T) {
	b := startBroker(t)
	c := New(testConfig(b), nil)

	received := make(chan Message, 4)
	c.OnMessage(func(m Message) { received <- m })

	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(c.Disconnect)
	<-c.Subscribed()

	require.NoError(t, b.Publish("my/topic", []byte("plant"), 0, false))

	select {
	case <-received:
		t.Fatal("message delivered before Start")
	case <-time.After(200 * time.Millisecond):
	}

	c.Start()
	select {
	case m := <-received:
		assert.Equal(t, "plant", string(m.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("queued message not delivered after Start")
	}
}

func TestClient_DisconnectStopsLoop(t *testing.T) {
	b := startBroker(t)
	c := New(testConfig(b), nil)
	require.NoError(t, c.Connect(context.Background()))

	c.Start()
	c.Start() // idempotent
	c.Disconnect()

	assert.False(t, c.Running())
	assert.Equal(t, StateDisconnected, c.State())
	require.Eventually(t, func() bool {
		return b.Stats().Disconnects == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "unknown", State(42).String())
}
