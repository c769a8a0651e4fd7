package e2e_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/getmockd/mqttswarm/pkg/catalog"
	"github.com/getmockd/mqttswarm/pkg/client"
	"github.com/getmockd/mqttswarm/pkg/worker"
)

// startMosquitto runs an Eclipse Mosquitto broker that accepts anonymous clients.
func startMosquitto(t *testing.T) (string, int) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "eclipse-mosquitto:2",
			ExposedPorts: []string{"1883/tcp"},
			Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
			WaitingFor:   wait.ForListeningPort("1883/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	}

	container, err := testcontainers.GenericContainer(ctx, req)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "1883/tcp")
	require.NoError(t, err)

	return host, port.Int()
}

func TestMosquittoCompat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	host, port := startMosquitto(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// An observer subscribed to every catalog topic sees the worker's publish.
	seen := make(chan client.Message, 4)
	observer := client.New(client.Config{Host: host, Port: port, SubscribeTopic: "#"}, nil)
	observer.OnMessage(func(m client.Message) { seen <- m })
	require.NoError(t, observer.Connect(ctx))
	observer.Start()
	defer observer.Disconnect()

	select {
	case <-observer.Subscribed():
	case <-ctx.Done():
		t.Fatal("observer subscription not acknowledged")
	}

	var out bytes.Buffer
	err := worker.Run(ctx, worker.Options{
		Client:              client.Config{Host: host, Port: port},
		WaitForSubscription: true,
		Stdout:              &out,
		Index:               1,
	})
	require.NoError(t, err)

	message := strings.TrimPrefix(strings.TrimSpace(out.String()), "Published ")
	assert.Contains(t, catalog.Default().Messages, message)

	select {
	case m := <-seen:
		assert.Contains(t, catalog.Default().Topics, m.Topic)
		assert.Equal(t, message, string(m.Payload))
	case <-ctx.Done():
		t.Fatal("observer never received the publish")
	}
}

func TestMosquittoCompat_ManyWorkers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	host, port := startMosquitto(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for i := 1; i <= 5; i++ {
		var out bytes.Buffer
		err := worker.Run(ctx, worker.Options{
			Client: client.Config{Host: host, Port: port},
			Stdout: &out,
			Index:  i,
		})
		require.NoError(t, err, "worker %d", i)
		assert.True(t, strings.HasPrefix(out.String(), "Published "), "worker %d: %q", i, out.String())
	}
}
