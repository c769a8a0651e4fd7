package performance

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"testing"
	"time"

	"github.com/getmockd/mqttswarm/pkg/broker"
	"github.com/getmockd/mqttswarm/pkg/catalog"
	"github.com/getmockd/mqttswarm/pkg/client"
	"github.com/getmockd/mqttswarm/pkg/worker"
)

func setupBenchBroker(b *testing.B) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		b.Fatalf("failed to find free port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	brk, err := broker.NewBroker(&broker.Config{Host: "127.0.0.1", Port: port})
	if err != nil {
		b.Fatalf("failed to create broker: %v", err)
	}
	if err := brk.Start(context.Background()); err != nil {
		b.Fatalf("failed to start broker: %v", err)
	}
	b.Cleanup(func() {
		brk.Stop(context.Background(), time.Second)
	})
	return port
}

func benchOptions(port int) worker.Options {
	return worker.Options{
		Client: client.Config{
			Host:              "127.0.0.1",
			Port:              port,
			DisconnectQuiesce: time.Millisecond,
		},
		Stdout: io.Discard,
		Index:  1,
	}
}

// BenchmarkSession_Sequential measures one full worker session:
// connect, subscribe, publish, disconnect.
func BenchmarkSession_Sequential(b *testing.B) {
	port := setupBenchBroker(b)
	opts := benchOptions(port)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := worker.Run(ctx, opts); err != nil {
			b.Fatalf("session failed: %v", err)
		}
	}
}

// BenchmarkSession_WaitSubscribed measures a session that waits for its SUBACK.
func BenchmarkSession_WaitSubscribed(b *testing.B) {
	port := setupBenchBroker(b)
	opts := benchOptions(port)
	opts.WaitForSubscription = true
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := worker.Run(ctx, opts); err != nil {
			b.Fatalf("session failed: %v", err)
		}
	}
}

// BenchmarkSession_Parallel measures concurrent sessions against one broker.
func BenchmarkSession_Parallel(b *testing.B) {
	port := setupBenchBroker(b)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		opts := benchOptions(port)
		for pb.Next() {
			if err := worker.Run(ctx, opts); err != nil {
				b.Errorf("session failed: %v", err)
				return
			}
		}
	})
}

// BenchmarkClient_PublishQoS measures publish rate on one connection.
func BenchmarkClient_PublishQoS(b *testing.B) {
	port := setupBenchBroker(b)

	for _, qos := range []byte{0, 1, 2} {
		b.Run(fmt.Sprintf("QoS%d", qos), func(b *testing.B) {
			c := client.New(client.Config{Host: "127.0.0.1", Port: port, QoS: qos}, nil)
			if err := c.Connect(context.Background()); err != nil {
				b.Fatalf("connect: %v", err)
			}
			defer c.Disconnect()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := c.Publish("bench/topic", "Doing"); err != nil {
					b.Fatalf("publish: %v", err)
				}
			}
		})
	}
}

// BenchmarkCatalog_Pick measures the random message and topic choice.
func BenchmarkCatalog_Pick(b *testing.B) {
	c := catalog.Default()
	r := rand.New(rand.NewPCG(1, 2))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Pick(r)
	}
}
