package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/getmockd/mqttswarm/pkg/catalog"
	"github.com/getmockd/mqttswarm/pkg/client"
	"github.com/getmockd/mqttswarm/pkg/logging"
)

// DefaultSubscriptionTimeout bounds the SUBACK wait when WaitForSubscription is set.
const DefaultSubscriptionTimeout = 5 * time.Second

// ErrSubscriptionTimeout is returned when the broker does not acknowledge the
// subscription within SubscriptionTimeout.
var ErrSubscriptionTimeout = errors.New("subscription not acknowledged")

// Options configures one session.
type Options struct {
	Client  client.Config
	Catalog catalog.Catalog

	// Rand is the source for the message and topic pick. Nil uses a fresh
	// randomly seeded source.
	Rand *rand.Rand

	// WaitForSubscription delays the publish until the SUBACK for the
	// subscribe topic arrives. When false the publish races the subscription.
	WaitForSubscription bool
	SubscriptionTimeout time.Duration

	// Stdout receives the "Published <message>" line. Defaults to os.Stdout.
	Stdout io.Writer
	Logger *slog.Logger

	// Index is the 1-based position of this worker in the run.
	Index int
}

func (o Options) withDefaults() Options {
	if o.Catalog.IsEmpty() {
		o.Catalog = catalog.Default()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.SubscriptionTimeout <= 0 {
		o.SubscriptionTimeout = DefaultSubscriptionTimeout
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	return o
}

// Run executes one session and returns the first error. The client is always
// stopped and disconnected before Run returns.
func Run(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()
	log := logging.ForWorker(opts.Logger, opts.Index)

	c := client.New(opts.Client, log)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Disconnect()

	c.Start()

	if opts.WaitForSubscription {
		if err := waitSubscribed(ctx, c, opts.SubscriptionTimeout); err != nil {
			return err
		}
	}

	topic, message := opts.Catalog.Pick(opts.Rand)
	if err := c.Publish(topic, message); err != nil {
		return err
	}
	fmt.Fprintf(opts.Stdout, "Published %s\n", message)
	log.Debug("published", "topic", topic, "message", message)

	c.Stop()
	return nil
}

func waitSubscribed(ctx context.Context, c *client.Client, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.Subscribed():
		return nil
	case <-timer.C:
		return fmt.Errorf("%w on %q after %s", ErrSubscriptionTimeout, c.Config().SubscribeTopic, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
