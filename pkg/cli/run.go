package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/mqttswarm/pkg/broker"
	"github.com/getmockd/mqttswarm/pkg/cliconfig"
	"github.com/getmockd/mqttswarm/pkg/driver"
	"github.com/getmockd/mqttswarm/pkg/worker"
)

var (
	runClients        int
	runHost           string
	runPort           int
	runSpawnInterval  time.Duration
	runWaitSubscribed bool
	runEmbedded       bool
	runRoster         string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Spawn the worker processes (default command)",
	Long: `Spawn the worker processes, one per spawn interval, and wait for them to finish.

Every worker connects to the broker, subscribes to the subscribe topic,
publishes one random message from the catalog to a random catalog topic,
prints "Published <message>" and disconnects.

On Ctrl+C the run pauses for the interrupt grace period, then interrupts every
worker it started, one at a time.`,
	Example: `  # 20 workers against localhost:1883, one per second
  mqttswarm

  # 5 workers against a remote broker, waiting for the SUBACK before publishing
  mqttswarm run --clients 5 --host broker.local --wait-subscribed

  # Run against an in-process broker
  mqttswarm run --embedded-broker --port 11883 --spawn-interval 100ms`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runClients, "clients", "n", cliconfig.DefaultClients, "Number of worker processes")
	runCmd.Flags().StringVar(&runHost, "host", cliconfig.DefaultHost, "Broker host")
	runCmd.Flags().IntVarP(&runPort, "port", "p", cliconfig.DefaultPort, "Broker port")
	runCmd.Flags().DurationVar(&runSpawnInterval, "spawn-interval", cliconfig.DefaultSpawnInterval, "Pause after each spawn")
	runCmd.Flags().BoolVar(&runWaitSubscribed, "wait-subscribed", false, "Publish only after the subscription is acknowledged")
	runCmd.Flags().BoolVar(&runEmbedded, "embedded-broker", false, "Start an in-process broker on host:port for the run")
	runCmd.Flags().StringVar(&runRoster, "roster", "", "Path to the run roster (default: $TMPDIR/mqttswarm/mqttswarm.pid)")
}

// applyRunFlags overrides config values with flags the user actually set.
func applyRunFlags(cmd *cobra.Command, cfg *cliconfig.Config) {
	flags := cmd.Flags()
	if flags.Changed("clients") {
		cfg.Clients = runClients
		cfg.Sources["clients"] = cliconfig.SourceFlag
	}
	if flags.Changed("host") {
		cfg.Host = runHost
		cfg.Sources["host"] = cliconfig.SourceFlag
	}
	if flags.Changed("port") {
		cfg.Port = runPort
		cfg.Sources["port"] = cliconfig.SourceFlag
	}
	if flags.Changed("spawn-interval") {
		cfg.SpawnInterval = runSpawnInterval
		cfg.Sources["spawnInterval"] = cliconfig.SourceFlag
	}
	if flags.Changed("wait-subscribed") {
		cfg.WaitForSubscription = runWaitSubscribed
		cfg.Sources["waitForSubscription"] = cliconfig.SourceFlag
	}
	if flags.Changed("embedded-broker") {
		cfg.EmbeddedBroker = runEmbedded
		cfg.Sources["embeddedBroker"] = cliconfig.SourceFlag
	}
	if flags.Changed("roster") {
		cfg.RosterFile = runRoster
		cfg.Sources["rosterFile"] = cliconfig.SourceFlag
	}
}

func rosterPath(cfg *cliconfig.Config) string {
	if cfg.RosterFile != "" {
		return cfg.RosterFile
	}
	return driver.DefaultRosterPath()
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.EmbeddedBroker {
		b, err := broker.NewBroker(&broker.Config{Host: cfg.Host, Port: cfg.Port}, broker.WithLogger(log.With("component", "broker")))
		if err != nil {
			return err
		}
		if err := b.Start(ctx); err != nil {
			return fmt.Errorf("failed to start embedded broker: %w", err)
		}
		defer func() {
			stats := b.Stats()
			log.Info("embedded broker stopping", "connects", stats.Connects, "publishes", stats.Publishes, "subscriptions", stats.Subscriptions)
			_ = b.Stop(context.Background(), 5*time.Second)
		}()
	}

	spawner := &driver.ExecSpawner{
		Assignment: worker.Assignment{
			Client:              cfg.ClientConfig(),
			Catalog:             cfg.Catalog.Clone(),
			WaitForSubscription: cfg.WaitForSubscription,
			SubscriptionTimeout: cfg.SubscriptionTimeout,
			LogLevel:            cfg.LogLevel,
			LogFormat:           cfg.LogFormat,
		},
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}

	d := driver.New(driver.Config{
		Clients:        cfg.Clients,
		SpawnInterval:  cfg.SpawnInterval,
		InterruptGrace: cfg.InterruptGrace,
		SignalInterval: cfg.SignalInterval,
		RosterPath:     rosterPath(cfg),
		Broker:         cfg.BrokerAddress(),
		Stdout:         cmd.OutOrStdout(),
	}, spawner, driver.WithLogger(log))

	err = d.Run(ctx)
	if errors.Is(err, driver.ErrInterrupted) {
		// An operator interrupt is a normal way to end a run.
		log.Info("run interrupted", "workers", len(d.Handles()))
		return nil
	}
	return err
}
