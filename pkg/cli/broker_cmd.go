package cli

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/mqttswarm/pkg/broker"
	"github.com/getmockd/mqttswarm/pkg/cli/internal/output"
	"github.com/getmockd/mqttswarm/pkg/cliconfig"
)

var (
	brokerHost string
	brokerPort int
)

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Run the embedded MQTT broker until interrupted",
	Long: `Run an in-process MQTT broker that accepts every client.

Useful as a local target for 'mqttswarm run'. Traffic counters are printed
when the broker stops.`,
	Example: `  # Listen on localhost:1883
  mqttswarm broker

  # Listen on all interfaces, port 11883
  mqttswarm broker --host 0.0.0.0 --port 11883`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Host = brokerHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = brokerPort
		}

		log := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		b, err := broker.NewBroker(&broker.Config{Host: cfg.Host, Port: cfg.Port}, broker.WithLogger(log))
		if err != nil {
			return err
		}
		if err := b.Start(ctx); err != nil {
			return fmt.Errorf("failed to start broker: %w", err)
		}
		printf(cmd, "MQTT broker listening on %s (Ctrl+C to stop)\n", b.Address())

		<-ctx.Done()

		if err := b.Stop(context.Background(), 5*time.Second); err != nil {
			output.Warn(cmd.ErrOrStderr(), "broker shutdown: %v", err)
		}
		return printBrokerStats(cmd, b.Stats())
	},
}

func printBrokerStats(cmd *cobra.Command, stats broker.Stats) error {
	if jsonOutput {
		return output.JSON(cmd.OutOrStdout(), stats)
	}

	printf(cmd, "\nConnects: %d  Disconnects: %d  Subscriptions: %d  Publishes: %d\n",
		stats.Connects, stats.Disconnects, stats.Subscriptions, stats.Publishes)
	if len(stats.ByTopic) == 0 {
		return nil
	}
	tw := output.Table(cmd.OutOrStdout())
	fmt.Fprintln(tw, "TOPIC\tPUBLISHES")
	for _, topic := range slices.Sorted(maps.Keys(stats.ByTopic)) {
		fmt.Fprintf(tw, "%s\t%d\n", topic, stats.ByTopic[topic])
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(brokerCmd)
	brokerCmd.Flags().StringVar(&brokerHost, "host", cliconfig.DefaultHost, "Listen host")
	brokerCmd.Flags().IntVarP(&brokerPort, "port", "p", cliconfig.DefaultPort, "Listen port")
}
