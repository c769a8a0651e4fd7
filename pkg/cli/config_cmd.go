package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/mqttswarm/pkg/cli/internal/output"
	"github.com/getmockd/mqttswarm/pkg/cliconfig"
)

// configRow is one line of the effective configuration.
type configRow struct {
	Key    string `json:"key"`
	Value  any    `json:"value"`
	Source string `json:"source"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration and where each value came from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rows := configRows(cfg)
		if jsonOutput {
			return output.JSON(cmd.OutOrStdout(), rows)
		}

		tw := output.Table(cmd.OutOrStdout())
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%v\t%s\n", r.Key, r.Value, r.Source)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			output.Warn(cmd.ErrOrStderr(), "configuration is invalid: %v", err)
		}
		return nil
	},
}

func configRows(cfg *cliconfig.Config) []configRow {
	source := func(key string) string {
		if s, ok := cfg.Sources[key]; ok {
			return s
		}
		return cliconfig.SourceDefault
	}
	dur := func(d time.Duration) string { return d.String() }
	password := ""
	if cfg.Password != "" {
		password = "********"
	}

	return []configRow{
		{"host", cfg.Host, source("host")},
		{"port", cfg.Port, source("port")},
		{"username", cfg.Username, source("username")},
		{"password", password, source("password")},
		{"keepAlive", dur(cfg.KeepAlive), source("keepAlive")},
		{"clients", cfg.Clients, source("clients")},
		{"spawnInterval", dur(cfg.SpawnInterval), source("spawnInterval")},
		{"interruptGrace", dur(cfg.InterruptGrace), source("interruptGrace")},
		{"signalInterval", dur(cfg.SignalInterval), source("signalInterval")},
		{"rosterFile", rosterPath(cfg), source("rosterFile")},
		{"embeddedBroker", cfg.EmbeddedBroker, source("embeddedBroker")},
		{"subscribeTopic", cfg.SubscribeTopic, source("subscribeTopic")},
		{"qos", cfg.QoS, source("qos")},
		{"waitForSubscription", cfg.WaitForSubscription, source("waitForSubscription")},
		{"subscriptionTimeout", dur(cfg.SubscriptionTimeout), source("subscriptionTimeout")},
		{"connectTimeout", dur(cfg.ConnectTimeout), source("connectTimeout")},
		{"publishTimeout", dur(cfg.PublishTimeout), source("publishTimeout")},
		{"catalog.messages", cfg.Catalog.Messages, source("catalog")},
		{"catalog.topics", cfg.Catalog.Topics, source("catalog")},
		{"logLevel", cfg.LogLevel, source("logLevel")},
		{"logFormat", cfg.LogFormat, source("logFormat")},
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
}
