package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/getmockd/mqttswarm/pkg/driver"
)

var stopRoster string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running swarm",
	Long: `Stop the swarm recorded in the run roster.

A running driver is interrupted and stops its own workers. Workers left behind
by a driver that is gone are interrupted directly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := resolveRosterPath(cmd, stopRoster)
		if err != nil {
			return err
		}

		log := newLogger(logLevel, logFormat, cmd.ErrOrStderr())
		res, err := driver.Stop(path, log)
		if errors.Is(err, driver.ErrNoRoster) {
			return ErrSwarmNotRunning
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(cmd, res)
		}
		if res.DriverStopped {
			printf(cmd, "Interrupted driver (PID %d)\n", res.Roster.PID)
		}
		for _, w := range res.Workers {
			printf(cmd, "Interrupted worker %d (PID %d)\n", w.Index, w.PID)
		}
		if !res.DriverStopped && len(res.Workers) == 0 {
			printf(cmd, "Swarm had already finished; removed stale roster\n")
		}
		return nil
	},
}

// resolveRosterPath picks the roster from the flag, then config, then the default.
func resolveRosterPath(cmd *cobra.Command, flagValue string) (string, error) {
	if cmd.Flags().Changed("roster") {
		return flagValue, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return rosterPath(cfg), nil
}

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().StringVar(&stopRoster, "roster", "", "Path to the run roster (default: $TMPDIR/mqttswarm/mqttswarm.pid)")
}
