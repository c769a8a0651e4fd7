package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/mqttswarm/pkg/cli/internal/output"
	"github.com/getmockd/mqttswarm/pkg/driver"
)

// StatusOutput represents the JSON output format for status.
type StatusOutput struct {
	RunID   string         `json:"runId"`
	Running bool           `json:"running"`
	PID     int            `json:"pid"`
	Uptime  string         `json:"uptime"`
	Broker  string         `json:"broker,omitempty"`
	Clients int            `json:"clients"`
	Workers []WorkerStatus `json:"workers"`
}

// WorkerStatus is the state of one started worker.
type WorkerStatus struct {
	Index int  `json:"index"`
	PID   int  `json:"pid"`
	Alive bool `json:"alive"`
}

var statusRoster string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running swarm",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := resolveRosterPath(cmd, statusRoster)
		if err != nil {
			return err
		}

		r, err := driver.ReadRoster(path)
		if errors.Is(err, driver.ErrNoRoster) {
			return ErrSwarmNotRunning
		}
		if err != nil {
			return err
		}

		out := buildStatus(r)
		if jsonOutput {
			return writeJSON(cmd, out)
		}

		state := "running"
		if !out.Running {
			state = "not running (stale roster)"
		}
		printf(cmd, "Run %s: driver PID %d %s, up %s\n", out.RunID, out.PID, state, out.Uptime)
		if out.Broker != "" {
			printf(cmd, "Broker: %s\n", out.Broker)
		}
		printf(cmd, "Workers started: %d of %d\n\n", len(out.Workers), out.Clients)

		tw := output.Table(cmd.OutOrStdout())
		fmt.Fprintln(tw, "WORKER\tPID\tSTATE")
		for _, w := range out.Workers {
			s := "exited"
			if w.Alive {
				s = "alive"
			}
			fmt.Fprintf(tw, "%d\t%d\t%s\n", w.Index, w.PID, s)
		}
		return tw.Flush()
	},
}

func buildStatus(r *driver.Roster) StatusOutput {
	alive := make(map[int]bool)
	for _, w := range r.AliveWorkers() {
		alive[w.PID] = true
	}

	out := StatusOutput{
		RunID:   r.RunID,
		Running: r.IsRunning(),
		PID:     r.PID,
		Uptime:  r.FormatUptime(),
		Broker:  r.Broker,
		Clients: r.Clients,
		Workers: make([]WorkerStatus, 0, len(r.Workers)),
	}
	for _, w := range r.Workers {
		out.Workers = append(out.Workers, WorkerStatus{Index: w.Index, PID: w.PID, Alive: alive[w.PID]})
	}
	return out
}

func writeJSON(cmd *cobra.Command, v any) error {
	return output.JSON(cmd.OutOrStdout(), v)
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusRoster, "roster", "", "Path to the run roster (default: $TMPDIR/mqttswarm/mqttswarm.pid)")
}
