package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getmockd/mqttswarm/pkg/worker"
)

var workerIndex int

var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Run a single worker session",
	Long:   "Run a single worker session using the assignment in " + worker.EnvAssignment + ". Started by 'mqttswarm run'.",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if workerIndex < 1 {
			return fmt.Errorf("%w, got %d", ErrInvalidIndex, workerIndex)
		}

		a, err := worker.AssignmentFromEnv()
		if err != nil {
			return err
		}

		level, format := a.LogLevel, a.LogFormat
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			format = logFormat
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := a.Options(workerIndex)
		opts.Stdout = cmd.OutOrStdout()
		opts.Logger = newLogger(level, format, cmd.ErrOrStderr())
		return worker.Run(ctx, opts)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().IntVar(&workerIndex, "index", 1, "1-based position of this worker in the run")
}
