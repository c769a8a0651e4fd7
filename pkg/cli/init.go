package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/getmockd/mqttswarm/pkg/cliconfig"
)

var (
	initForce       bool
	initOutput      string
	initGlobal      bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter config file",
	Long: `Create a starter mqttswarm config file holding every setting at its default.

The file is picked up automatically when it is named .mqttswarm.yaml and sits
in the directory mqttswarm runs from, or with --global in the user config
directory.`,
	Example: `  # Create .mqttswarm.yaml
  mqttswarm init

  # Prompt for broker and run settings
  mqttswarm init -i

  # Write the global config
  mqttswarm init --global`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := initOutput
		if initGlobal {
			dir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("failed to locate user config directory: %w", err)
			}
			path = filepath.Join(dir, cliconfig.GlobalConfigDir, cliconfig.GlobalConfigFileNames[0])
		}

		cfg := cliconfig.NewDefault()
		if initInteractive {
			if err := promptConfig(cfg); err != nil {
				return err
			}
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if err := cliconfig.WriteConfigFile(path, cfg, initForce); err != nil {
			return err
		}
		printf(cmd, "Created %s\n", path)
		return nil
	},
}

func promptConfig(cfg *cliconfig.Config) error {
	portStr := strconv.Itoa(cfg.Port)
	clientsStr := strconv.Itoa(cfg.Clients)
	intervalStr := cfg.SpawnInterval.String()
	waitSubscribed := cfg.WaitForSubscription

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Broker host").
				Value(&cfg.Host).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("host is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Broker port").
				Value(&portStr).
				Validate(func(s string) error {
					p, err := strconv.Atoi(s)
					if err != nil || p < 1 || p > 65535 {
						return errors.New("port must be between 1 and 65535")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("How many workers should a run start?").
				Value(&clientsStr).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 {
						return errors.New("must be a positive number")
					}
					return nil
				}),
			huh.NewInput().
				Title("Pause after each spawn").
				Placeholder("1s").
				Value(&intervalStr).
				Validate(func(s string) error {
					d, err := time.ParseDuration(s)
					if err != nil || d < 0 {
						return errors.New("must be a duration such as 1s or 250ms")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Wait for the subscription before publishing?").
				Value(&waitSubscribed),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	// The validators above guarantee these parse.
	cfg.Port, _ = strconv.Atoi(portStr)
	cfg.Clients, _ = strconv.Atoi(clientsStr)
	cfg.SpawnInterval, _ = time.ParseDuration(intervalStr)
	cfg.WaitForSubscription = waitSubscribed
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	initCmd.Flags().StringVarP(&initOutput, "output", "o", cliconfig.LocalConfigFileNames[0], "Output filename")
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "Write the global config file instead")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the main settings")
	initCmd.MarkFlagsMutuallyExclusive("output", "global")
}
