package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/getmockd/mqttswarm/pkg/cliconfig"
	"github.com/getmockd/mqttswarm/pkg/logging"
)

var (
	// Persistent flags available to all subcommands
	logLevel   string
	logFormat  string
	configPath string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mqttswarm",
	Short: "mqttswarm spawns short-lived MQTT clients against a broker",
	Long: `mqttswarm is a load-generation and smoke-test harness for MQTT brokers.
It starts a fixed number of worker processes, one per spawn interval. Each
worker connects, subscribes to my/topic, publishes one random canned message
to a random canned topic and disconnects.

Configuration can be provided via flags, MQTTSWARM_* environment variables,
or a config file (.mqttswarm.yaml in the current directory, or
~/.config/mqttswarm/config.yaml).`,
	SilenceUsage:  true,
	SilenceErrors: true, // main prints errors
}

// Execute runs the command line with args and returns the command error.
// With no subcommand, or with only flags, the run command is used.
func Execute(args []string) error {
	rootCmd.Version = resolveBuildInfo().Version
	rootCmd.SetArgs(defaultToRun(args))
	return rootCmd.Execute()
}

func defaultToRun(args []string) []string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-h", "--help", "-v", "--version", "help", "completion", "__complete", "__completeNoDesc":
			return args
		case "--":
			return append([]string{"run"}, args...)
		}

		if !strings.HasPrefix(arg, "-") {
			if isSubcommand(arg) {
				return args
			}
			break
		}

		// Leading persistent flags may precede the subcommand.
		flag, inline := persistentFlag(arg)
		if flag == nil {
			break
		}
		if !inline && flag.NoOptDefVal == "" {
			i++
		}
	}
	return append([]string{"run"}, args...)
}

func isSubcommand(name string) bool {
	for _, c := range rootCmd.Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return true
		}
	}
	return false
}

// persistentFlag looks up a root persistent flag from its command-line form.
// inline reports whether the value is attached, as in --config=x or -cx.
func persistentFlag(arg string) (*pflag.Flag, bool) {
	flags := rootCmd.PersistentFlags()
	if name, ok := strings.CutPrefix(arg, "--"); ok {
		name, _, inline := strings.Cut(name, "=")
		return flags.Lookup(name), inline
	}
	short := strings.TrimPrefix(arg, "-")
	if short == "" {
		return nil, false
	}
	return flags.ShorthandLookup(short[:1]), len(short) > 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config: info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (default from config: text)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}

// loadConfig resolves the layered configuration and applies the persistent
// logging flags on top.
func loadConfig(cmd *cobra.Command) (*cliconfig.Config, error) {
	cfg, err := cliconfig.LoadAll(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
		cfg.Sources["logLevel"] = cliconfig.SourceFlag
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
		cfg.Sources["logFormat"] = cliconfig.SourceFlag
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger. Logs go to stderr so that stdout
// only carries the console lines of the run.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(level),
		Format: logging.ParseFormat(format),
		Output: w,
	})
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
