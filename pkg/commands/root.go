// Package commands provides CLI command implementations.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"SystemMonitor/pkg/config"
	"SystemMonitor/pkg/logging"
)

// Cfg is the shared configuration instance.
var Cfg = config.New()

var cfgFile string

// NewRootCmd creates the root command with all subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sysmon",
		Short: "Host CPU, memory, process and network monitor",
		Long: `SystemMonitor samples OS counters at a fixed interval and turns them into
rates: CPU utilization per core and per process, memory usage and network
throughput per interface.

Commands:
  snapshot   Capture computed snapshots and write them to a file
  watch      Live terminal summary until interrupted (Ctrl+C)
  serve      Expose the monitor's own health and metrics over HTTP

Every flag can also be set in a config file (--config) or through a
SYSMON_<KEY> environment variable, e.g. SYSMON_INTERVAL=500ms.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	Cfg.AddLoggingFlags(root)

	root.AddCommand(
		NewSnapshotCmd(),
		NewWatchCmd(),
		NewServeCmd(),
	)

	return root
}

// loadConfig merges file, environment and flags into Cfg and sets up logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	*Cfg = *loaded

	return logging.Init(Cfg.LogLevel, Cfg.LogFormat, os.Stderr)
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		log := logging.Get()
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
