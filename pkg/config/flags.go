package config

import (
	"github.com/spf13/cobra"
)

// AddCollectionFlags adds sampling flags to a command.
func (c *Config) AddCollectionFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.DurationVarP(&c.Interval, "interval", "i", c.Interval, "Sampling interval")
	flags.StringSliceVarP(&c.Categories, "categories", "c", c.Categories, "Metric categories (cpu, memory, network, processes)")
	flags.StringVar(&c.CPUNormalization, "cpu-normalization", c.CPUNormalization, "Process CPU normalization (per-core, whole-machine)")
	flags.IntVar(&c.ProcessWorkers, "process-workers", c.ProcessWorkers, "Goroutines querying processes (0 or 1 for sequential)")
	flags.BoolVar(&c.ConcurrentReaders, "concurrent-readers", c.ConcurrentReaders, "Run the host, process and network readers concurrently")
	flags.StringVar(&c.Adapter, "adapter", c.Adapter, "Counter source (auto, procfs, gopsutil)")
	flags.StringVar(&c.ProcRoot, "proc-root", c.ProcRoot, "Mount point of the proc filesystem for the procfs adapter")
}

// AddOutputFlags adds snapshot output flags to a command.
func (c *Config) AddOutputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&c.OutputFormat, "format", "f", c.OutputFormat, "Output format (json, yaml, csv, tsv, parquet)")
	flags.StringVarP(&c.OutputFile, "output", "o", c.OutputFile, "Output file (stdout if empty)")
}

// AddDisplayFlags adds terminal display flags to a command.
func (c *Config) AddDisplayFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&c.TopN, "top", "n", c.TopN, "Number of processes to show")
}

// AddServeFlags adds HTTP listener flags to a command.
func (c *Config) AddServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.ListenAddr, "listen", c.ListenAddr, "Address for the /metrics and /healthz endpoints")
}

// AddLoggingFlags adds logging flags shared by every command.
func (c *Config) AddLoggingFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format (console, json)")
}
