// Package config provides configuration management for the monitor.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"SystemMonitor/pkg/collecting"
	"SystemMonitor/pkg/exporting"
	"SystemMonitor/pkg/logging"
	"SystemMonitor/pkg/metrics"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all engine and command options.
type Config struct {
	// Collection settings
	Interval          time.Duration `mapstructure:"interval"`
	Categories        []string      `mapstructure:"categories"`
	CPUNormalization  string        `mapstructure:"cpu_normalization"`
	ProcessWorkers    int           `mapstructure:"process_workers"`
	ConcurrentReaders bool          `mapstructure:"concurrent_readers"`
	Adapter           string        `mapstructure:"adapter"`
	ProcRoot          string        `mapstructure:"proc_root"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Output settings
	OutputFormat string `mapstructure:"output_format"`
	OutputFile   string `mapstructure:"output"`
	ListenAddr   string `mapstructure:"listen"`
	TopN         int    `mapstructure:"top"`
}

// Default configuration values.
const (
	DefaultInterval       = 2 * time.Second
	MinInterval           = 10 * time.Millisecond
	DefaultProcessWorkers = 4
	DefaultLogLevel       = "info"
	DefaultFormat         = "json"
	DefaultListenAddr     = "127.0.0.1:9464"
	DefaultTopN           = 10

	EnvPrefix = "SYSMON"
)

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Interval:         DefaultInterval,
		Categories:       categoryNames(metrics.AllCategories()),
		CPUNormalization: string(metrics.DefaultNormalization),
		ProcessWorkers:   DefaultProcessWorkers,
		Adapter:          collecting.AdapterAuto,
		LogLevel:         DefaultLogLevel,
		LogFormat:        logging.FormatConsole,
		OutputFormat:     DefaultFormat,
		ListenAddr:       DefaultListenAddr,
		TopN:             DefaultTopN,
	}
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"interval":           "interval",
	"categories":         "categories",
	"cpu-normalization":  "cpu_normalization",
	"process-workers":    "process_workers",
	"concurrent-readers": "concurrent_readers",
	"adapter":            "adapter",
	"proc-root":          "proc_root",
	"log-level":          "log_level",
	"log-format":         "log_format",
	"format":             "output_format",
	"output":             "output",
	"listen":             "listen",
	"top":                "top",
}

// Load resolves the configuration from, in increasing precedence, defaults,
// the optional config file at path, SYSMON_* environment variables and the
// flags that were set explicitly.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	def := New()
	v.SetDefault("interval", def.Interval)
	v.SetDefault("categories", def.Categories)
	v.SetDefault("cpu_normalization", def.CPUNormalization)
	v.SetDefault("process_workers", def.ProcessWorkers)
	v.SetDefault("concurrent_readers", def.ConcurrentReaders)
	v.SetDefault("adapter", def.Adapter)
	v.SetDefault("proc_root", def.ProcRoot)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("output_format", def.OutputFormat)
	v.SetDefault("output", def.OutputFile)
	v.SetDefault("listen", def.ListenAddr)
	v.SetDefault("top", def.TopN)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if c.Interval < MinInterval {
		errs = append(errs, fmt.Errorf("interval must be at least %v, got %v", MinInterval, c.Interval))
	}
	if _, err := c.EnabledCategories(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Normalization(); err != nil {
		errs = append(errs, err)
	}
	if c.ProcessWorkers < 0 {
		errs = append(errs, fmt.Errorf("process workers cannot be negative, got %d", c.ProcessWorkers))
	}
	if !slices.Contains(collecting.Adapters(), strings.ToLower(c.Adapter)) {
		errs = append(errs, fmt.Errorf("invalid adapter: %s (valid: %s)", c.Adapter, strings.Join(collecting.Adapters(), ", ")))
	}
	if _, ok := exporting.Get(c.OutputFormat); !ok {
		errs = append(errs, fmt.Errorf("invalid output format: %s (valid: %s)", c.OutputFormat, strings.Join(exporting.Names(), ", ")))
	}
	if c.TopN < 0 {
		errs = append(errs, fmt.Errorf("top cannot be negative, got %d", c.TopN))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.LogLevel))
	}
	if f := strings.ToLower(c.LogFormat); f != logging.FormatConsole && f != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("invalid log format: %s (valid: console, json)", c.LogFormat))
	}
	return errors.Join(errs...)
}

// ApplyDefaults fills in any missing values with defaults.
func (c *Config) ApplyDefaults() {
	def := New()
	if c.Interval == 0 {
		c.Interval = def.Interval
	}
	if len(c.Categories) == 0 {
		c.Categories = def.Categories
	}
	if c.CPUNormalization == "" {
		c.CPUNormalization = def.CPUNormalization
	}
	if c.Adapter == "" {
		c.Adapter = def.Adapter
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
	if c.OutputFormat == "" {
		c.OutputFormat = def.OutputFormat
	}
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
}

// EnabledCategories parses Categories, dropping duplicates. Entries may hold
// comma-separated lists.
func (c *Config) EnabledCategories() ([]metrics.Category, error) {
	var out []metrics.Category
	for _, entry := range c.Categories {
		for _, name := range strings.Split(entry, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			cat, err := metrics.ParseCategory(name)
			if err != nil {
				return nil, err
			}
			if !slices.Contains(out, cat) {
				out = append(out, cat)
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.New("at least one metric category must be enabled")
	}
	return out, nil
}

func (c *Config) Normalization() (metrics.CPUNormalization, error) {
	return metrics.ParseCPUNormalization(c.CPUNormalization)
}

func categoryNames(cats []metrics.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}
