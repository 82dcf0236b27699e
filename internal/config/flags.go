package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags as persistent flags of cmd so every
// subcommand shares them.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.PersistentFlags())
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Source flags
	flags.StringP("path", "p", "", "Table file to iterate (relative paths resolve against --base-dir)")
	flags.StringP("format", "f", "auto", "Table format: auto, csv, xlsx, xls or json")
	flags.String("base-dir", "", "Directory that relative table paths resolve against (default: working directory)")
	flags.StringSlice("columns", nil, "Columns to emit, case-insensitive (repeatable or comma separated; default: all)")

	// Loop flags
	flags.StringP("loop-mode", "m", "single_pass", "Loop mode: single_pass, repeat or infinite")
	flags.IntP("repeat-count", "n", 1, "Number of passes in repeat mode (1-1000)")
	flags.Int("start-row", 0, "First data row to iterate, counted from 0")
	flags.Bool("force-refresh", false, "Ignore the cache and reload the table")

	// Cache flags
	flags.Duration("cache-ttl", DefaultCacheTTL, "How long a loaded table is reused while unchanged")
	flags.Duration("load-timeout", DefaultLoadTimeout, "Maximum time to spend reading a table")

	// Run flags
	flags.IntP("ticks", "t", 0, "Number of ticks to run (0 runs until the loop completes)")
	flags.IntP("rate", "r", 0, "Ticks per second (0 means unlimited)")
	flags.String("arrival", "uniform", "Tick spacing when --rate is set: uniform or poisson")
	flags.DurationP("duration", "d", 0, "Stop running after this long (e.g. 30s, 1m)")
	flags.StringP("output", "o", string(OutputText), "Tick output: text, json, yaml or template")
	flags.String("template", "", "Template rendered per tick, with {{column}} placeholders")
	flags.Bool("dashboard", false, "Show live terminal dashboard")

	// Serve flags
	flags.String("listen", DefaultListen, "Address the HTTP host listens on")
	flags.Duration("stream-interval", DefaultStreamInterval, "Delay between ticks on WebSocket streams")

	// Logging flags
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("seq-url", "", "Seq server URL to ship logs to")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (host:port)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Use a plaintext connection to the collector")
	flags.String("tracing-service-name", "", "Service name reported on spans")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of traces to sample (0.0-1.0)")
	flags.Bool("tracing-propagate", false, "Continue traces from incoming W3C headers")
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	strs := map[string]*string{
		"path":                 &cfg.Path,
		"format":               &cfg.Format,
		"base-dir":             &cfg.BaseDir,
		"loop-mode":            &cfg.LoopMode,
		"template":             &cfg.Template,
		"listen":               &cfg.Listen,
		"arrival":              &cfg.Arrival,
		"log-level":            &cfg.Log.Level,
		"log-format":           &cfg.Log.Format,
		"seq-url":              &cfg.Log.SeqURL,
		"tracing-endpoint":     &cfg.Tracing.Endpoint,
		"tracing-protocol":     &cfg.Tracing.Protocol,
		"tracing-service-name": &cfg.Tracing.ServiceName,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	ints := map[string]*int{
		"repeat-count": &cfg.RepeatCount,
		"start-row":    &cfg.StartRow,
		"ticks":        &cfg.Ticks,
		"rate":         &cfg.Rate,
	}
	for name, dst := range ints {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetInt(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	durations := map[string]*time.Duration{
		"cache-ttl":       &cfg.CacheTTL,
		"load-timeout":    &cfg.LoadTimeout,
		"duration":        &cfg.Duration,
		"stream-interval": &cfg.StreamInterval,
	}
	for name, dst := range durations {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	bools := map[string]*bool{
		"force-refresh":     &cfg.ForceRefresh,
		"dashboard":         &cfg.Dashboard,
		"tracing-insecure":  &cfg.Tracing.Insecure,
		"tracing-propagate": &cfg.Tracing.Propagate,
	}
	for name, dst := range bools {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetBool(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputFormat(val)
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("columns") {
		val, err := fs.GetStringSlice("columns")
		if err != nil {
			return err
		}
		cfg.Columns = val
	}

	return nil
}
