package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/torosent/tableloop/internal/table"
)

const (
	DefaultCacheTTL       = 300 * time.Second
	DefaultLoadTimeout    = 30 * time.Second
	DefaultListen         = "127.0.0.1:8585"
	DefaultStreamInterval = time.Second
)

// Loader handles loading configuration from files and command-line flags.
type Loader struct{}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Format:         string(table.FormatAuto),
		LoopMode:       "single_pass",
		RepeatCount:    1,
		Arrival:        "uniform",
		CacheTTL:       DefaultCacheTTL,
		LoadTimeout:    DefaultLoadTimeout,
		Output:         OutputText,
		Listen:         DefaultListen,
		StreamInterval: DefaultStreamInterval,
		Log:            LogConfig{Level: "info", Format: "text"},
		Tracing:        TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

// Load builds a Config from defaults, then the file named by --config, then
// any flags that were set explicitly on fs.
func (Loader) Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := Defaults()

	configPath := ""
	if f := fs.Lookup("config"); f != nil {
		configPath = strings.TrimSpace(f.Value.String())
	}
	if configPath != "" {
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
		if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
			return nil, err
		}
		cfg.ConfigFile = configPath
	}

	if err := applyFlagOverrides(cfg, fs); err != nil {
		return nil, err
	}

	cfg.Path = strings.TrimSpace(cfg.Path)
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	cfg.LoopMode = strings.ToLower(strings.TrimSpace(cfg.LoopMode))
	cfg.Arrival = strings.ToLower(strings.TrimSpace(cfg.Arrival))
	cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(string(cfg.Output))))
	cfg.Columns = cleanColumns(cfg.Columns)

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	strs := []struct {
		dst  *string
		keys []string
	}{
		{&cfg.Path, []string{"path", "file_path"}},
		{&cfg.Format, []string{"format", "file_format"}},
		{&cfg.LoopMode, []string{"loop_mode", "loopmode", "loop-mode"}},
		{&cfg.BaseDir, []string{"base_dir", "basedir", "base-dir"}},
		{&cfg.Template, []string{"template"}},
		{&cfg.Listen, []string{"listen"}},
		{&cfg.Arrival, []string{"arrival", "arrival_model"}},
	}
	for _, s := range strs {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asString(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.keys[0], err)
			}
			*s.dst = val
		}
	}

	ints := []struct {
		dst  *int
		keys []string
	}{
		{&cfg.RepeatCount, []string{"repeat_count", "repeatcount", "repeat-count"}},
		{&cfg.StartRow, []string{"start_row", "startrow", "start-row"}},
		{&cfg.Ticks, []string{"ticks"}},
		{&cfg.Rate, []string{"rate"}},
	}
	for _, s := range ints {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asInt(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.keys[0], err)
			}
			*s.dst = val
		}
	}

	durations := []struct {
		dst  *time.Duration
		keys []string
	}{
		{&cfg.CacheTTL, []string{"cache_ttl", "cachettl", "cache-ttl"}},
		{&cfg.LoadTimeout, []string{"load_timeout", "loadtimeout", "load-timeout"}},
		{&cfg.Duration, []string{"duration"}},
		{&cfg.StreamInterval, []string{"stream_interval", "streaminterval", "stream-interval"}},
	}
	for _, s := range durations {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asDuration(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.keys[0], err)
			}
			*s.dst = val
		}
	}

	if raw, ok := lookupSetting(settings, "force_refresh", "forcerefresh", "refresh_cache"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("force_refresh: %w", err)
		}
		cfg.ForceRefresh = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		cfg.Output = OutputFormat(val)
	}

	if raw, ok := lookupSetting(settings, "columns", "selected_columns"); ok {
		cols, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("columns: %w", err)
		}
		cfg.Columns = cols
	}

	if raw, ok := lookupSetting(settings, "log"); ok {
		logCfg, err := parseLogConfig(raw, cfg.Log)
		if err != nil {
			return fmt.Errorf("log: %w", err)
		}
		cfg.Log = logCfg
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracingCfg, err := parseTracingConfig(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracingCfg
	}

	return nil
}

func parseLogConfig(value interface{}, base LogConfig) (LogConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return base, err
	}
	out := base
	if raw, ok := lookupSetting(settings, "level"); ok {
		if out.Level, err = asString(raw); err != nil {
			return base, fmt.Errorf("level: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "format"); ok {
		if out.Format, err = asString(raw); err != nil {
			return base, fmt.Errorf("format: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "seq_url", "sequrl", "seq-url"); ok {
		if out.SeqURL, err = asString(raw); err != nil {
			return base, fmt.Errorf("seq_url: %w", err)
		}
	}
	return out, nil
}

func parseTracingConfig(value interface{}, base TracingConfig) (TracingConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return base, err
	}
	out := base
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		if out.Endpoint, err = asString(raw); err != nil {
			return base, fmt.Errorf("endpoint: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		if out.Protocol, err = asString(raw); err != nil {
			return base, fmt.Errorf("protocol: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "service_name", "servicename", "service-name"); ok {
		if out.ServiceName, err = asString(raw); err != nil {
			return base, fmt.Errorf("service_name: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		if out.Insecure, err = asBool(raw); err != nil {
			return base, fmt.Errorf("insecure: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		if out.Propagate, err = asBool(raw); err != nil {
			return base, fmt.Errorf("propagate: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "sample_rate", "samplerate", "sample-rate"); ok {
		if out.SampleRate, err = asFloat64(raw); err != nil {
			return base, fmt.Errorf("sample_rate: %w", err)
		}
	}
	return out, nil
}

// cleanColumns splits comma or newline separated entries and drops blanks.
func cleanColumns(cols []string) []string {
	var out []string
	for _, entry := range cols {
		for _, part := range strings.FieldsFunc(entry, func(r rune) bool { return r == ',' || r == '\n' }) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
