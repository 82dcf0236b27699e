package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/torosent/tableloop/internal/cursor"
	"github.com/torosent/tableloop/internal/table"
)

type OutputFormat string

const (
	OutputText     OutputFormat = "text"
	OutputJSON     OutputFormat = "json"
	OutputYAML     OutputFormat = "yaml"
	OutputTemplate OutputFormat = "template"
)

// MaxRepeatCount bounds repeat_count.
const MaxRepeatCount = 1000

type Config struct {
	Path           string        `mapstructure:"path"`
	Format         string        `mapstructure:"format"`
	LoopMode       string        `mapstructure:"loop_mode"`
	RepeatCount    int           `mapstructure:"repeat_count"`
	StartRow       int           `mapstructure:"start_row"`
	ForceRefresh   bool          `mapstructure:"force_refresh"`
	Columns        []string      `mapstructure:"columns"`
	BaseDir        string        `mapstructure:"base_dir"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	LoadTimeout    time.Duration `mapstructure:"load_timeout"`
	Ticks          int           `mapstructure:"ticks"`
	Rate           int           `mapstructure:"rate"`
	Arrival        string        `mapstructure:"arrival"`
	Duration       time.Duration `mapstructure:"duration"`
	Output         OutputFormat  `mapstructure:"output"`
	Template       string        `mapstructure:"template"`
	Dashboard      bool          `mapstructure:"dashboard"`
	Listen         string        `mapstructure:"listen"`
	StreamInterval time.Duration `mapstructure:"stream_interval"`
	Log            LogConfig     `mapstructure:"log"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	ConfigFile     string        `mapstructure:"-"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
	SeqURL string `mapstructure:"seq_url"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`     // OTLP collector host:port
	Protocol    string  `mapstructure:"protocol"`     // grpc or http
	Insecure    bool    `mapstructure:"insecure"`     // plaintext connection to the collector
	ServiceName string  `mapstructure:"service_name"` // defaults to OTEL_SERVICE_NAME, then tableloop
	SampleRate  float64 `mapstructure:"sample_rate"`  // 0.0 - 1.0
	Propagate   bool    `mapstructure:"propagate"`    // honor W3C trace headers on the HTTP host
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether incoming trace context is honored.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks every setting and reports all problems at once.
func (c Config) Validate() error {
	var issues []string

	if _, err := table.ParseFormat(c.Format); err != nil {
		issues = append(issues, fmt.Sprintf("format: must be 'auto', 'csv', 'xlsx', 'xls' or 'json', got %q", c.Format))
	}
	if _, err := cursor.ParseMode(c.LoopMode); err != nil {
		issues = append(issues, fmt.Sprintf("loop_mode: must be 'single_pass', 'repeat' or 'infinite', got %q", c.LoopMode))
	}
	if c.RepeatCount < 1 || c.RepeatCount > MaxRepeatCount {
		issues = append(issues, fmt.Sprintf("repeat_count must be between 1 and %d", MaxRepeatCount))
	}
	if c.StartRow < 0 {
		issues = append(issues, "start_row must be >= 0")
	}
	if c.CacheTTL < 0 {
		issues = append(issues, "cache_ttl must be >= 0")
	}
	if c.LoadTimeout < 0 {
		issues = append(issues, "load_timeout must be >= 0")
	}
	if c.Ticks < 0 {
		issues = append(issues, "ticks must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	switch strings.ToLower(c.Arrival) {
	case "", "uniform", "poisson":
	default:
		issues = append(issues, fmt.Sprintf("arrival: must be 'uniform' or 'poisson', got %q", c.Arrival))
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.StreamInterval < 0 {
		issues = append(issues, "stream_interval must be >= 0")
	}

	issues = append(issues, validateOutput(c)...)
	issues = append(issues, validateLogConfig(c.Log)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// RequireSource reports an error when no table path is configured.
func (c Config) RequireSource() error {
	if strings.TrimSpace(c.Path) == "" {
		return ValidationError{issues: []string{"path is required (use --help for usage information)"}}
	}
	return nil
}

func validateOutput(c Config) []string {
	var issues []string
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	case OutputTemplate:
		if strings.TrimSpace(c.Template) == "" {
			issues = append(issues, "template is required when output is 'template'")
		}
	default:
		issues = append(issues, fmt.Sprintf("output: must be 'text', 'json', 'yaml' or 'template', got %q", c.Output))
	}
	if c.Dashboard && c.Output != OutputText {
		issues = append(issues, "dashboard and non-text output are mutually exclusive")
	}
	return issues
}

func validateLogConfig(l LogConfig) []string {
	var issues []string
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log.level: unsupported level %q", l.Level))
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("log.format: must be 'text' or 'json', got %q", l.Format))
	}
	return issues
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing.protocol: must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing.sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
