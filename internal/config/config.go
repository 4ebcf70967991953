package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/torosent/replayfire/internal/har"
	"github.com/torosent/replayfire/internal/match"
	"github.com/torosent/replayfire/internal/threshold"
	"github.com/torosent/replayfire/internal/transcript"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
	OutputHTML = "html"
)

// Config is everything a replay run needs.
type Config struct {
	Input      string `mapstructure:"input"`
	HARFile    string `mapstructure:"har_file"`
	HARFilter  string `mapstructure:"har_filter"`
	ConfigFile string `mapstructure:"-"`

	Delay        bool          `mapstructure:"delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Hostname     string        `mapstructure:"hostname"`
	ReuseCookies bool          `mapstructure:"reuse_cookies"`
	MatchHeaders []string      `mapstructure:"match_headers"`
	MaxEntries   int           `mapstructure:"max_entries"`

	Concurrency    []int         `mapstructure:"concurrency"`
	Step           int           `mapstructure:"step"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Repeat         int           `mapstructure:"repeat"`
	Timeout        time.Duration `mapstructure:"timeout"`
	KeepAlive      bool          `mapstructure:"keep_alive"`
	Insecure       bool          `mapstructure:"insecure"`
	SpawnRate      int           `mapstructure:"spawn_rate"`

	Output       string   `mapstructure:"output"`
	Thresholds   []string `mapstructure:"thresholds"`
	FailOnErrors bool     `mapstructure:"fail_on_errors"`
	LogLevel     string   `mapstructure:"log_level"`
	LogFormat    string   `mapstructure:"log_format"`

	Tracing TracingConfig `mapstructure:"tracing"`
}

// TracingConfig configures OpenTelemetry export of request spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
	// Propagate overrides trace context injection, which defaults to on
	// whenever tracing is enabled.
	Propagate *bool `mapstructure:"propagate"`
}

// Enabled reports whether an exporter endpoint is configured, directly or
// through OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether W3C trace headers are injected.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
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

// TranscriptOptions derives the parser options.
func (c Config) TranscriptOptions() transcript.Options {
	return transcript.Options{
		Delay:        c.Delay,
		MaxDelay:     c.MaxDelay,
		Hostname:     strings.TrimSpace(c.Hostname),
		ReuseCookies: c.ReuseCookies,
		KeepAlive:    c.KeepAlive,
		MaxEntries:   c.MaxEntries,
	}
}

// MatchPolicy derives the response matching policy.
func (c Config) MatchPolicy() match.Policy {
	return match.NewPolicy(c.MatchHeaders)
}

func (c Config) Validate() error {
	var issues []string

	input := strings.TrimSpace(c.Input)
	harFile := strings.TrimSpace(c.HARFile)
	switch {
	case input == "" && harFile == "":
		issues = append(issues, "a transcript path or --har is required (use --help for usage information)")
	case input != "" && harFile != "":
		issues = append(issues, "transcript input and --har are mutually exclusive")
	}
	if _, err := har.ParseFilter(c.HARFilter); err != nil {
		issues = append(issues, err.Error())
	}

	for _, n := range c.Concurrency {
		if n < 1 {
			issues = append(issues, fmt.Sprintf("concurrency level %d must be >= 1", n))
		}
	}
	if len(c.Concurrency) > 0 && (c.Step != 0 || c.MaxConcurrency != 0) {
		issues = append(issues, "concurrency and step/max-concurrency are mutually exclusive")
	}
	if c.Step < 0 {
		issues = append(issues, "step must be >= 0")
	}
	if c.MaxConcurrency < 0 {
		issues = append(issues, "max-concurrency must be >= 0")
	}
	if (c.Step > 0) != (c.MaxConcurrency > 0) {
		issues = append(issues, "step and max-concurrency must be set together")
	}

	if c.Repeat < 1 {
		issues = append(issues, "repeat must be >= 1")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.MaxDelay < 0 {
		issues = append(issues, "max-delay must be >= 0")
	}
	if c.MaxEntries < 0 {
		issues = append(issues, "max-entries must be >= 0")
	}
	if c.SpawnRate < 0 {
		issues = append(issues, "spawn-rate must be >= 0")
	}

	switch c.Output {
	case OutputText, OutputJSON, OutputYAML, OutputHTML:
	default:
		issues = append(issues, fmt.Sprintf("output must be one of text, json, yaml, html; got %q", c.Output))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, fmt.Sprintf("log-level %q is not supported", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("log-format must be 'text' or 'json', got %q", c.LogFormat))
	}

	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}

	issues = append(issues, validateTracing(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// Warnings lists settings that are valid but deserve the operator's
// attention.
func (c Config) Warnings() []string {
	var warnings []string
	highest := c.MaxConcurrency
	for _, n := range c.Concurrency {
		if n > highest {
			highest = n
		}
	}
	if highest > 500 {
		warnings = append(warnings, fmt.Sprintf("High concurrency configured (%d workers). Ensure you have authorization to test the target system.", highest))
	}
	if strings.TrimSpace(c.HARFile) != "" || c.ReuseCookies {
		warnings = append(warnings, "Recorded sessions may contain sensitive data (cookies, auth tokens). Review the capture before replaying it against production.")
	}
	if c.Insecure {
		warnings = append(warnings, "TLS verification is DISABLED. This should ONLY be used against test environments.")
	}
	return warnings
}

func validateTracing(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
