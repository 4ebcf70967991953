package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "replayfire [flags] <transcript>",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Input flags
	flags.StringP("input", "i", "", "Path to the captured session transcript (also accepted as first argument)")
	flags.String("har", "", "Path to a HAR file to replay instead of a transcript")
	flags.String("har-filter", "", "Filter HAR entries (e.g., 'host:example.com;method:GET,POST;exclude_static')")
	flags.Int("max-entries", 0, "Stop reading the capture after this many requests (0 means all)")

	// Session flags
	flags.Bool("delay", false, "Replay recorded think time inferred from response Date headers")
	flags.Duration("max-delay", 0, "Cap every replayed pause (0 means uncapped)")
	flags.String("hostname", "", "Replace the host of every recorded request")
	flags.Bool("reuse-cookies", false, "Replay recorded cookies and keep one cookie jar per worker")
	flags.StringSlice("match-header", nil, "Response header that must match the recording (repeatable; status line only when empty)")

	// Load control flags
	flags.IntSliceP("concurrency", "c", nil, "Concurrency levels to run (e.g. 1,5,10)")
	flags.Int("step", 0, "Generate concurrency levels 1, step, 2*step, ... up to --max-concurrency")
	flags.Int("max-concurrency", 0, "Highest generated concurrency level")
	flags.IntP("repeat", "r", 1, "Number of passes over the session per worker")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")
	flags.Bool("keep-alive", false, "Reuse connections without a request budget")
	flags.Bool("insecure", false, "Skip TLS certificate verification")
	flags.Int("spawn-rate", 0, "Workers started per second within a level (0 means all at once)")

	// Output flags
	flags.StringP("output", "o", OutputText, "Report format: 'text', 'json', 'yaml' or 'html'")
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'run_duration:p95 < 500')")
	flags.Bool("fail-on-errors", false, "Exit with status 1 when any request failed")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (e.g., localhost:4317)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of replayed requests to trace")
	flags.String("tracing-service-name", "", "Service name reported with spans")
	flags.Bool("tracing-propagate", true, "Inject W3C traceparent headers into replayed requests")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("input") {
		val, err := fs.GetString("input")
		if err != nil {
			return err
		}
		cfg.Input = strings.TrimSpace(val)
	}
	if fs.Changed("har") {
		val, err := fs.GetString("har")
		if err != nil {
			return err
		}
		cfg.HARFile = strings.TrimSpace(val)
	}
	if fs.Changed("har-filter") {
		val, err := fs.GetString("har-filter")
		if err != nil {
			return err
		}
		cfg.HARFilter = strings.TrimSpace(val)
	}
	if fs.Changed("max-entries") {
		val, err := fs.GetInt("max-entries")
		if err != nil {
			return err
		}
		cfg.MaxEntries = val
	}
	if fs.Changed("delay") {
		val, err := fs.GetBool("delay")
		if err != nil {
			return err
		}
		cfg.Delay = val
	}
	if fs.Changed("max-delay") {
		val, err := fs.GetDuration("max-delay")
		if err != nil {
			return err
		}
		cfg.MaxDelay = val
	}
	if fs.Changed("hostname") {
		val, err := fs.GetString("hostname")
		if err != nil {
			return err
		}
		cfg.Hostname = strings.TrimSpace(val)
	}
	if fs.Changed("reuse-cookies") {
		val, err := fs.GetBool("reuse-cookies")
		if err != nil {
			return err
		}
		cfg.ReuseCookies = val
	}
	if fs.Changed("match-header") {
		val, err := fs.GetStringSlice("match-header")
		if err != nil {
			return err
		}
		cfg.MatchHeaders = val
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetIntSlice("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("step") {
		val, err := fs.GetInt("step")
		if err != nil {
			return err
		}
		cfg.Step = val
	}
	if fs.Changed("max-concurrency") {
		val, err := fs.GetInt("max-concurrency")
		if err != nil {
			return err
		}
		cfg.MaxConcurrency = val
	}
	if fs.Changed("repeat") {
		val, err := fs.GetInt("repeat")
		if err != nil {
			return err
		}
		cfg.Repeat = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("keep-alive") {
		val, err := fs.GetBool("keep-alive")
		if err != nil {
			return err
		}
		cfg.KeepAlive = val
	}
	if fs.Changed("insecure") {
		val, err := fs.GetBool("insecure")
		if err != nil {
			return err
		}
		cfg.Insecure = val
	}
	if fs.Changed("spawn-rate") {
		val, err := fs.GetInt("spawn-rate")
		if err != nil {
			return err
		}
		cfg.SpawnRate = val
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("fail-on-errors") {
		val, err := fs.GetBool("fail-on-errors")
		if err != nil {
			return err
		}
		cfg.FailOnErrors = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("log-format") {
		val, err := fs.GetString("log-format")
		if err != nil {
			return err
		}
		cfg.LogFormat = strings.ToLower(strings.TrimSpace(val))
	}

	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("tracing-service-name") {
		val, err := fs.GetString("tracing-service-name")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}

	return nil
}
