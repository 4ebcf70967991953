package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
// The first positional argument, if any, is the transcript path.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Repeat:     1,
		Timeout:    30 * time.Second,
		Output:     OutputText,
		LogLevel:   "info",
		LogFormat:  "text",
		ConfigFile: configPath,
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	positional := flagSet.Args()
	if len(positional) > 1 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(positional[1:], " "))
	}
	if len(positional) == 1 {
		if flagSet.Changed("input") {
			return nil, errors.New("transcript given both as argument and --input")
		}
		cfg.Input = strings.TrimSpace(positional[0])
	}

	if len(cfg.Concurrency) == 0 && cfg.Step == 0 && cfg.MaxConcurrency == 0 {
		cfg.Concurrency = []int{1}
	}
	cfg.Output = strings.ToLower(cfg.Output)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "input"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("input: %w", err)
		}
		cfg.Input = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "harfile", "har_file", "har-file", "har"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("har_file: %w", err)
		}
		cfg.HARFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "harfilter", "har_filter", "har-filter"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("har_filter: %w", err)
		}
		cfg.HARFilter = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "maxentries", "max_entries", "max-entries"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("max_entries: %w", err)
		}
		cfg.MaxEntries = val
	}

	if raw, ok := lookupSetting(settings, "delay"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("delay: %w", err)
		}
		cfg.Delay = val
	}

	if raw, ok := lookupSetting(settings, "maxdelay", "max_delay", "max-delay"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("max_delay: %w", err)
		}
		cfg.MaxDelay = dur
	}

	if raw, ok := lookupSetting(settings, "hostname"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("hostname: %w", err)
		}
		cfg.Hostname = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "reusecookies", "reuse_cookies", "reuse-cookies"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("reuse_cookies: %w", err)
		}
		cfg.ReuseCookies = val
	}

	if raw, ok := lookupSetting(settings, "matchheaders", "match_headers", "match-headers"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("match_headers: %w", err)
		}
		cfg.MatchHeaders = val
	}

	if raw, ok := lookupSetting(settings, "concurrency"); ok {
		val, err := asIntSlice(raw)
		if err != nil {
			return fmt.Errorf("concurrency: %w", err)
		}
		cfg.Concurrency = val
	}

	if raw, ok := lookupSetting(settings, "step"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
		cfg.Step = val
	}

	if raw, ok := lookupSetting(settings, "maxconcurrency", "max_concurrency", "max-concurrency"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("max_concurrency: %w", err)
		}
		cfg.MaxConcurrency = val
	}

	if raw, ok := lookupSetting(settings, "repeat"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("repeat: %w", err)
		}
		cfg.Repeat = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "keepalive", "keep_alive", "keep-alive"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("keep_alive: %w", err)
		}
		cfg.KeepAlive = val
	}

	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		cfg.Insecure = val
	}

	if raw, ok := lookupSetting(settings, "spawnrate", "spawn_rate", "spawn-rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("spawn_rate: %w", err)
		}
		cfg.SpawnRate = val
	}

	if raw, ok := lookupSetting(settings, "output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		if val != "" {
			cfg.Output = strings.TrimSpace(val)
		}
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = val
	}

	if raw, ok := lookupSetting(settings, "failonerrors", "fail_on_errors", "fail-on-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("fail_on_errors: %w", err)
		}
		cfg.FailOnErrors = val
	}

	if raw, ok := lookupSetting(settings, "loglevel", "log_level", "log-level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		if val != "" {
			cfg.LogLevel = strings.TrimSpace(val)
		}
	}

	if raw, ok := lookupSetting(settings, "logformat", "log_format", "log-format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_format: %w", err)
		}
		if val != "" {
			cfg.LogFormat = strings.TrimSpace(val)
		}
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracingConfig(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseTracingConfig(value interface{}, base TracingConfig) (TracingConfig, error) {
	if value == nil {
		return base, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}
	return buildTracingConfig(entry, base)
}

func buildTracingConfig(settings map[string]interface{}, tracing TracingConfig) (TracingConfig, error) {
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		tracing.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tracing.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		tracing.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("propagate: %w", err)
		}
		tracing.Propagate = &val
	}
	return tracing, nil
}
