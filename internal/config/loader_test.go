package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{int64(789), 789},
		{float64(10.0), 10},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsIntSlice(t *testing.T) {
	tests := []struct {
		input interface{}
		want  []int
	}{
		{[]interface{}{float64(1), float64(5)}, []int{1, 5}},
		{[]interface{}{10, "20"}, []int{10, 20}},
		{"1, 5,10", []int{1, 5, 10}},
		{7, []int{7}},
		{nil, nil},
	}

	for _, tt := range tests {
		got, err := asIntSlice(tt.input)
		if err != nil {
			t.Errorf("asIntSlice(%v) error = %v", tt.input, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("asIntSlice(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := asIntSlice("1,x"); err == nil {
		t.Error("asIntSlice(\"1,x\") should fail")
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{"1s", time.Second},
		{"1m", time.Minute},
		{10, 10 * time.Second},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestApplyConfigSettings(t *testing.T) {
	cfg := &Config{}
	settings := map[string]interface{}{
		"input":       "session.txt",
		"hostname":    " test.example.com ",
		"repeat":      3,
		"timeout":     "10s",
		"keep_alive":  true,
		"spawn_rate":  "4",
		"thresholds":  []interface{}{"requests:count > 0"},
		"max_entries": 25,
		"tracing": map[string]interface{}{
			"Endpoint":  "localhost:4317",
			"propagate": false,
		},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		t.Fatalf("applyConfigSettings() error = %v", err)
	}

	if cfg.Input != "session.txt" {
		t.Errorf("Input = %q", cfg.Input)
	}
	if cfg.Hostname != "test.example.com" {
		t.Errorf("Hostname = %q", cfg.Hostname)
	}
	if cfg.Repeat != 3 || cfg.Timeout != 10*time.Second || !cfg.KeepAlive || cfg.SpawnRate != 4 || cfg.MaxEntries != 25 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(cfg.Thresholds) != 1 {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
	if cfg.Tracing.Endpoint != "localhost:4317" || cfg.Tracing.ShouldPropagate() {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
}

func TestApplyConfigSettingsRejectsBadValues(t *testing.T) {
	cfg := &Config{}
	if err := applyConfigSettings(cfg, map[string]interface{}{"repeat": "many"}); err == nil {
		t.Fatal("expected an error for a non-numeric repeat")
	}
	if err := applyConfigSettings(cfg, map[string]interface{}{"tracing": "on"}); err == nil {
		t.Fatal("expected an error for a non-map tracing section")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &Config{Repeat: 1, Hostname: "from-file"}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)

	if err := fs.Parse([]string{"-c", "1,4", "--keep-alive", "--log-format", "JSON"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Concurrency, []int{1, 4}) {
		t.Errorf("Concurrency = %v, want [1 4]", cfg.Concurrency)
	}
	if !cfg.KeepAlive {
		t.Errorf("KeepAlive = false, want true")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.Hostname != "from-file" {
		t.Errorf("unchanged flags must not override file values, Hostname = %q", cfg.Hostname)
	}
	if cfg.Repeat != 1 {
		t.Errorf("Repeat = %d, want 1", cfg.Repeat)
	}
}
