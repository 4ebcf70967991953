// Package threshold evaluates pass/fail assertions such as
// "run_duration:p95 < 500" against the statistics of every concurrency level.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/torosent/replayfire/internal/metrics"
)

// Supported metrics.
const (
	MetricRunDuration   = "run_duration"
	MetricRequestFailed = "request_failed"
	MetricRequests      = "requests"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // run_duration, request_failed or requests
	Aggregate string  // e.g., "p95", "avg", "rate", "count"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result is the outcome of one threshold at one concurrency level.
type Result struct {
	Threshold   Threshold
	Concurrency int
	Actual      float64
	Pass        bool
	Message     string
}

type extractor func(metrics.LevelStats) float64

// Run durations are compared in milliseconds.
var extractors = map[string]map[string]extractor{
	MetricRunDuration: {
		"p50":    func(s metrics.LevelStats) float64 { return s.Runs.MedianMs },
		"median": func(s metrics.LevelStats) float64 { return s.Runs.MedianMs },
		"p90":    func(s metrics.LevelStats) float64 { return s.Runs.P90Ms },
		"p95":    func(s metrics.LevelStats) float64 { return s.Runs.P95Ms },
		"p99":    func(s metrics.LevelStats) float64 { return s.Runs.P99Ms },
		"avg":    func(s metrics.LevelStats) float64 { return s.Runs.MeanMs },
		"mean":   func(s metrics.LevelStats) float64 { return s.Runs.MeanMs },
		"min":    func(s metrics.LevelStats) float64 { return s.Runs.MinMs },
		"max":    func(s metrics.LevelStats) float64 { return s.Runs.MaxMs },
		"stddev": func(s metrics.LevelStats) float64 { return s.Runs.StdDevMs },
	},
	MetricRequestFailed: {
		"rate":  func(s metrics.LevelStats) float64 { return s.FailureRate() },
		"count": func(s metrics.LevelStats) float64 { return float64(s.Failed) },
	},
	MetricRequests: {
		"rate":  func(s metrics.LevelStats) float64 { return s.RequestsPerSecond() },
		"count": func(s metrics.LevelStats) float64 { return float64(s.Requests()) },
	},
}

var operators = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "==": true}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
//   - "run_duration:p95 < 500"     (run time percentile in ms)
//   - "run_duration:avg < 200"     (mean run time in ms)
//   - "request_failed:rate < 0.01" (failure rate as decimal)
//   - "request_failed:count < 10"  (failure count)
//   - "requests:rate > 100"        (requests per second)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'run_duration:p95 < 500')", s)
	}
	metric, aggregate, operator := matches[1], matches[2], matches[3]

	value, err := strconv.ParseFloat(matches[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", matches[4], err)
	}

	aggregates, ok := extractors[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(names(extractors), ", "))
	}
	if _, ok := aggregates[aggregate]; !ok {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(names(aggregates), ", "))
	}
	if !operators[operator] {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}
	return result, nil
}

// Evaluator evaluates thresholds against level statistics.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks every threshold against every level, in level order.
func (e *Evaluator) Evaluate(levels []metrics.LevelStats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds)*len(levels))
	for _, level := range levels {
		for _, t := range e.thresholds {
			results = append(results, evaluateOne(t, level))
		}
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, level metrics.LevelStats) Result {
	extract, ok := extractors[t.Metric][t.Aggregate]
	if !ok {
		return Result{
			Threshold:   t,
			Concurrency: level.Concurrency,
			Message:     fmt.Sprintf("error: unsupported threshold %q", t.Raw),
		}
	}

	actual := extract(level)
	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold:   t,
		Concurrency: level.Concurrency,
		Actual:      actual,
		Pass:        pass,
		Message:     fmt.Sprintf("%s [c=%d] %s: %.2f %s %.2f", status, level.Concurrency, t.Raw, actual, t.Operator, t.Value),
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}

func names[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
