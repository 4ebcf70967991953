// Package output renders a replay report for people (text, HTML) and for
// tools (JSON, YAML).
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/replayfire/internal/metrics"
	"github.com/torosent/replayfire/internal/report"
	"github.com/torosent/replayfire/internal/threshold"
)

// Formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatHTML = "html"
)

// Write renders rep in the given format.
func Write(w io.Writer, rep *report.Report, results []threshold.Result, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		PrintReport(w, rep)
		PrintThresholds(w, results)
		return nil
	case FormatJSON:
		return PrintJSONReport(w, rep, results)
	case FormatYAML:
		return PrintYAMLReport(w, rep, results)
	case FormatHTML:
		return GenerateHTMLReport(w, rep, results)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, rep *report.Report) {
	if rep == nil {
		return
	}
	fmt.Fprintln(w, "\n--- Replay Results ---")
	fmt.Fprintf(w, "Run ID:            %s\n", rep.RunID)
	fmt.Fprintf(w, "URLs Tested:       %d\n", rep.URLsTested)
	fmt.Fprintf(w, "Repeat:            %d\n", rep.Repeat)
	fmt.Fprintf(w, "Total Delay:       %s\n", rep.TotalDelay)
	fmt.Fprintf(w, "Total Requests:    %d\n", rep.TotalRequests)
	fmt.Fprintf(w, "Duration:          %s\n", rep.Elapsed.Round(time.Millisecond))

	for _, level := range rep.Levels {
		printLevel(w, rep, level)
	}
}

func printLevel(w io.Writer, rep *report.Report, level metrics.LevelStats) {
	fmt.Fprintf(w, "\nConcurrency %d:\n", level.Concurrency)
	fmt.Fprintf(w, "  Workers:         %d", level.Workers)
	if level.FailedWorkers > 0 {
		fmt.Fprintf(w, " (%d failed)", level.FailedWorkers)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Requests:        %d (%d successful, %d failed)\n", level.Requests(), level.Successful, level.Failed)
	fmt.Fprintf(w, "  Requests/sec:    %.2f\n", level.RequestsPerSecond())
	fmt.Fprintf(w, "  Bytes:           %d sent, %d received\n", level.BytesSent, level.BytesReceived)
	fmt.Fprintf(w, "  Elapsed:         %s\n", level.Elapsed.Round(time.Millisecond))

	fmt.Fprintln(w, "  Run Duration:")
	writeDistribution(w, level.Runs, "    ")

	if buckets := level.StatusClasses.Buckets(); len(buckets) > 0 {
		fmt.Fprintln(w, "  Status Classes:")
		for _, b := range buckets {
			fmt.Fprintf(w, "    %s: %d\n", b.Class, b.Count)
		}
	}
	if len(level.FailureReasons) > 0 {
		fmt.Fprintln(w, "  Failure Reasons:")
		for _, reason := range sortedKeys(level.FailureReasons) {
			fmt.Fprintf(w, "    %s: %d\n", reason, level.FailureReasons[reason])
		}
	}
	for _, msg := range level.WorkerErrors {
		fmt.Fprintf(w, "  Worker Error:    %s\n", msg)
	}

	positions := level.SortedPositions()
	if len(positions) == 0 {
		return
	}
	fmt.Fprintln(w, "  Position Breakdown:")
	for _, pos := range positions {
		dist := level.Positions[pos]
		u, _ := rep.PositionURL(pos)
		fmt.Fprintf(
			w,
			"    #%d %s: n=%d, failed=%d, mean=%s, median=%s, p95=%s, max=%s\n",
			pos,
			u,
			dist.Count,
			level.PositionFailures[pos],
			dist.Mean.Round(time.Microsecond),
			dist.Median.Round(time.Microsecond),
			dist.P95.Round(time.Microsecond),
			dist.Max.Round(time.Microsecond),
		)
	}
}

func writeDistribution(w io.Writer, d metrics.Distribution, indent string) {
	if d.Count == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	fmt.Fprintf(w, "%sMin:           %s\n", indent, d.Min)
	fmt.Fprintf(w, "%sMax:           %s\n", indent, d.Max)
	fmt.Fprintf(w, "%sMean:          %s\n", indent, d.Mean)
	fmt.Fprintf(w, "%sStdDev:        %s\n", indent, d.StdDev)
	fmt.Fprintf(w, "%sMedian:        %s\n", indent, d.Median)
	fmt.Fprintf(w, "%sP90:           %s\n", indent, d.P90)
	fmt.Fprintf(w, "%sP95:           %s\n", indent, d.P95)
	fmt.Fprintf(w, "%sP99:           %s\n", indent, d.P99)
}

// PrintThresholds outputs threshold results, one line each.
func PrintThresholds(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(w, "\nThresholds:")
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
	if threshold.Passed(results) {
		fmt.Fprintln(w, "All thresholds passed")
	} else {
		fmt.Fprintln(w, "Some thresholds FAILED")
	}
}

// ThresholdResultJSON is the encoded form of a threshold result.
type ThresholdResultJSON struct {
	Threshold   string  `json:"threshold" yaml:"threshold"`
	Concurrency int     `json:"concurrency" yaml:"concurrency"`
	Metric      string  `json:"metric" yaml:"metric"`
	Aggregate   string  `json:"aggregate" yaml:"aggregate"`
	Operator    string  `json:"operator" yaml:"operator"`
	Expected    float64 `json:"expected" yaml:"expected"`
	Actual      float64 `json:"actual" yaml:"actual"`
	Pass        bool    `json:"pass" yaml:"pass"`
}

// ThresholdSummary counts passed and failed results.
type ThresholdSummary struct {
	Total   int                   `json:"total" yaml:"total"`
	Passed  int                   `json:"passed" yaml:"passed"`
	Failed  int                   `json:"failed" yaml:"failed"`
	Results []ThresholdResultJSON `json:"results" yaml:"results"`
}

type encodedReport struct {
	report.Report `yaml:",inline"`
	Thresholds    *ThresholdSummary `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

func encode(rep *report.Report, results []threshold.Result) encodedReport {
	out := encodedReport{Thresholds: summarize(results)}
	if rep != nil {
		out.Report = *rep
	}
	return out
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, rep *report.Report, results []threshold.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(encode(rep, results))
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, rep *report.Report, results []threshold.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(encode(rep, results)); err != nil {
		return err
	}
	return enc.Close()
}

func summarize(results []threshold.Result) *ThresholdSummary {
	if len(results) == 0 {
		return nil
	}
	s := &ThresholdSummary{
		Total:   len(results),
		Results: make([]ThresholdResultJSON, len(results)),
	}
	for i, r := range results {
		s.Results[i] = ThresholdResultJSON{
			Threshold:   r.Threshold.Raw,
			Concurrency: r.Concurrency,
			Metric:      r.Threshold.Metric,
			Aggregate:   r.Threshold.Aggregate,
			Operator:    r.Threshold.Operator,
			Expected:    r.Threshold.Value,
			Actual:      r.Actual,
			Pass:        r.Pass,
		}
		if r.Pass {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
