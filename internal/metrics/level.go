package metrics

import (
	"fmt"
	"sort"
	"time"
)

// LevelStats is the merged view of every worker that ran at one concurrency
// level.
type LevelStats struct {
	Concurrency   int           `json:"concurrency" yaml:"concurrency"`
	Start         time.Time     `json:"start" yaml:"start"`
	Elapsed       time.Duration `json:"-" yaml:"-"`
	ElapsedMs     float64       `json:"elapsed_ms" yaml:"elapsed_ms"`
	Workers       int           `json:"workers" yaml:"workers"`
	FailedWorkers int           `json:"failed_workers" yaml:"failed_workers"`
	WorkerErrors  []string      `json:"worker_errors,omitempty" yaml:"worker_errors,omitempty"`

	Runs             Distribution         `json:"runs" yaml:"runs"`
	Positions        map[int]Distribution `json:"positions" yaml:"positions"`
	PositionFailures map[int]int64        `json:"position_failures,omitempty" yaml:"position_failures,omitempty"`
	FailureReasons   map[string]int64     `json:"failure_reasons,omitempty" yaml:"failure_reasons,omitempty"`

	Successful    int64         `json:"successful" yaml:"successful"`
	Failed        int64         `json:"failed" yaml:"failed"`
	BytesSent     int64         `json:"bytes_sent" yaml:"bytes_sent"`
	BytesReceived int64         `json:"bytes_received" yaml:"bytes_received"`
	StatusClasses StatusClasses `json:"status_classes" yaml:"status_classes"`
}

// Requests is the number of requests issued at this level.
func (s LevelStats) Requests() int64 {
	return s.Successful + s.Failed
}

// FailureRate is the fraction of requests that failed, 0 when none ran.
func (s LevelStats) FailureRate() float64 {
	total := s.Requests()
	if total == 0 {
		return 0
	}
	return float64(s.Failed) / float64(total)
}

// RequestsPerSecond is the request throughput over the level's wall time.
func (s LevelStats) RequestsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Requests()) / s.Elapsed.Seconds()
}

// Aggregator merges worker results for a single level. It is not safe for
// concurrent use; the runner feeds it from one goroutine.
type Aggregator struct {
	concurrency int
	start       time.Time
	merged      WorkerResult
	workers     int
	errs        []string
}

// NewAggregator returns an aggregator for the level with the given worker
// count started at start.
func NewAggregator(concurrency int, start time.Time) *Aggregator {
	return &Aggregator{
		concurrency: concurrency,
		start:       start,
		merged:      NewWorkerResult(),
	}
}

// Add merges a completed worker's result.
func (a *Aggregator) Add(r WorkerResult) {
	a.merged.Absorb(r)
	a.workers++
}

// AddFailure records a worker that stopped with a fatal error. Its partial
// measurements are not merged.
func (a *Aggregator) AddFailure(id int, err error) {
	a.errs = append(a.errs, fmt.Sprintf("worker %d: %v", id, err))
}

// Stats computes the level statistics.
func (a *Aggregator) Stats(elapsed time.Duration) LevelStats {
	stats := NewLevelStats(a.concurrency, a.start, elapsed, a.merged)
	stats.Workers = a.workers
	stats.FailedWorkers = len(a.errs)
	if len(a.errs) > 0 {
		stats.WorkerErrors = append([]string(nil), a.errs...)
		sort.Strings(stats.WorkerErrors)
	}
	return stats
}

// NewLevelStats merges results and derives the level statistics. Workers is
// set to len(results).
func NewLevelStats(concurrency int, start time.Time, elapsed time.Duration, results ...WorkerResult) LevelStats {
	merged := NewWorkerResult()
	for _, r := range results {
		merged.Absorb(r)
	}

	stats := LevelStats{
		Concurrency:      concurrency,
		Start:            start,
		Elapsed:          elapsed,
		ElapsedMs:        millis(elapsed),
		Workers:          len(results),
		Runs:             Summarize(merged.Runs),
		Positions:        make(map[int]Distribution, len(merged.PositionTimes)),
		PositionFailures: merged.PositionFailures,
		FailureReasons:   merged.FailureReasons,
		Successful:       merged.Successful,
		Failed:           merged.Failed,
		BytesSent:        merged.BytesSent,
		BytesReceived:    merged.BytesReceived,
		StatusClasses:    merged.StatusClasses,
	}
	for pos, samples := range merged.PositionTimes {
		stats.Positions[pos] = Summarize(samples)
	}
	return stats
}

// SortedPositions returns the positions that have samples in ascending order.
func (s LevelStats) SortedPositions() []int {
	out := make([]int, 0, len(s.Positions))
	for pos := range s.Positions {
		out = append(out, pos)
	}
	sort.Ints(out)
	return out
}
