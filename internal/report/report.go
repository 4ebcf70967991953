// Package report holds the aggregate result of a replay run: one entry per
// concurrency level plus the positions those levels are keyed by.
package report

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/replayfire/internal/metrics"
	"github.com/torosent/replayfire/internal/transcript"
)

// Position identifies one exchange of the session.
type Position struct {
	Index  int    `json:"index" yaml:"index"`
	Method string `json:"method" yaml:"method"`
	URL    string `json:"url" yaml:"url"`
}

// Report is the read-only outcome of a run.
type Report struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Elapsed   time.Duration `json:"-" yaml:"-"`
	ElapsedMs float64       `json:"elapsed_ms" yaml:"elapsed_ms"`

	URLsTested    int           `json:"urls_tested" yaml:"urls_tested"`
	TotalDelay    time.Duration `json:"-" yaml:"-"`
	TotalDelayMs  float64       `json:"total_delay_ms" yaml:"total_delay_ms"`
	TotalRequests int64         `json:"total_requests" yaml:"total_requests"`
	Repeat        int           `json:"repeat" yaml:"repeat"`

	Levels    []metrics.LevelStats `json:"levels" yaml:"levels"`
	Positions []Position           `json:"positions" yaml:"positions"`
}

// New starts a report for session replayed repeat times per worker.
func New(session *transcript.Session, repeat int) *Report {
	r := &Report{
		RunID:     ulid.Make().String(),
		StartedAt: time.Now(),
		Repeat:    repeat,
	}
	if session == nil {
		return r
	}
	r.TotalDelay = session.TotalDelay
	r.TotalDelayMs = float64(session.TotalDelay) / float64(time.Millisecond)
	for _, e := range session.Exchanges() {
		pos := Position{Index: e.Position, Method: e.Request.Method}
		if e.Request.URL != nil {
			pos.URL = e.Request.URL.String()
		}
		r.Positions = append(r.Positions, pos)
	}
	r.URLsTested = len(r.Positions)
	return r
}

// AddLevel appends the statistics of a completed level.
func (r *Report) AddLevel(stats metrics.LevelStats) {
	r.Levels = append(r.Levels, stats)
	r.TotalRequests += stats.Requests()
}

// Finish records the run's wall time.
func (r *Report) Finish(elapsed time.Duration) {
	r.Elapsed = elapsed
	r.ElapsedMs = float64(elapsed) / float64(time.Millisecond)
}

// PositionURL returns the URL recorded at 1-based position i.
func (r *Report) PositionURL(i int) (string, bool) {
	for _, p := range r.Positions {
		if p.Index == i {
			return p.URL, true
		}
	}
	return "", false
}

// Level returns the statistics for the given concurrency.
func (r *Report) Level(concurrency int) (metrics.LevelStats, bool) {
	for _, l := range r.Levels {
		if l.Concurrency == concurrency {
			return l, true
		}
	}
	return metrics.LevelStats{}, false
}

// FailedRequests is the number of failed requests over all levels.
func (r *Report) FailedRequests() int64 {
	var n int64
	for _, l := range r.Levels {
		n += l.Failed
	}
	return n
}

// FailedWorkers is the number of workers that stopped with a fatal error.
func (r *Report) FailedWorkers() int {
	n := 0
	for _, l := range r.Levels {
		n += l.FailedWorkers
	}
	return n
}
