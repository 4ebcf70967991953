package output

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/replayfire/internal/metrics"
)

// ProgressReporter displays real-time progress across concurrency levels.
// Feed it with LevelDone from the runner's level hook.
type ProgressReporter struct {
	total    int
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	start    time.Time

	mu       sync.Mutex
	levels   int
	requests int64
	failed   int64
	last     int
}

// NewProgressReporter creates a progress reporter for totalLevels levels that
// updates at the given interval.
func NewProgressReporter(totalLevels int, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		total:    totalLevels,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
		start:    time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and terminates the progress line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer, p.line())
	}
}

// LevelDone records a completed level. Safe for concurrent use.
func (p *ProgressReporter) LevelDone(stats metrics.LevelStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels++
	p.requests += stats.Requests()
	p.failed += stats.Failed
	p.last = stats.Concurrency
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, p.line())
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) line() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := fmt.Sprintf("\rLevels: %d/%d | Requests: %d | Failures: %d | Elapsed: %s",
		p.levels, p.total, p.requests, p.failed, time.Since(p.start).Round(time.Second))
	if p.last > 0 {
		line += fmt.Sprintf(" | Last Level: c=%d", p.last)
	}
	return line
}
