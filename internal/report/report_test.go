package report_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/replayfire/internal/metrics"
	"github.com/torosent/replayfire/internal/report"
	"github.com/torosent/replayfire/internal/transcript"
)

func session(t *testing.T) *transcript.Session {
	t.Helper()
	a, _ := url.Parse("http://example.com/")
	b, _ := url.Parse("http://example.com/cart")
	return &transcript.Session{
		Entries: []transcript.Entry{
			{Kind: transcript.KindExchange, Position: 1, Request: transcript.Request{Method: "GET", URL: a}},
			{Kind: transcript.KindDelay, Delay: 3 * time.Second},
			{Kind: transcript.KindExchange, Position: 2, Request: transcript.Request{Method: "POST", URL: b}},
		},
		TotalDelay: 3 * time.Second,
	}
}

func TestNew(t *testing.T) {
	r := report.New(session(t), 4)

	if _, err := ulid.Parse(r.RunID); err != nil {
		t.Errorf("RunID %q is not a ULID: %v", r.RunID, err)
	}
	if r.URLsTested != 2 {
		t.Errorf("URLsTested = %d, want 2", r.URLsTested)
	}
	if r.TotalDelay != 3*time.Second || r.TotalDelayMs != 3000 {
		t.Errorf("TotalDelay = %s (%v ms)", r.TotalDelay, r.TotalDelayMs)
	}
	if r.Repeat != 4 {
		t.Errorf("Repeat = %d, want 4", r.Repeat)
	}
	if got, ok := r.PositionURL(2); !ok || got != "http://example.com/cart" {
		t.Errorf("PositionURL(2) = %q, %v", got, ok)
	}
	if _, ok := r.PositionURL(3); ok {
		t.Error("PositionURL(3) should not exist")
	}
	if r.Positions[1].Method != "POST" {
		t.Errorf("Positions[1].Method = %s", r.Positions[1].Method)
	}
}

func TestAddLevelAndTotals(t *testing.T) {
	r := report.New(session(t), 1)
	r.AddLevel(metrics.LevelStats{Concurrency: 1, Successful: 4, Failed: 1})
	r.AddLevel(metrics.LevelStats{Concurrency: 5, Successful: 18, Failed: 2, FailedWorkers: 1})
	r.Finish(1500 * time.Millisecond)

	if r.TotalRequests != 25 {
		t.Errorf("TotalRequests = %d, want 25", r.TotalRequests)
	}
	if r.FailedRequests() != 3 {
		t.Errorf("FailedRequests() = %d, want 3", r.FailedRequests())
	}
	if r.FailedWorkers() != 1 {
		t.Errorf("FailedWorkers() = %d, want 1", r.FailedWorkers())
	}
	if l, ok := r.Level(5); !ok || l.Successful != 18 {
		t.Errorf("Level(5) = %+v, %v", l, ok)
	}
	if r.ElapsedMs != 1500 {
		t.Errorf("ElapsedMs = %v, want 1500", r.ElapsedMs)
	}
}
