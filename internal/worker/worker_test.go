package worker_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/torosent/replayfire/internal/httpclient"
	"github.com/torosent/replayfire/internal/match"
	"github.com/torosent/replayfire/internal/transcript"
	"github.com/torosent/replayfire/internal/worker"
)

type step struct {
	path   string
	status string
	delay  time.Duration
}

// buildSession creates a session of GET exchanges against base. A step with a
// delay becomes a pause.
func buildSession(t *testing.T, base string, steps ...step) *transcript.Session {
	t.Helper()
	s := &transcript.Session{}
	pos := 0
	for _, st := range steps {
		if st.delay > 0 {
			s.Entries = append(s.Entries, transcript.Entry{Kind: transcript.KindDelay, Delay: st.delay})
			s.TotalDelay += st.delay
			continue
		}
		u, err := url.Parse(base + st.path)
		if err != nil {
			t.Fatalf("parse url: %v", err)
		}
		pos++
		req := transcript.Request{
			Method:        "GET",
			URL:           u,
			Proto:         "HTTP/1.1",
			Headers:       transcript.Headers{{Name: "Host", Value: u.Host}},
			ContentLength: -1,
		}
		s.Entries = append(s.Entries, transcript.Entry{
			Kind:        transcript.KindExchange,
			Position:    pos,
			Request:     req,
			Expected:    transcript.Response{StatusLine: st.status},
			RequestSize: req.WireSize(),
		})
	}
	return s
}

func TestRunRecordsSuccesses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, "hello")
	}))
	defer server.Close()

	session := buildSession(t, server.URL,
		step{path: "/", status: "HTTP/1.1 200 OK"},
		step{path: "/missing", status: "HTTP/1.1 404 Not Found"},
	)
	w := worker.New(worker.Options{Session: session, Repeat: 3, Client: httpclient.Options{Timeout: time.Second}})

	result, err := w.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Successful != 6 || result.Failed != 0 {
		t.Fatalf("Successful/Failed = %d/%d, want 6/0", result.Successful, result.Failed)
	}
	if len(result.Runs) != 3 {
		t.Errorf("Runs = %d, want 3", len(result.Runs))
	}
	for _, pos := range []int{1, 2} {
		if got := len(result.PositionTimes[pos]); got != 3 {
			t.Errorf("position %d samples = %d, want 3", pos, got)
		}
	}
	wantSent := 3 * (session.Entries[0].RequestSize + session.Entries[1].RequestSize)
	if result.BytesSent != wantSent {
		t.Errorf("BytesSent = %d, want %d", result.BytesSent, wantSent)
	}
	// Content-Length: 5 is declared for the 200 responses.
	if result.BytesReceived < 15 {
		t.Errorf("BytesReceived = %d, want at least 15", result.BytesReceived)
	}
	if result.StatusClasses[1] != 3 || result.StatusClasses[3] != 3 {
		t.Errorf("StatusClasses = %v, want 3x2xx and 3x4xx", result.StatusClasses)
	}
}

func TestRunSpeaksHTTP1AgainstHTTP2Server(t *testing.T) {
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ProtoMajor != 1 {
			t.Errorf("request proto = %s, want HTTP/1.x", r.Proto)
		}
		w.WriteHeader(http.StatusOK)
	}))
	server.EnableHTTP2 = true
	server.StartTLS()
	defer server.Close()

	session := buildSession(t, server.URL, step{path: "/", status: "HTTP/1.1 200 OK"})
	w := worker.New(worker.Options{
		Session: session,
		Client:  httpclient.Options{Timeout: time.Second, InsecureSkipVerify: true},
	})

	result, err := w.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Successful != 1 || result.Failed != 0 {
		t.Fatalf("Successful/Failed = %d/%d, want 1/0 (reasons %v)", result.Successful, result.Failed, result.FailureReasons)
	}
}

func TestRunNeverMatching(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	session := buildSession(t, server.URL, step{path: "/", status: "HTTP/1.1 200 OK"})
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	w := worker.New(worker.Options{Session: session, Repeat: 2, Logger: logger})
	result, err := w.Run(context.Background(), 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Failed != 2 || result.Successful != 0 {
		t.Fatalf("Failed/Successful = %d/%d, want 2/0", result.Failed, result.Successful)
	}
	if result.PositionFailures[1] != 2 {
		t.Errorf("PositionFailures[1] = %d, want 2", result.PositionFailures[1])
	}
	if result.FailureReasons[worker.ReasonMismatch] != 2 {
		t.Errorf("FailureReasons = %v", result.FailureReasons)
	}
	if result.StatusClasses.Total() != 0 {
		t.Errorf("failed requests must not count status classes: %v", result.StatusClasses)
	}
	if len(result.PositionTimes[1]) != 2 {
		t.Errorf("failures still record elapsed time, got %d samples", len(result.PositionTimes[1]))
	}

	entries := hook.AllEntries()
	if len(entries) < 2 {
		t.Fatalf("expected debug log entries for failures, got %d", len(entries))
	}
	first := entries[0]
	if first.Data["worker"] != 7 || first.Data["reason"] != worker.ReasonMismatch || first.Data["position"] != 1 {
		t.Errorf("log fields = %v", first.Data)
	}
}

func TestRunPolicyWithHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cache", "MISS")
	}))
	defer server.Close()

	session := buildSession(t, server.URL, step{path: "/", status: "HTTP/1.1 200 OK"})
	session.Entries[0].Expected.Headers = transcript.Headers{{Name: "X-Cache", Value: "HIT"}}

	statusOnly, _ := worker.New(worker.Options{Session: session}).Run(context.Background(), 0)
	if statusOnly.Successful != 1 {
		t.Errorf("status-only policy should accept, got %d successes", statusOnly.Successful)
	}
	strict, _ := worker.New(worker.Options{Session: session, Policy: match.StatusAndHeaders("X-Cache")}).Run(context.Background(), 0)
	if strict.Failed != 1 {
		t.Errorf("header policy should reject, got %d failures", strict.Failed)
	}
}

func TestRunDelayExcludedFromRunTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	pause := 200 * time.Millisecond
	session := buildSession(t, server.URL,
		step{path: "/a", status: "HTTP/1.1 200 OK"},
		step{delay: pause},
		step{path: "/b", status: "HTTP/1.1 200 OK"},
	)

	start := time.Now()
	result, err := worker.New(worker.Options{Session: session}).Run(context.Background(), 0)
	wall := time.Since(start)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if wall < pause {
		t.Fatalf("worker did not pause: wall time %s", wall)
	}
	if len(result.Runs) != 1 || result.Runs[0] >= pause {
		t.Fatalf("run time %v should exclude the %s pause", result.Runs, pause)
	}
	if _, ok := result.PositionTimes[2]; !ok {
		t.Fatal("position 2 missing; delays must not take a position")
	}
}

func TestRunCancelledDuringDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	session := buildSession(t, server.URL,
		step{path: "/", status: "HTTP/1.1 200 OK"},
		step{delay: time.Minute},
		step{path: "/", status: "HTTP/1.1 200 OK"},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := worker.New(worker.Options{Session: session}).Run(ctx, 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
	if result.Successful != 1 || len(result.Runs) != 0 {
		t.Fatalf("unexpected partial result: %+v", result)
	}
}

func TestRunCookiePolicies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			if _, err := r.Cookie("session"); err == nil {
				w.WriteHeader(http.StatusConflict)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
		case "/account":
			if _, err := r.Cookie("session"); err != nil {
				w.WriteHeader(http.StatusUnauthorized)
			}
		}
	}))
	defer server.Close()

	session := buildSession(t, server.URL,
		step{path: "/login", status: "HTTP/1.1 200 OK"},
		step{path: "/account", status: "HTTP/1.1 200 OK"},
	)

	perPass, err := worker.New(worker.Options{Session: session, Repeat: 2, Cookies: worker.CookiesPerPass}).Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if perPass.Successful != 4 {
		t.Errorf("per-pass jar: Successful = %d, want 4", perPass.Successful)
	}

	perWorker, err := worker.New(worker.Options{Session: session, Repeat: 2, Cookies: worker.CookiesPerWorker}).Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if perWorker.Successful != 3 || perWorker.PositionFailures[1] != 1 {
		t.Errorf("per-worker jar: Successful = %d, PositionFailures = %v, want 3 and one login failure",
			perWorker.Successful, perWorker.PositionFailures)
	}
}

func TestRunTimeoutIsAFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	session := buildSession(t, server.URL, step{path: "/", status: "HTTP/1.1 200 OK"})
	w := worker.New(worker.Options{Session: session, Client: httpclient.Options{Timeout: 50 * time.Millisecond}})

	result, err := w.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Failed != 1 || result.FailureReasons[worker.ReasonTimeout] != 1 {
		t.Fatalf("Failed = %d, FailureReasons = %v, want one timeout", result.Failed, result.FailureReasons)
	}
}

func TestRunTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	session := buildSession(t, base, step{path: "/", status: "HTTP/1.1 200 OK"}, step{path: "/x", status: "HTTP/1.1 200 OK"})
	result, err := worker.New(worker.Options{Session: session}).Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("transport failures must not stop the worker: %v", err)
	}
	if result.Failed != 2 || len(result.Runs) != 1 {
		t.Fatalf("Failed = %d, Runs = %d, want 2 and 1", result.Failed, len(result.Runs))
	}
}

func TestRunClientFactoryFailureIsFatal(t *testing.T) {
	session := buildSession(t, "http://example.invalid", step{path: "/", status: "HTTP/1.1 200 OK"})
	boom := errors.New("no jar")
	w := worker.New(worker.Options{
		Session: session,
		NewClient: func(httpclient.Options) (worker.Doer, error) {
			return nil, boom
		},
	})

	_, err := w.Run(context.Background(), 3)
	if !worker.IsFatal(err) || !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want fatal wrapping %v", err, boom)
	}
}

func TestRunUsesSessionKeepAlive(t *testing.T) {
	session := buildSession(t, "http://example.invalid", step{path: "/", status: "HTTP/1.1 200 OK"})
	session.KeepAliveMax = 42

	var got httpclient.Options
	var calls int32
	w := worker.New(worker.Options{
		Session: session,
		Repeat:  3,
		NewClient: func(o httpclient.Options) (worker.Doer, error) {
			atomic.AddInt32(&calls, 1)
			got = o
			return nil, errors.New("stop")
		},
	})
	_, _ = w.Run(context.Background(), 0)

	if got.KeepAliveMax != 42 {
		t.Errorf("KeepAliveMax = %d, want 42", got.KeepAliveMax)
	}
	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
}

func TestRunEmitsSpans(t *testing.T) {
	var sawTraceparent atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Traceparent") != "" {
			sawTraceparent.Store(true)
		}
	}))
	defer server.Close()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	session := buildSession(t, server.URL,
		step{path: "/a", status: "HTTP/1.1 200 OK"},
		step{path: "/b", status: "HTTP/1.1 200 OK"},
	)
	w := worker.New(worker.Options{Session: session, Repeat: 2, Tracer: tp.Tracer("test")})
	if _, err := w.Run(context.Background(), 0); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := len(exporter.GetSpans()); got != 4 {
		t.Fatalf("spans = %d, want 4", got)
	}
	if sawTraceparent.Load() {
		t.Fatal("traceparent injected without propagation enabled")
	}
}
