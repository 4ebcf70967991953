// Package worker replays a session a fixed number of times and records what
// it measured. A worker owns its HTTP client and cookie jar; the session is
// only read.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/replayfire/internal/httpclient"
	"github.com/torosent/replayfire/internal/match"
	"github.com/torosent/replayfire/internal/metrics"
	"github.com/torosent/replayfire/internal/tracing"
	"github.com/torosent/replayfire/internal/transcript"
)

// CookiePolicy decides how long a cookie jar lives.
type CookiePolicy int

const (
	// CookiesPerPass starts every pass with an empty jar.
	CookiesPerPass CookiePolicy = iota
	// CookiesPerWorker keeps one client and jar for the worker's lifetime.
	CookiesPerWorker
)

func (p CookiePolicy) String() string {
	if p == CookiesPerWorker {
		return "per-worker"
	}
	return "per-pass"
}

// Doer sends requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
	CloseIdleConnections()
}

// ClientFactory creates the client used for a pass, or for the whole worker
// with CookiesPerWorker.
type ClientFactory func(httpclient.Options) (Doer, error)

// Options configure a Worker.
type Options struct {
	Session *transcript.Session
	Repeat  int
	Policy  match.Policy
	Cookies CookiePolicy

	// Client holds the transport settings. Keep-alive budget and timeout
	// default to the session's when unset.
	Client    httpclient.Options
	NewClient ClientFactory

	Tracer    trace.Tracer
	Propagate bool
	Logger    logrus.FieldLogger
}

// Worker replays a session. One Worker value may serve many goroutines: Run
// keeps all mutable state local.
type Worker struct {
	opts Options
}

// New returns a worker with defaults applied.
func New(opts Options) *Worker {
	if opts.Repeat < 1 {
		opts.Repeat = 1
	}
	if opts.Session != nil {
		if opts.Client.KeepAliveMax == 0 {
			opts.Client.KeepAliveMax = opts.Session.KeepAliveMax
		}
		if opts.Client.KeepAliveTimeout == 0 {
			opts.Client.KeepAliveTimeout = opts.Session.KeepAliveTimeout
		}
	}
	if opts.NewClient == nil {
		opts.NewClient = func(o httpclient.Options) (Doer, error) {
			return httpclient.NewClient(o)
		}
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if opts.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		opts.Logger = logger
	}
	return &Worker{opts: opts}
}

// Run replays the session Repeat times. Failed requests are recorded and never
// stop the pass. The returned error is a *FatalError when no client could be
// created, or the context error when ctx ended; the result then holds the
// passes completed so far.
func (w *Worker) Run(ctx context.Context, id int) (metrics.WorkerResult, error) {
	result := metrics.NewWorkerResult()
	if w.opts.Session == nil {
		return result, &FatalError{Err: errors.New("no session")}
	}
	log := w.opts.Logger.WithField("worker", id)

	var shared Doer
	if w.opts.Cookies == CookiesPerWorker {
		client, err := w.newClient()
		if err != nil {
			return result, err
		}
		defer client.CloseIdleConnections()
		shared = client
	}

	for pass := 1; pass <= w.opts.Repeat; pass++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		client := shared
		if client == nil {
			c, err := w.newClient()
			if err != nil {
				return result, err
			}
			client = c
		}

		elapsed, err := w.pass(ctx, id, client, &result, log)
		if shared == nil {
			client.CloseIdleConnections()
		}
		if err != nil {
			return result, err
		}
		result.AddRun(elapsed)
		log.WithFields(logrus.Fields{"pass": pass, "elapsed": elapsed}).Debug("pass complete")
	}
	return result, nil
}

func (w *Worker) newClient() (Doer, error) {
	client, err := w.opts.NewClient(w.opts.Client)
	if err != nil {
		return nil, &FatalError{Err: err}
	}
	return client, nil
}

// pass replays every entry once and returns the pass time minus the time
// spent in deliberate pauses.
func (w *Worker) pass(ctx context.Context, id int, client Doer, result *metrics.WorkerResult, log logrus.FieldLogger) (time.Duration, error) {
	start := time.Now()
	var paused time.Duration

	for _, entry := range w.opts.Session.Entries {
		switch entry.Kind {
		case transcript.KindDelay:
			slept, err := sleep(ctx, entry.Delay)
			paused += slept
			if err != nil {
				return 0, err
			}
		case transcript.KindExchange:
			w.exchange(ctx, id, client, entry, result, log)
		}
	}

	elapsed := time.Since(start) - paused
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed, nil
}

func (w *Worker) exchange(ctx context.Context, id int, client Doer, entry transcript.Entry, result *metrics.WorkerResult, log logrus.FieldLogger) {
	result.AddSent(entry.RequestSize)

	ctx, span := tracing.StartRequestSpan(ctx, w.opts.Tracer, entry.Request.Method, entry.Request.URL, entry.Position, id)
	start := time.Now()
	status, received, err := w.send(ctx, client, entry)
	elapsed := time.Since(start)
	tracing.EndSpan(span, status, err)

	if err != nil {
		reason := ReasonTransport
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			reason = reqErr.Reason
		}
		result.RecordFailure(entry.Position, elapsed, reason)
		log.WithFields(logrus.Fields{
			"position": entry.Position,
			"url":      urlString(entry.Request),
			"reason":   reason,
		}).WithError(err).Debug("request failed")
		return
	}
	result.RecordSuccess(entry.Position, elapsed, received, status)
}

// send issues one request and checks the response. It returns the live status
// code, the received byte count and a *RequestError on failure.
func (w *Worker) send(ctx context.Context, client Doer, entry transcript.Entry) (int, int64, error) {
	fail := func(reason string, err error) error {
		return &RequestError{Position: entry.Position, Reason: reason, Err: err}
	}

	req, err := httpclient.BuildRequest(ctx, entry.Request)
	if err != nil {
		return 0, 0, fail(ReasonTransport, err)
	}
	if w.opts.Propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, fail(classify(err), err)
	}
	bodyLen, err := io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if err != nil {
		return resp.StatusCode, 0, fail(classify(err), err)
	}
	if resp.StatusCode == 0 {
		return 0, 0, fail(ReasonEmpty, errors.New("response has no status"))
	}

	live := httpclient.LiveResponse(resp)
	if !w.opts.Policy.Matches(entry.Expected, live) {
		return resp.StatusCode, 0, fail(ReasonMismatch,
			fmt.Errorf("got %q, want %q (%s)", live.StatusLine, entry.Expected.StatusLine, w.opts.Policy))
	}
	return resp.StatusCode, httpclient.ReceivedBytes(live, resp, bodyLen), nil
}

func sleep(ctx context.Context, d time.Duration) (time.Duration, error) {
	if d <= 0 {
		return 0, nil
	}
	start := time.Now()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return time.Since(start), nil
	case <-ctx.Done():
		return time.Since(start), ctx.Err()
	}
}

func urlString(r transcript.Request) string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}
