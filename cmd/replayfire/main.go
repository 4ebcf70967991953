package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/torosent/replayfire/internal/config"
	"github.com/torosent/replayfire/internal/har"
	"github.com/torosent/replayfire/internal/httpclient"
	"github.com/torosent/replayfire/internal/output"
	"github.com/torosent/replayfire/internal/runner"
	"github.com/torosent/replayfire/internal/threshold"
	"github.com/torosent/replayfire/internal/tracing"
	"github.com/torosent/replayfire/internal/transcript"
	"github.com/torosent/replayfire/internal/worker"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

var errThresholdsFailed = errors.New("one or more thresholds failed")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}
	levels, err := runner.ResolveLevels(cfg.Concurrency, cfg.Step, cfg.MaxConcurrency)
	if err != nil {
		return err
	}

	session, err := loadSession(cfg)
	if err != nil {
		return err
	}
	if session.Len() == 0 {
		return errors.New("the capture contains no replayable requests")
	}
	policy := cfg.MatchPolicy()
	logger.WithFields(logrus.Fields{
		"requests":       session.Len(),
		"total_delay":    session.TotalDelay,
		"keep_alive_max": session.KeepAliveMax,
		"levels":         levels,
		"match_headers":  policy.Headers(),
	}).Info("session loaded")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("flushing spans failed")
		}
	}()

	cookies := worker.CookiesPerPass
	if cfg.ReuseCookies {
		cookies = worker.CookiesPerWorker
	}
	replayer := worker.New(worker.Options{
		Session: session,
		Repeat:  cfg.Repeat,
		Policy:  policy,
		Cookies: cookies,
		Client: httpclient.Options{
			Timeout:            cfg.Timeout,
			KeepAlive:          cfg.KeepAlive,
			InsecureSkipVerify: cfg.Insecure,
		},
		Tracer:    provider.Tracer(),
		Propagate: provider.ShouldPropagate(),
		Logger:    logger,
	})

	opts := runner.Options{
		Levels:    levels,
		Replayer:  replayer,
		Session:   session,
		Repeat:    cfg.Repeat,
		SpawnRate: cfg.SpawnRate,
		Logger:    logger,
	}

	var progress *output.ProgressReporter
	if cfg.Output == config.OutputText {
		progress = output.NewProgressReporter(len(levels), progressInterval, stderr)
		opts.OnLevel = progress.LevelDone
		progress.Start()
	}

	rep, runErr := runner.New(opts).Run(ctx)
	if progress != nil {
		progress.Stop()
	}
	if rep == nil {
		return runErr
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(rep.Levels)
	if err := output.Write(stdout, rep, results, cfg.Output); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("replay interrupted after %d levels: %w", len(rep.Levels), runErr)
	}
	if !threshold.Passed(results) {
		return errThresholdsFailed
	}
	if cfg.FailOnErrors {
		if n := rep.FailedRequests(); n > 0 {
			return fmt.Errorf("%d requests failed", n)
		}
		if n := rep.FailedWorkers(); n > 0 {
			return fmt.Errorf("%d workers failed", n)
		}
	}
	return nil
}

// loadSession reads the transcript, or the HAR file when one is configured.
func loadSession(cfg *config.Config) (*transcript.Session, error) {
	opts := cfg.TranscriptOptions()

	harFile := strings.TrimSpace(cfg.HARFile)
	if harFile == "" {
		return transcript.ParseFile(strings.TrimSpace(cfg.Input), opts)
	}

	filter, err := har.ParseFilter(cfg.HARFilter)
	if err != nil {
		return nil, err
	}
	archive, err := har.ParseFile(harFile)
	if err != nil {
		return nil, err
	}
	session, err := har.ToSession(archive, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to convert HAR: %w", err)
	}
	return session, nil
}
