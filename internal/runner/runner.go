package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/torosent/replayfire/internal/metrics"
	"github.com/torosent/replayfire/internal/report"
	"github.com/torosent/replayfire/internal/worker"
)

// Runner executes the level schedule.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

type outcome struct {
	id     int
	result metrics.WorkerResult
	err    error
}

// Run executes every level in order and returns the report. When ctx ends,
// the levels completed so far are returned together with the context error.
func (r *Runner) Run(ctx context.Context) (*report.Report, error) {
	if r.opt.Replayer == nil {
		return nil, errors.New("runner: no replayer configured")
	}
	if len(r.opt.Levels) == 0 {
		return nil, errors.New("runner: no concurrency levels")
	}

	rep := report.New(r.opt.Session, r.opt.Repeat)
	start := time.Now()
	defer func() { rep.Finish(time.Since(start)) }()

	for _, n := range r.opt.Levels {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		stats, err := r.runLevel(ctx, n)
		if err != nil {
			return rep, err
		}
		rep.AddLevel(stats)
		if r.opt.OnLevel != nil {
			r.opt.OnLevel(stats)
		}
	}
	return rep, nil
}

func (r *Runner) runLevel(ctx context.Context, n int) (metrics.LevelStats, error) {
	log := r.opt.Logger.WithField("concurrency", n)
	log.Info("starting level")

	start := time.Now()
	limiter := r.opt.LimiterFactory(r.opt.SpawnRate)
	results := make(chan outcome, n)

	var wg sync.WaitGroup
	var spawnErr error
	for id := 1; id <= n; id++ {
		if err := limiter.Wait(ctx); err != nil {
			spawnErr = err
			break
		}
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			res, err := r.opt.Replayer.Run(ctx, id)
			results <- outcome{id: id, result: res, err: err}
		}(id)
	}
	wg.Wait()
	close(results)
	elapsed := time.Since(start)

	if spawnErr != nil {
		return metrics.LevelStats{}, spawnErr
	}
	if err := ctx.Err(); err != nil {
		return metrics.LevelStats{}, err
	}

	agg := metrics.NewAggregator(n, start)
	for o := range results {
		if o.err != nil {
			log.WithFields(logrus.Fields{
				"worker": o.id,
				"fatal":  worker.IsFatal(o.err),
			}).WithError(o.err).Warn("worker failed")
			agg.AddFailure(o.id, o.err)
			continue
		}
		agg.Add(o.result)
	}
	stats := agg.Stats(elapsed)

	log.WithFields(logrus.Fields{
		"requests": stats.Requests(),
		"failed":   stats.Failed,
		"elapsed":  elapsed.Round(time.Millisecond),
	}).Info("level complete")
	return stats, nil
}
