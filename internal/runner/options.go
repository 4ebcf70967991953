package runner

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/torosent/replayfire/internal/metrics"
	"github.com/torosent/replayfire/internal/transcript"
)

// Replayer runs one worker to completion. *worker.Worker satisfies it.
type Replayer interface {
	Run(ctx context.Context, id int) (metrics.WorkerResult, error)
}

// Options configure the Runner.
type Options struct {
	Levels         []int                       // concurrency levels, ascending
	Replayer       Replayer                    // worker implementation (required)
	Session        *transcript.Session         // replayed session, describes report positions
	Repeat         int                         // passes per worker, recorded in the report
	SpawnRate      int                         // workers started per second (0 means all at once)
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
	Logger         logrus.FieldLogger
	// OnLevel, when set, is called after each level completes.
	OnLevel func(metrics.LevelStats)
}

func (o *Options) normalize() {
	if o.SpawnRate < 0 {
		o.SpawnRate = 0
	}
	if o.Repeat < 1 {
		o.Repeat = 1
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
	if o.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		o.Logger = logger
	}
}
