// Package runner drives a replay across an escalating schedule of
// concurrency levels.
//
// Levels run strictly one after another. For a level of N, the runner starts
// exactly N workers, waits for all of them, and merges their results into one
// [metrics.LevelStats]:
//
//	levels, err := runner.ResolveLevels(nil, 5, 12) // [1 5 10 12]
//	r := runner.New(runner.Options{
//		Levels:   levels,
//		Replayer: worker.New(workerOpts),
//		Session:  session,
//		Repeat:   workerOpts.Repeat,
//	})
//	rep, err := r.Run(ctx)
//
// Workers hand their results back over a channel; only the runner goroutine
// merges them.
//
// # Fatal workers
//
// A worker that cannot start (for example because its HTTP client could not
// be built) is left out of every count and distribution of its level. The
// level still completes with the remaining workers and reports the failure in
// FailedWorkers and WorkerErrors.
//
// # Spawn pacing
//
// SpawnRate limits how many workers start per second within a level, using a
// [rate.Limiter]. Zero starts them all at once.
package runner
