// Package metrics holds the measurements produced by replay workers and the
// statistics derived from them.
//
// # Worker results
//
// Every worker owns a [WorkerResult] that it fills while replaying the
// session. Nothing in a WorkerResult is shared, so recording needs no locking:
//
//	result := metrics.NewWorkerResult()
//	result.RecordSuccess(position, elapsed, receivedBytes, statusCode)
//	result.RecordFailure(position, elapsed, "timeout")
//	result.AddRun(passElapsed)
//
// # Level statistics
//
// Once every worker of a concurrency level has returned, the runner merges
// the results into a [LevelStats] with an [Aggregator]:
//
//	agg := metrics.NewAggregator(concurrency, start)
//	for _, r := range results {
//		agg.Add(r)
//	}
//	stats := agg.Stats(time.Since(start))
//
// Merging pools raw samples, so it is commutative and associative: the
// distributions only depend on the multiset of samples, never on the order
// in which workers finished.
//
// # Distributions
//
// [Summarize] computes exact min, max, mean, standard deviation and median
// from the pooled samples, and tail percentiles from an HDR histogram.
package metrics
