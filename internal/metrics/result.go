package metrics

import "time"

// WorkerResult is everything one worker measured over all of its passes.
type WorkerResult struct {
	Successful    int64
	Failed        int64
	BytesSent     int64
	BytesReceived int64
	StatusClasses StatusClasses

	// Runs holds the elapsed time of every pass.
	Runs []time.Duration
	// PositionTimes holds, per session position, one sample per pass.
	PositionTimes map[int][]time.Duration
	// PositionFailures counts failed requests per session position.
	PositionFailures map[int]int64
	// FailureReasons counts failed requests per failure reason.
	FailureReasons map[string]int64
}

// NewWorkerResult returns an empty result ready for recording.
func NewWorkerResult() WorkerResult {
	return WorkerResult{
		PositionTimes:    make(map[int][]time.Duration),
		PositionFailures: make(map[int]int64),
		FailureReasons:   make(map[string]int64),
	}
}

// AddRun records the elapsed time of one full pass.
func (r *WorkerResult) AddRun(elapsed time.Duration) {
	r.Runs = append(r.Runs, elapsed)
}

// AddSent accounts for bytes written, whatever the request outcome.
func (r *WorkerResult) AddSent(n int64) {
	r.BytesSent += n
}

// RecordSuccess records a request whose response matched.
func (r *WorkerResult) RecordSuccess(position int, elapsed time.Duration, received int64, statusCode int) {
	r.ensure()
	r.Successful++
	r.BytesReceived += received
	r.StatusClasses.Add(statusCode)
	r.PositionTimes[position] = append(r.PositionTimes[position], elapsed)
}

// RecordFailure records a failed request.
func (r *WorkerResult) RecordFailure(position int, elapsed time.Duration, reason string) {
	r.ensure()
	r.Failed++
	r.PositionTimes[position] = append(r.PositionTimes[position], elapsed)
	r.PositionFailures[position]++
	if reason != "" {
		r.FailureReasons[reason]++
	}
}

// Requests is the number of requests issued.
func (r WorkerResult) Requests() int64 {
	return r.Successful + r.Failed
}

// Merge returns the combination of r and o. Neither input is modified.
func (r WorkerResult) Merge(o WorkerResult) WorkerResult {
	out := NewWorkerResult()
	out.Runs = make([]time.Duration, 0, len(r.Runs)+len(o.Runs))
	out.Absorb(r)
	out.Absorb(o)
	return out
}

// Absorb adds o into r in place. o is not modified; r's sample slices grow
// by appending, so absorbing N workers costs O(total samples).
func (r *WorkerResult) Absorb(o WorkerResult) {
	r.ensure()
	r.Successful += o.Successful
	r.Failed += o.Failed
	r.BytesSent += o.BytesSent
	r.BytesReceived += o.BytesReceived
	r.StatusClasses = r.StatusClasses.Plus(o.StatusClasses)
	r.Runs = append(r.Runs, o.Runs...)

	for pos, samples := range o.PositionTimes {
		r.PositionTimes[pos] = append(r.PositionTimes[pos], samples...)
	}
	for pos, n := range o.PositionFailures {
		r.PositionFailures[pos] += n
	}
	for reason, n := range o.FailureReasons {
		r.FailureReasons[reason] += n
	}
}

func (r *WorkerResult) ensure() {
	if r.PositionTimes == nil {
		r.PositionTimes = make(map[int][]time.Duration)
	}
	if r.PositionFailures == nil {
		r.PositionFailures = make(map[int]int64)
	}
	if r.FailureReasons == nil {
		r.FailureReasons = make(map[string]int64)
	}
}
