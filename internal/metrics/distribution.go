package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Track latencies from 1µs up to 10min with 3 significant figures.
const (
	histLowest  = 1
	histHighest = int64(10 * time.Minute / time.Microsecond)
	histSigFigs = 3
)

// Distribution summarizes a set of latency samples.
type Distribution struct {
	Count  int           `json:"count" yaml:"count"`
	Min    time.Duration `json:"-" yaml:"-"`
	Max    time.Duration `json:"-" yaml:"-"`
	Mean   time.Duration `json:"-" yaml:"-"`
	StdDev time.Duration `json:"-" yaml:"-"`
	Median time.Duration `json:"-" yaml:"-"`
	P90    time.Duration `json:"-" yaml:"-"`
	P95    time.Duration `json:"-" yaml:"-"`
	P99    time.Duration `json:"-" yaml:"-"`

	// JSON-friendly millisecond fields.
	MinMs    float64 `json:"min_ms" yaml:"min_ms"`
	MaxMs    float64 `json:"max_ms" yaml:"max_ms"`
	MeanMs   float64 `json:"mean_ms" yaml:"mean_ms"`
	StdDevMs float64 `json:"stddev_ms" yaml:"stddev_ms"`
	MedianMs float64 `json:"median_ms" yaml:"median_ms"`
	P90Ms    float64 `json:"p90_ms" yaml:"p90_ms"`
	P95Ms    float64 `json:"p95_ms" yaml:"p95_ms"`
	P99Ms    float64 `json:"p99_ms" yaml:"p99_ms"`
}

// Summarize computes the distribution of samples. Min, max, mean, standard
// deviation (population) and median are exact; p90/p95/p99 come from an HDR
// histogram. The result only depends on the multiset of samples.
func Summarize(samples []time.Duration) Distribution {
	n := len(samples)
	if n == 0 {
		return Distribution{}
	}

	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	hist := hdrhistogram.New(histLowest, histHighest, histSigFigs)
	for _, d := range sorted {
		sum += d
		_ = hist.RecordValue(clampMicros(d))
	}
	mean := float64(sum) / float64(n)

	var sq float64
	for _, d := range sorted {
		diff := float64(d) - mean
		sq += diff * diff
	}

	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	dist := Distribution{
		Count:  n,
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   time.Duration(math.Round(mean)),
		StdDev: time.Duration(math.Round(math.Sqrt(sq / float64(n)))),
		Median: median,
		P90:    time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond,
		P95:    time.Duration(hist.ValueAtQuantile(95)) * time.Microsecond,
		P99:    time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
	}
	dist.MinMs = millis(dist.Min)
	dist.MaxMs = millis(dist.Max)
	dist.MeanMs = millis(dist.Mean)
	dist.StdDevMs = millis(dist.StdDev)
	dist.MedianMs = millis(dist.Median)
	dist.P90Ms = millis(dist.P90)
	dist.P95Ms = millis(dist.P95)
	dist.P99Ms = millis(dist.P99)
	return dist
}

func clampMicros(d time.Duration) int64 {
	us := d.Microseconds()
	if us < histLowest {
		return histLowest
	}
	if us > histHighest {
		return histHighest
	}
	return us
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
