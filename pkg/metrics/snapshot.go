package metrics

import (
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// Percentile is a labeled percentile in [0, 100] evaluated against a
// latency histogram.
type Percentile struct {
	Label      string
	Percentile float64
}

// NewPercentile creates a labeled percentile
func NewPercentile(label string, percentile float64) Percentile {
	return Percentile{Label: label, Percentile: percentile}
}

// String returns the percentile's label
func (p Percentile) String() string {
	return p.Label
}

// DefaultPercentiles returns the percentile set used by new collectors
func DefaultPercentiles() []Percentile {
	return []Percentile{
		NewPercentile("p50", 50.0),
		NewPercentile("p75", 75.0),
		NewPercentile("p90", 90.0),
		NewPercentile("p95", 95.0),
		NewPercentile("p99", 99.0),
		NewPercentile("p99.9", 99.9),
	}
}

// PercentileValue pairs a percentile with its evaluated duration
type PercentileValue struct {
	Percentile Percentile
	Value      time.Duration
}

// HistoSnapshot is an immutable summary of a latency histogram, with all
// values expressed as durations derived from microseconds. Mean and
// stdev are truncated to whole microseconds.
type HistoSnapshot struct {
	Min         time.Duration
	Max         time.Duration
	Mean        time.Duration
	Stdev       time.Duration
	Percentiles []PercentileValue
}

// HistoSnapshotFrom summarizes a histogram against the given percentile set
func HistoSnapshotFrom(histo *hdrhistogram.Histogram, percentiles []Percentile) HistoSnapshot {
	values := make([]PercentileValue, 0, len(percentiles))
	for _, p := range percentiles {
		values = append(values, PercentileValue{
			Percentile: p,
			Value:      MicrosToDur(uint64(histo.ValueAtQuantile(p.Percentile))),
		})
	}
	return HistoSnapshot{
		Min:         MicrosToDur(uint64(histo.Min())),
		Max:         MicrosToDur(uint64(histo.Max())),
		Mean:        MicrosToDur(uint64(histo.Mean())),
		Stdev:       MicrosToDur(uint64(histo.StdDev())),
		Percentiles: values,
	}
}

// Snapshot is a point-in-time view of a single metric key. It is a value
// type: once constructed it never observes later registry mutations.
// Facets the key is not registered for report ok == false.
type Snapshot[K comparable] struct {
	key        K
	count      uint64
	gauge      uint64
	hasCount   bool
	hasGauge   bool
	latency    HistoSnapshot
	hasLatency bool
}

// Key returns the metric key the snapshot describes
func (s Snapshot[K]) Key() K {
	return s.key
}

// Count returns the counter facet
func (s Snapshot[K]) Count() (uint64, bool) {
	return s.count, s.hasCount
}

// CountOrZero returns the counter value, or zero when untracked
func (s Snapshot[K]) CountOrZero() uint64 {
	return s.count
}

// Gauge returns the gauge facet
func (s Snapshot[K]) Gauge() (uint64, bool) {
	return s.gauge, s.hasGauge
}

// GaugeAsDuration interprets the gauge as microseconds
func (s Snapshot[K]) GaugeAsDuration() (time.Duration, bool) {
	return MicrosToDur(s.gauge), s.hasGauge
}

// Latency returns the latency histogram facet
func (s Snapshot[K]) Latency() (HistoSnapshot, bool) {
	return s.latency, s.hasLatency
}
