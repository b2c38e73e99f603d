package metrics

import hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"

// Histogram value bounds. Durations are recorded in microseconds, so
// the trackable range covers 1µs through 60s at three significant
// digits of precision.
const (
	histogramLow     = 1
	histogramHigh    = 60 * 1000 * 1000
	histogramSigFigs = 3
)

// Histograms tracks high-dynamic-range latency distributions per metric
// key. Records saturate: values outside [1, 60e6] are clamped to the
// nearest bound rather than rejected.
type Histograms[K comparable] struct {
	data map[K]*hdrhistogram.Histogram
}

// NewHistograms creates an empty histogram registry
func NewHistograms[K comparable]() *Histograms[K] {
	return &Histograms[K]{data: make(map[K]*hdrhistogram.Histogram)}
}

// Init registers interest in a key with a fresh histogram. Re-registering
// replaces any existing distribution.
func (h *Histograms[K]) Init(key K) {
	h.data[key] = hdrhistogram.New(histogramLow, histogramHigh, histogramSigFigs)
}

// Interested reports whether the key is registered
func (h *Histograms[K]) Interested(key K) bool {
	_, ok := h.data[key]
	return ok
}

// Record adds one observation of value to the key's histogram
func (h *Histograms[K]) Record(key K, value uint64) {
	h.RecordN(key, value, 1)
}

// RecordN adds count observations of value to the key's histogram,
// clamping value into the trackable range. No-op if unregistered.
func (h *Histograms[K]) RecordN(key K, value, count uint64) {
	histo, ok := h.data[key]
	if !ok {
		return
	}
	v := int64(value)
	if value > histogramHigh {
		v = histogramHigh
	}
	if v < histogramLow {
		v = histogramLow
	}
	// Cannot fail after clamping; hdrhistogram only rejects
	// out-of-range values.
	_ = histo.RecordValues(v, int64(count))
}

// Clear resets a registered key's distribution; no-op if unregistered
func (h *Histograms[K]) Clear(key K) {
	if histo, ok := h.data[key]; ok {
		histo.Reset()
	}
}

// Get returns a deep copy of the key's histogram, so callers may compute
// percentiles without racing the drain path.
func (h *Histograms[K]) Get(key K) (*hdrhistogram.Histogram, bool) {
	histo, ok := h.data[key]
	if !ok {
		return nil, false
	}
	return hdrhistogram.Import(histo.Export()), true
}

// Quantile returns the value at quantile q in [0, 1]
func (h *Histograms[K]) Quantile(key K, q float64) (uint64, bool) {
	histo, ok := h.data[key]
	if !ok {
		return 0, false
	}
	return uint64(histo.ValueAtQuantile(q * 100)), true
}

// Remove unregisters the key
func (h *Histograms[K]) Remove(key K) {
	delete(h.data, key)
}
