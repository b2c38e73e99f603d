package metrics

import (
	"sync"
	"time"
)

// InterestKind selects which facet of a metric a registration tracks.
type InterestKind int

const (
	// InterestCount tracks a monotonically increasing counter
	InterestCount InterestKind = iota
	// InterestGauge tracks a last-write-wins scalar
	InterestGauge
	// InterestLatencyPercentile tracks a latency histogram
	InterestLatencyPercentile
)

// Interest is a declared intent to track a metric key under one facet.
type Interest[K comparable] struct {
	Kind InterestKind
	Key  K
}

// Count declares counter interest in a key
func Count[K comparable](key K) Interest[K] {
	return Interest[K]{Kind: InterestCount, Key: key}
}

// Gauge declares gauge interest in a key
func Gauge[K comparable](key K) Interest[K] {
	return Interest[K]{Kind: InterestGauge, Key: key}
}

// LatencyPercentile declares latency histogram interest in a key
func LatencyPercentile[K comparable](key K) Interest[K] {
	return Interest[K]{Kind: InterestLatencyPercentile, Key: key}
}

// sampleQueue is the unbounded multi-producer/single-consumer queue
// between handles and the collector. Pushes never block; the consumer
// swaps the pending batch out under the lock.
type sampleQueue[K comparable] struct {
	mu        sync.Mutex
	cond      *sync.Cond
	samples   []Sample[K]
	producers int
}

func newSampleQueue[K comparable]() *sampleQueue[K] {
	q := &sampleQueue[K]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *sampleQueue[K]) push(s Sample[K]) {
	q.mu.Lock()
	q.samples = append(q.samples, s)
	q.mu.Unlock()
	q.cond.Signal()
}

// drain removes and returns all currently queued samples
func (q *sampleQueue[K]) drain() []Sample[K] {
	q.mu.Lock()
	batch := q.samples
	q.samples = nil
	q.mu.Unlock()
	return batch
}

// drainWait blocks until samples are queued or the last producer has
// closed. The second return is false once the queue is empty with no
// producers left.
func (q *sampleQueue[K]) drainWait() ([]Sample[K], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.samples) == 0 && q.producers > 0 {
		q.cond.Wait()
	}
	batch := q.samples
	q.samples = nil
	return batch, len(batch) > 0 || q.producers > 0
}

func (q *sampleQueue[K]) addProducer() {
	q.mu.Lock()
	q.producers++
	q.mu.Unlock()
}

func (q *sampleQueue[K]) dropProducer() {
	q.mu.Lock()
	q.producers--
	done := q.producers == 0
	q.mu.Unlock()
	if done {
		q.cond.Broadcast()
	}
}

// Collector owns the three metric registries and drains the sample
// queue into them. Registries are mutated only on the drain path;
// Snapshot readers run concurrently under the read lock and always
// observe a prefix of the sample stream.
type Collector[K comparable] struct {
	mu          sync.RWMutex
	counters    *Counters[K]
	gauges      *Gauges[K]
	histograms  *Histograms[K]
	queue       *sampleQueue[K]
	percentiles []Percentile
}

// New creates an empty collector with the default percentile set
func New[K comparable]() *Collector[K] {
	return &Collector[K]{
		counters:    NewCounters[K](),
		gauges:      NewGauges[K](),
		histograms:  NewHistograms[K](),
		queue:       newSampleQueue[K](),
		percentiles: DefaultPercentiles(),
	}
}

// Register declares interest in a metric facet. Interests should be
// registered before sampling begins; samples for unregistered facets
// are silently dropped on drain.
func (c *Collector[K]) Register(interest Interest[K]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch interest.Kind {
	case InterestCount:
		c.counters.Init(interest.Key)
	case InterestGauge:
		c.gauges.Init(interest.Key)
	case InterestLatencyPercentile:
		c.histograms.Init(interest.Key)
	}
}

// SetPercentiles overrides the percentile set evaluated by new snapshots
func (c *Collector[K]) SetPercentiles(percentiles []Percentile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.percentiles = append([]Percentile(nil), percentiles...)
}

// Handle returns a new producer endpoint. Handles are cheap, safe for
// concurrent use, and may be cloned freely; each handle (including
// clones) must be closed for ProcessBlocking to terminate.
func (c *Collector[K]) Handle() *CollectorHandle[K] {
	c.queue.addProducer()
	return &CollectorHandle[K]{queue: c.queue}
}

// ProcessOutstanding drains all currently queued samples into the
// registries without blocking.
func (c *Collector[K]) ProcessOutstanding() {
	c.apply(c.queue.drain())
}

// ProcessBlocking drains samples until every producer handle has been
// closed and the queue is empty.
func (c *Collector[K]) ProcessBlocking() {
	for {
		batch, more := c.queue.drainWait()
		c.apply(batch)
		if !more {
			return
		}
	}
}

// apply folds a batch of samples into the registries. Elapsed samples
// update all three facets with the duration in microseconds; counts
// update the counter alone; values update counter and gauge.
func (c *Collector[K]) apply(batch []Sample[K]) {
	if len(batch) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range batch {
		key := s.Key()
		switch s.Kind() {
		case KindElapsed:
			micros := DurToMicros(s.Duration())
			c.counters.Increment(key)
			c.gauges.Set(key, micros)
			c.histograms.Record(key, micros)
		case KindCount:
			c.counters.IncrementBy(key, s.Amount())
		case KindValue:
			c.counters.Increment(key)
			c.gauges.Set(key, s.Amount())
		}
	}
}

// Snapshot builds an immutable point-in-time view of a single key.
// The histogram is cloned first; percentiles are computed on the clone.
func (c *Collector[K]) Snapshot(key K) Snapshot[K] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot[K]{key: key}
	snap.count, snap.hasCount = c.counters.Get(key)
	snap.gauge, snap.hasGauge = c.gauges.Get(key)
	if histo, ok := c.histograms.Get(key); ok {
		snap.latency = HistoSnapshotFrom(histo, c.percentiles)
		snap.hasLatency = true
	}
	return snap
}

// CollectorHandle is the producer endpoint over the collector's sample
// queue. Sends are non-blocking and infallible; sends that arrive after
// the collector stops draining are absorbed by the queue.
type CollectorHandle[K comparable] struct {
	queue     *sampleQueue[K]
	closeOnce sync.Once
}

// Send enqueues a sample
func (h *CollectorHandle[K]) Send(s Sample[K]) {
	h.queue.push(s)
}

// SendElapsed enqueues an elapsed sample for the key
func (h *CollectorHandle[K]) SendElapsed(key K, d time.Duration) {
	h.Send(ElapsedSample(key, d))
}

// SendCount enqueues a count sample for the key
func (h *CollectorHandle[K]) SendCount(key K, n uint64) {
	h.Send(CountSample(key, n))
}

// SendValue enqueues a value sample for the key
func (h *CollectorHandle[K]) SendValue(key K, v uint64) {
	h.Send(ValueSample(key, v))
}

// Stopwatch starts a stopwatch for measuring a stage
func (h *CollectorHandle[K]) Stopwatch() Stopwatch {
	return NewStopwatch()
}

// Clone returns an independent handle over the same queue
func (h *CollectorHandle[K]) Clone() *CollectorHandle[K] {
	h.queue.addProducer()
	return &CollectorHandle[K]{queue: h.queue}
}

// Close releases the handle's producer slot. Closing is idempotent;
// sends after Close are still accepted.
func (h *CollectorHandle[K]) Close() {
	h.closeOnce.Do(h.queue.dropProducer)
}
