package metrics

import (
	"sync"
	"testing"
	"time"
)

type testKey int

const (
	keyFoo testKey = iota
	keyBar
)

func (k testKey) String() string {
	switch k {
	case keyFoo:
		return "Foo"
	case keyBar:
		return "Bar"
	default:
		return "Unknown"
	}
}

func TestCollectorElapsedUpdatesAllFacets(t *testing.T) {
	c := New[testKey]()
	c.Register(Count(keyFoo))
	c.Register(Gauge(keyFoo))
	c.Register(LatencyPercentile(keyFoo))

	handle := c.Handle()
	defer handle.Close()

	handle.SendElapsed(keyFoo, 1*time.Millisecond)
	handle.SendElapsed(keyFoo, 2*time.Millisecond)
	handle.SendElapsed(keyFoo, 3*time.Millisecond)
	c.ProcessOutstanding()

	snap := c.Snapshot(keyFoo)
	if count, ok := snap.Count(); !ok || count != 3 {
		t.Errorf("count = %d, %v, want 3, true", count, ok)
	}
	if gauge, ok := snap.Gauge(); !ok || gauge != 3000 {
		t.Errorf("gauge = %d, %v, want 3000, true", gauge, ok)
	}
	latency, ok := snap.Latency()
	if !ok {
		t.Fatal("latency facet missing")
	}
	if latency.Min != 1*time.Millisecond {
		t.Errorf("min = %v, want 1ms", latency.Min)
	}
	if latency.Max < 2990*time.Microsecond || latency.Max > 3010*time.Microsecond {
		t.Errorf("max = %v, want ~3ms", latency.Max)
	}
	if latency.Mean < 1900*time.Microsecond || latency.Mean > 2100*time.Microsecond {
		t.Errorf("mean = %v, want ~2ms", latency.Mean)
	}
}

func TestCollectorCountSample(t *testing.T) {
	c := New[testKey]()
	c.Register(Count(keyFoo))
	c.Register(Gauge(keyFoo))

	handle := c.Handle()
	defer handle.Close()

	handle.SendCount(keyFoo, 5)
	handle.SendCount(keyFoo, 7)
	c.ProcessOutstanding()

	snap := c.Snapshot(keyFoo)
	if count, _ := snap.Count(); count != 12 {
		t.Errorf("count = %d, want 12", count)
	}
	// Count samples never touch the gauge
	if gauge, _ := snap.Gauge(); gauge != 0 {
		t.Errorf("gauge = %d, want 0", gauge)
	}
}

func TestCollectorValueSample(t *testing.T) {
	c := New[testKey]()
	c.Register(Count(keyFoo))
	c.Register(Gauge(keyFoo))

	handle := c.Handle()
	defer handle.Close()

	handle.SendValue(keyFoo, 1234)
	c.ProcessOutstanding()

	snap := c.Snapshot(keyFoo)
	if count, _ := snap.Count(); count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if gauge, _ := snap.Gauge(); gauge != 1234 {
		t.Errorf("gauge = %d, want 1234", gauge)
	}
}

func TestCollectorUnregisteredKeyDropped(t *testing.T) {
	c := New[testKey]()
	c.Register(Count(keyFoo))

	handle := c.Handle()
	defer handle.Close()

	handle.SendElapsed(keyBar, time.Millisecond)
	c.ProcessOutstanding()

	snap := c.Snapshot(keyBar)
	if _, ok := snap.Count(); ok {
		t.Error("count facet present for unregistered key")
	}
	if _, ok := snap.Gauge(); ok {
		t.Error("gauge facet present for unregistered key")
	}
	if _, ok := snap.Latency(); ok {
		t.Error("latency facet present for unregistered key")
	}
}

func TestCollectorSnapshotIsValueType(t *testing.T) {
	c := New[testKey]()
	c.Register(Count(keyFoo))

	handle := c.Handle()
	defer handle.Close()

	handle.SendCount(keyFoo, 1)
	c.ProcessOutstanding()
	snap := c.Snapshot(keyFoo)

	handle.SendCount(keyFoo, 41)
	c.ProcessOutstanding()

	if count, _ := snap.Count(); count != 1 {
		t.Errorf("snapshot observed later mutation: count = %d, want 1", count)
	}
}

func TestProcessBlockingTerminatesWhenHandlesClose(t *testing.T) {
	c := New[testKey]()
	c.Register(Count(keyFoo))

	handle := c.Handle()
	clone := handle.Clone()

	var wg sync.WaitGroup
	wg.Add(2)
	for _, h := range []*CollectorHandle[testKey]{handle, clone} {
		go func(h *CollectorHandle[testKey]) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h.SendCount(keyFoo, 1)
			}
			h.Close()
		}(h)
	}

	done := make(chan struct{})
	go func() {
		c.ProcessBlocking()
		close(done)
	}()

	wg.Wait()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ProcessBlocking did not terminate after all handles closed")
	}

	snap := c.Snapshot(keyFoo)
	if count, _ := snap.Count(); count != 200 {
		t.Errorf("count = %d, want 200", count)
	}
}

func TestHandleCloseIdempotent(t *testing.T) {
	c := New[testKey]()
	handle := c.Handle()
	handle.Close()
	handle.Close()

	// Send after close is absorbed without panic
	handle.SendCount(keyFoo, 1)
}

func TestConcurrentSendAndSnapshot(t *testing.T) {
	c := New[testKey]()
	c.Register(Count(keyFoo))
	c.Register(Gauge(keyFoo))
	c.Register(LatencyPercentile(keyFoo))

	handle := c.Handle()

	const producers = 8
	const perProducer = 250

	var wg sync.WaitGroup
	wg.Add(producers)
	for i := 0; i < producers; i++ {
		h := handle.Clone()
		go func(h *CollectorHandle[testKey]) {
			defer wg.Done()
			defer h.Close()
			for j := 0; j < perProducer; j++ {
				h.SendElapsed(keyFoo, time.Duration(j+1)*time.Microsecond)
			}
		}(h)
	}
	handle.Close()

	stop := make(chan struct{})
	go func() {
		// Snapshot readers race the drain; they must never observe torn
		// state, only a prefix of the stream.
		for {
			select {
			case <-stop:
				return
			default:
				snap := c.Snapshot(keyFoo)
				if count, _ := snap.Count(); count > producers*perProducer {
					t.Error("snapshot count exceeds samples sent")
					return
				}
			}
		}
	}()

	c.ProcessBlocking()
	wg.Wait()
	close(stop)

	snap := c.Snapshot(keyFoo)
	if count, _ := snap.Count(); count != producers*perProducer {
		t.Errorf("count = %d, want %d", count, producers*perProducer)
	}
}

func TestRegisterThenRemoveYieldsEmptySnapshot(t *testing.T) {
	c := New[testKey]()
	c.Register(Count(keyFoo))
	c.Register(Gauge(keyFoo))
	c.Register(LatencyPercentile(keyFoo))

	handle := c.Handle()
	defer handle.Close()
	handle.SendElapsed(keyFoo, time.Millisecond)
	c.ProcessOutstanding()

	c.mu.Lock()
	c.counters.Remove(keyFoo)
	c.gauges.Remove(keyFoo)
	c.histograms.Remove(keyFoo)
	c.mu.Unlock()

	snap := c.Snapshot(keyFoo)
	if _, ok := snap.Count(); ok {
		t.Error("count facet survived removal")
	}
	if _, ok := snap.Gauge(); ok {
		t.Error("gauge facet survived removal")
	}
	if _, ok := snap.Latency(); ok {
		t.Error("latency facet survived removal")
	}
}

func TestStopwatchElapsedNonNegative(t *testing.T) {
	sw := NewStopwatch()
	if d := sw.Elapsed(); d < 0 {
		t.Errorf("elapsed = %v, want >= 0", d)
	}
	time.Sleep(time.Millisecond)
	first := sw.Elapsed()
	second := sw.Elapsed()
	if second < first {
		t.Errorf("stopwatch went backwards: %v then %v", first, second)
	}
}
