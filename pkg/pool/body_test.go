package pool

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestAggregate(t *testing.T) {
	body, err := Aggregate(strings.NewReader("hello body"))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if string(body) != "hello body" {
		t.Errorf("Aggregate = %q, want %q", body, "hello body")
	}
}

func TestAggregateEmpty(t *testing.T) {
	body, err := Aggregate(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(body) != 0 {
		t.Errorf("Aggregate of empty reader returned %d bytes", len(body))
	}
}

func TestAggregateLargerThanChunk(t *testing.T) {
	// Three transfer chunks plus a remainder
	payload := bytes.Repeat([]byte("x"), 3*transferSize+17)
	body, err := Aggregate(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if !bytes.Equal(body, payload) {
		t.Errorf("Aggregate corrupted payload: got %d bytes, want %d", len(body), len(payload))
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("read failed")
}

func TestAggregateSurfacesReadError(t *testing.T) {
	if _, err := Aggregate(failingReader{}); err == nil {
		t.Error("expected read error, got nil")
	}
}

func TestCopyBodyCount(t *testing.T) {
	var dst bytes.Buffer
	n, err := CopyBody(&dst, strings.NewReader("12345"))
	if err != nil {
		t.Fatalf("CopyBody failed: %v", err)
	}
	if n != 5 {
		t.Errorf("CopyBody copied %d bytes, want 5", n)
	}
	if dst.String() != "12345" {
		t.Errorf("CopyBody wrote %q", dst.String())
	}
}

func TestCopyBodyConcurrent(t *testing.T) {
	payload := bytes.Repeat([]byte("y"), transferSize/2)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var dst bytes.Buffer
			if _, err := CopyBody(&dst, bytes.NewReader(payload)); err != nil {
				t.Errorf("CopyBody failed: %v", err)
				return
			}
			if dst.Len() != len(payload) {
				t.Errorf("copied %d bytes, want %d", dst.Len(), len(payload))
			}
		}()
	}
	wg.Wait()
}
