package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type fakeStage string

func (s fakeStage) String() string { return string(s) }

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", &buf)
	if log == nil {
		t.Fatal("New() returned nil")
	}

	log.Info("test message", "key", "value")
	out := buf.String()
	if !strings.Contains(out, "test message") {
		t.Errorf("output missing message: %s", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("output missing attribute: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", &buf)

	log.Debug("hidden")
	log.Info("also hidden")
	log.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-level messages leaked: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New("bogus", &buf)

	log.Debug("hidden")
	log.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug leaked at fallback level: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("info missing at fallback level: %s", out)
	}
}

func TestComponentScope(t *testing.T) {
	var buf bytes.Buffer
	New("info", &buf).Component("client").Info("request")

	if !strings.Contains(buf.String(), "component=client") {
		t.Errorf("missing component attribute: %s", buf.String())
	}
}

func TestRequestScope(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", &buf).Test("homepage").Request("GET", "https://example.com/", 3)
	log.Info("request failed")

	out := buf.String()
	for _, want := range []string{"test=homepage", "method=GET", "url=https://example.com/", "attempt=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in: %s", want, out)
		}
	}
}

func TestStage(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", &buf)
	log.Stage(fakeStage("TLS"), 12*time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, "stage=TLS") {
		t.Errorf("missing stage attribute: %s", out)
	}
	if !strings.Contains(out, "elapsed=12ms") {
		t.Errorf("missing elapsed attribute: %s", out)
	}

	// Stage detail stays below info
	buf.Reset()
	New("info", &buf).Stage(fakeStage("TLS"), time.Millisecond)
	if buf.Len() != 0 {
		t.Errorf("stage logged above debug level: %s", buf.String())
	}
}
