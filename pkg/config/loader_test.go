package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracer.conf")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
# tracer config
Nodelay false
DialTimeout 10s
TLSHandshakeTimeout 5s
BlockingWorkers 8
LogLevel debug
CaptureHeader Content-Type
CaptureHeader X-Cache
Percentile p50 50.0
Percentile p99 99.0
MetricsPort 9090
EnableMetrics true
`)

	cfg := DefaultConfig()
	if err := LoadFromFile(path, cfg); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Nodelay {
		t.Error("Nodelay should be false")
	}
	if cfg.DialTimeout != 10*time.Second {
		t.Errorf("DialTimeout = %v, want 10s", cfg.DialTimeout)
	}
	if cfg.TLSHandshakeTimeout != 5*time.Second {
		t.Errorf("TLSHandshakeTimeout = %v, want 5s", cfg.TLSHandshakeTimeout)
	}
	if cfg.BlockingWorkers != 8 {
		t.Errorf("BlockingWorkers = %d, want 8", cfg.BlockingWorkers)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !cfg.CaptureHeaders.Match("content-type") || !cfg.CaptureHeaders.Match("x-cache") {
		t.Error("capture headers not loaded")
	}
	if cfg.CaptureHeaders.Match("server") {
		t.Error("unlisted header should not match")
	}
	if len(cfg.Percentiles) != 2 {
		t.Fatalf("Percentiles = %d entries, want 2", len(cfg.Percentiles))
	}
	if cfg.Percentiles[1].Label != "p99" || cfg.Percentiles[1].Percentile != 99.0 {
		t.Errorf("unexpected percentile: %+v", cfg.Percentiles[1])
	}
	if cfg.MetricsPort != 9090 || !cfg.EnableMetrics {
		t.Error("metrics options not loaded")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config failed validation: %v", err)
	}
}

func TestLoadFromFileCaptureAll(t *testing.T) {
	path := writeConfig(t, "CaptureHeader *\n")
	cfg := DefaultConfig()
	if err := LoadFromFile(path, cfg); err != nil {
		t.Fatal(err)
	}
	if !cfg.CaptureHeaders.Match("anything") {
		t.Error("wildcard capture not applied")
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown option", "NoSuchOption 1\n"},
		{"bad bool", "Nodelay maybe\n"},
		{"bad duration", "DialTimeout soon\n"},
		{"bad worker count", "BlockingWorkers many\n"},
		{"bad percentile", "Percentile p50\n"},
		{"bad percentile value", "Percentile p50 half\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			path := writeConfig(t, tt.content)
			if err := LoadFromFile(path, cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	if err := LoadFromFile(filepath.Join(t.TempDir(), "absent.conf"), cfg); err == nil {
		t.Error("expected error for missing file")
	}
	if err := LoadFromFile("whatever", nil); err == nil {
		t.Error("expected error for nil config")
	}
}
