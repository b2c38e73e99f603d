// Package config provides configuration management for the tracer.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/opd-ai/go-tracer/pkg/metrics"
)

// CaptureHeaders selects which response headers are captured into
// request summaries. Either all headers, or a lowercase whitelist.
type CaptureHeaders struct {
	All  bool
	List map[string]struct{}
}

// NewCaptureHeaders builds a whitelist from header names. The single
// name "*" selects all headers.
func NewCaptureHeaders(names ...string) CaptureHeaders {
	c := CaptureHeaders{List: make(map[string]struct{})}
	for _, n := range names {
		if n == "*" {
			c.All = true
			continue
		}
		c.List[strings.ToLower(n)] = struct{}{}
	}
	return c
}

// Match reports whether a header name should be captured
func (c CaptureHeaders) Match(name string) bool {
	if c.All {
		return true
	}
	_, ok := c.List[strings.ToLower(name)]
	return ok
}

// Config represents the tracer configuration
type Config struct {
	// Socket behavior
	Nodelay     bool          // Set TCP_NODELAY on dialed sockets (default: true)
	DialTimeout time.Duration // Max time for a TCP connect (default: 30s)

	// TLS behavior
	TLSHandshakeTimeout time.Duration // Max time for the TLS handshake (default: 10s)

	// DNS resolution
	BlockingWorkers int // Worker slots for blocking resolver calls (default: 4)

	// Reporting
	CaptureHeaders CaptureHeaders       // Response headers captured into summaries
	Percentiles    []metrics.Percentile // Overrides the default percentile set when non-empty

	// Logging
	LogLevel string // Log level: debug, info, warn, error (default: info)

	// Monitoring
	MetricsPort   int  // HTTP metrics server port (default: 0 = disabled)
	EnableMetrics bool // Enable HTTP metrics endpoint (default: false)
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Nodelay:             true,
		DialTimeout:         30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		BlockingWorkers:     4,
		CaptureHeaders:      NewCaptureHeaders(),
		LogLevel:            "info",
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.BlockingWorkers < 1 {
		return fmt.Errorf("BlockingWorkers must be at least 1, got %d", c.BlockingWorkers)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("DialTimeout cannot be negative")
	}
	if c.TLSHandshakeTimeout < 0 {
		return fmt.Errorf("TLSHandshakeTimeout cannot be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.LogLevel)
	}
	for _, p := range c.Percentiles {
		if p.Percentile < 0 || p.Percentile > 100 {
			return fmt.Errorf("percentile %q out of range: %v", p.Label, p.Percentile)
		}
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	return nil
}
