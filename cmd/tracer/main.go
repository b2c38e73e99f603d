// Package main provides the tracer executable.
// It runs endpoint timing tests and prints per-request reports built
// from the collector's metric snapshots.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/opd-ai/go-tracer/pkg/client"
	"github.com/opd-ai/go-tracer/pkg/config"
	"github.com/opd-ai/go-tracer/pkg/httpmetrics"
	"github.com/opd-ai/go-tracer/pkg/logger"
	"github.com/opd-ai/go-tracer/pkg/metrics"
	"github.com/opd-ai/go-tracer/pkg/report"
)

var (
	version   = "0.1.0-dev"
	buildTime = "unknown"
)

// testDef is one endpoint check loaded from the test file or flags
type testDef struct {
	Name   string
	Method string
	URL    string
}

// loadTests parses a line-oriented test definition file.
// Lines starting with # are comments. Each test line follows the
// format: Test Name Method URL
func loadTests(path string) ([]testDef, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open test file: %w", err)
	}
	defer file.Close()

	var tests []testDef
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] != "Test" || len(fields) != 4 {
			return nil, fmt.Errorf("line %d: expected 'Test Name Method URL', got %q", lineNum, line)
		}
		tests = append(tests, testDef{Name: fields[1], Method: strings.ToUpper(fields[2]), URL: fields[3]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read test file: %w", err)
	}
	if len(tests) == 0 {
		return nil, fmt.Errorf("no tests defined in %s", path)
	}
	return tests, nil
}

// currentProvider exposes whichever test collector is currently
// running to the metrics endpoint.
type currentProvider struct {
	mu        sync.RWMutex
	collector *metrics.Collector[client.Metric]
}

func (p *currentProvider) set(c *metrics.Collector[client.Metric]) {
	p.mu.Lock()
	p.collector = c
	p.mu.Unlock()
}

// Snapshots implements httpmetrics.SnapshotProvider
func (p *currentProvider) Snapshots() []metrics.Snapshot[client.Metric] {
	p.mu.RLock()
	c := p.collector
	p.mu.RUnlock()
	if c == nil {
		return nil
	}
	c.ProcessOutstanding()
	return client.GetAllMetrics(c)
}

// runTest executes one test definition against its own collector,
// printing a report per repetition and the distribution summary at the
// end of the run.
func runTest(ctx context.Context, def testDef, cfg *config.Config, log *logger.Logger, repeat int, provider *currentProvider) error {
	collector := metrics.New[client.Metric]()
	if provider != nil {
		provider.set(collector)
	}
	c := client.NewWithCollector(collector, cfg, log)
	testLog := log.Test(def.Name)

	for i := 0; i < repeat; i++ {
		if ctx.Err() != nil {
			testLog.Warn("Interrupted", "completed", i)
			break
		}

		req, err := http.NewRequestWithContext(ctx, def.Method, def.URL, nil)
		if err != nil {
			return fmt.Errorf("test %s: %w", def.Name, err)
		}

		parts, body, err := c.RequestFully(req)
		if err != nil {
			collector.ProcessOutstanding()
			testLog.Request(def.Method, def.URL, i+1).Error("Request failed", "error", err)
			continue
		}
		c.SendSizeSamples(parts, body)
		collector.ProcessOutstanding()

		summary := client.Summarize(parts, body, cfg.CaptureHeaders)
		fmt.Println(report.New(def.Name, summary, client.GetAllMetrics(collector)))
	}

	for _, snap := range client.GetLatencyMetrics(collector) {
		fmt.Printf("  %s: %s\n", snap.Key(), report.FormatSnapshotStats(snap))
		fmt.Printf("      %s\n", report.FormatPercentiles(snap))
	}
	return nil
}

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	testFile := flag.String("tests", "", "Path to test definition file")
	targetURL := flag.String("url", "", "Ad-hoc target URL (alternative to -tests)")
	method := flag.String("method", "GET", "HTTP method for -url mode")
	repeat := flag.Int("repeat", 1, "Repetitions per test")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("go-tracer version %s (built %s)\n", version, buildTime)
		fmt.Println("HTTPS request timing tracer")
		os.Exit(0)
	}

	cfg := config.DefaultConfig()
	if *configFile != "" {
		if err := config.LoadFromFile(*configFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config file: %v\n", err)
			os.Exit(1)
		}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	var tests []testDef
	switch {
	case *testFile != "":
		loaded, err := loadTests(*testFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load tests: %v\n", err)
			os.Exit(1)
		}
		tests = loaded
	case *targetURL != "":
		tests = []testDef{{Name: "adhoc", Method: strings.ToUpper(*method), URL: *targetURL}}
	default:
		fmt.Fprintln(os.Stderr, "Either -tests or -url is required")
		flag.Usage()
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, os.Stderr)

	log.Info("Starting go-tracer",
		"version", version,
		"tests", len(tests),
		"repeat", *repeat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The metrics endpoint serves the collector of whichever test is
	// currently running.
	var provider *currentProvider
	if cfg.EnableMetrics && cfg.MetricsPort > 0 {
		provider = &currentProvider{}
		server := httpmetrics.NewServer(fmt.Sprintf("127.0.0.1:%d", cfg.MetricsPort), provider, log)
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start metrics server: %v\n", err)
			os.Exit(1)
		}
		defer server.Stop()
	}

	exitCode := 0
	for _, def := range tests {
		if ctx.Err() != nil {
			break
		}
		if err := runTest(ctx, def, cfg, log, *repeat, provider); err != nil {
			log.Error("Test failed", "test", def.Name, "error", err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}
