// Package httpmetrics provides HTTP-based metrics exposition for monitoring.
// This package serves point-in-time snapshots of the tracer's request
// metrics as JSON for scraping or ad-hoc inspection.
package httpmetrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/opd-ai/go-tracer/pkg/client"
	"github.com/opd-ai/go-tracer/pkg/logger"
	"github.com/opd-ai/go-tracer/pkg/metrics"
)

// SnapshotProvider yields the current non-empty metric snapshots
type SnapshotProvider interface {
	Snapshots() []metrics.Snapshot[client.Metric]
}

// CollectorProvider adapts a collector into a SnapshotProvider,
// draining outstanding samples before snapshotting.
type CollectorProvider struct {
	Collector *metrics.Collector[client.Metric]
}

// Snapshots implements SnapshotProvider
func (p CollectorProvider) Snapshots() []metrics.Snapshot[client.Metric] {
	p.Collector.ProcessOutstanding()
	return client.GetAllMetrics(p.Collector)
}

// Server provides HTTP-based metrics exposition
type Server struct {
	address  string
	provider SnapshotProvider
	logger   *logger.Logger
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates a new HTTP metrics server
func NewServer(address string, provider SnapshotProvider, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewDefault()
	}
	mux := http.NewServeMux()

	s := &Server{
		address:  address,
		provider: provider,
		logger:   log.Component("httpmetrics"),
	}

	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/", s.handleIndex)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP metrics server
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}

	s.listener = listener
	s.logger.Info("HTTP metrics server listening", "address", listener.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP metrics server
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP metrics server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP server shutdown error", "error", err)
		return err
	}

	s.wg.Wait()
	return nil
}

// GetAddress returns the actual listening address
func (s *Server) GetAddress() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.address
}

// metricJSON is the wire shape of one metric snapshot
type metricJSON struct {
	Metric      string            `json:"metric"`
	Count       *uint64           `json:"count,omitempty"`
	Gauge       *uint64           `json:"gauge,omitempty"`
	MinMicros   *uint64           `json:"min_us,omitempty"`
	MaxMicros   *uint64           `json:"max_us,omitempty"`
	MeanMicros  *uint64           `json:"mean_us,omitempty"`
	StdevMicros *uint64           `json:"stdev_us,omitempty"`
	Percentiles map[string]uint64 `json:"percentiles_us,omitempty"`
}

func snapshotToJSON(s metrics.Snapshot[client.Metric]) metricJSON {
	out := metricJSON{Metric: s.Key().String()}
	if count, ok := s.Count(); ok {
		out.Count = &count
	}
	if gauge, ok := s.Gauge(); ok {
		out.Gauge = &gauge
	}
	if latency, ok := s.Latency(); ok {
		min := metrics.DurToMicros(latency.Min)
		max := metrics.DurToMicros(latency.Max)
		mean := metrics.DurToMicros(latency.Mean)
		stdev := metrics.DurToMicros(latency.Stdev)
		out.MinMicros = &min
		out.MaxMicros = &max
		out.MeanMicros = &mean
		out.StdevMicros = &stdev
		out.Percentiles = make(map[string]uint64, len(latency.Percentiles))
		for _, pv := range latency.Percentiles {
			out.Percentiles[pv.Percentile.Label] = metrics.DurToMicros(pv.Value)
		}
	}
	return out
}

// handleMetrics serves the JSON snapshot of all non-empty metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snaps := s.provider.Snapshots()
	out := make([]metricJSON, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, snapshotToJSON(snap))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Error("Failed to encode metrics", "error", err)
	}
}

// handleIndex serves a minimal index pointing at the endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "go-tracer metrics")
	fmt.Fprintln(w, "  GET /metrics  JSON snapshot")
}
