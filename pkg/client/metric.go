// Package client provides the instrumented HTTPS client.
// It composes a tracing connector stack (DNS resolution, TCP dial, TLS
// handshake) under an HTTP/1.1 engine with keep-alives disabled, and
// emits a timing sample at each protocol-boundary transition.
package client

import "github.com/opd-ai/go-tracer/pkg/metrics"

// Metric identifies one measured facet of a request life cycle.
type Metric int

const (
	// MetricDNS measures name resolution wall time
	MetricDNS Metric = iota
	// MetricConnection measures TCP connection establishment
	MetricConnection
	// MetricTLS measures the TLS handshake
	MetricTLS
	// MetricHeaders measures request start to response headers received
	MetricHeaders
	// MetricFullResponse measures request start to last body byte
	MetricFullResponse
	// MetricHeaderLen carries the response header section size in bytes
	MetricHeaderLen
	// MetricBodyLen carries the response body size in bytes
	MetricBodyLen
)

// String returns the metric's display name
func (m Metric) String() string {
	switch m {
	case MetricDNS:
		return "DNS"
	case MetricConnection:
		return "Connection"
	case MetricTLS:
		return "TLS"
	case MetricHeaders:
		return "Headers"
	case MetricFullResponse:
		return "FullResponse"
	case MetricHeaderLen:
		return "HeaderLen"
	case MetricBodyLen:
		return "BodyLen"
	default:
		return "Unknown"
	}
}

// AllMetrics returns every built-in metric key
func AllMetrics() []Metric {
	return []Metric{
		MetricDNS,
		MetricConnection,
		MetricTLS,
		MetricHeaders,
		MetricHeaderLen,
		MetricFullResponse,
		MetricBodyLen,
	}
}

// LatencyMetrics returns the five duration metrics
func LatencyMetrics() []Metric {
	return []Metric{
		MetricDNS,
		MetricConnection,
		MetricTLS,
		MetricHeaders,
		MetricFullResponse,
	}
}

// SizeMetrics returns the byte-size metrics
func SizeMetrics() []Metric {
	return []Metric{MetricHeaderLen, MetricBodyLen}
}

// GetMetrics returns snapshots for the given keys, skipping keys that
// have not recorded any samples.
func GetMetrics(keys []Metric, c *metrics.Collector[Metric]) []metrics.Snapshot[Metric] {
	snapshots := make([]metrics.Snapshot[Metric], 0, len(keys))
	for _, key := range keys {
		snap := c.Snapshot(key)
		if snap.CountOrZero() > 0 {
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots
}

// GetAllMetrics returns non-empty snapshots for every built-in metric
func GetAllMetrics(c *metrics.Collector[Metric]) []metrics.Snapshot[Metric] {
	return GetMetrics(AllMetrics(), c)
}

// GetLatencyMetrics returns non-empty snapshots for the duration metrics
func GetLatencyMetrics(c *metrics.Collector[Metric]) []metrics.Snapshot[Metric] {
	return GetMetrics(LatencyMetrics(), c)
}

// GetSizeMetrics returns non-empty snapshots for the size metrics
func GetSizeMetrics(c *metrics.Collector[Metric]) []metrics.Snapshot[Metric] {
	return GetMetrics(SizeMetrics(), c)
}
