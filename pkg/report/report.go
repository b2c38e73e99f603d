// Package report formats per-request test reports from metric snapshots.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opd-ai/go-tracer/pkg/client"
	"github.com/opd-ai/go-tracer/pkg/metrics"
)

// TestReport summarizes one executed test: response identity plus the
// non-empty metric snapshots at the time it completed.
type TestReport struct {
	Name      string
	Summary   client.Summary
	Snapshots []metrics.Snapshot[client.Metric]
}

// New builds a report for a named test
func New(name string, summary client.Summary, snapshots []metrics.Snapshot[client.Metric]) TestReport {
	return TestReport{
		Name:      name,
		Summary:   summary,
		Snapshots: snapshots,
	}
}

// FormatDuration renders a duration as whole milliseconds below five
// seconds and fractional seconds above.
func FormatDuration(d time.Duration) string {
	if d >= 5*time.Second {
		return fmt.Sprintf("%.3fs", d.Seconds())
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// FormatSize renders a byte count with a binary magnitude suffix
func FormatSize(s uint64) string {
	magnitudes := []string{"B", "KB", "MB", "GB"}
	total := float64(s)
	magnitude := 0
	for total > 1024 && magnitude < len(magnitudes)-1 {
		total /= 1024
		magnitude++
	}
	if magnitude == 0 {
		return fmt.Sprintf("%.0f%s", total, magnitudes[magnitude])
	}
	return fmt.Sprintf("%.1f%s", total, magnitudes[magnitude])
}

func abbrevMetric(m client.Metric) string {
	switch m {
	case client.MetricDNS:
		return "DNS"
	case client.MetricConnection:
		return "Conn"
	case client.MetricTLS:
		return "TLS"
	case client.MetricHeaders:
		return "Hdrs"
	case client.MetricFullResponse:
		return "Resp"
	case client.MetricBodyLen:
		return "BodyLen"
	case client.MetricHeaderLen:
		return "HdrLen"
	default:
		return m.String()
	}
}

func isLatencyMetric(m client.Metric) bool {
	for _, lm := range client.LatencyMetrics() {
		if m == lm {
			return true
		}
	}
	return false
}

func formatSnapshot(s metrics.Snapshot[client.Metric]) string {
	if isLatencyMetric(s.Key()) {
		if d, ok := s.GaugeAsDuration(); ok {
			return fmt.Sprintf("%s: %s", abbrevMetric(s.Key()), FormatDuration(d))
		}
	} else if g, ok := s.Gauge(); ok {
		return fmt.Sprintf("%s: %s", abbrevMetric(s.Key()), FormatSize(g))
	}
	return abbrevMetric(s.Key()) + ":"
}

// FormatSnapshotStats renders the distribution summary line for a
// snapshot carrying a latency histogram, empty otherwise.
func FormatSnapshotStats(s metrics.Snapshot[client.Metric]) string {
	latency, ok := s.Latency()
	if !ok {
		return ""
	}
	count, _ := s.Count()
	return fmt.Sprintf("count %d/min %s/avg %s/max %s/stdev %s",
		count,
		FormatDuration(latency.Min),
		FormatDuration(latency.Mean),
		FormatDuration(latency.Max),
		FormatDuration(latency.Stdev))
}

// FormatPercentiles renders one "label value" pair per configured
// percentile for a latency snapshot, empty otherwise.
func FormatPercentiles(s metrics.Snapshot[client.Metric]) string {
	latency, ok := s.Latency()
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(latency.Percentiles))
	for _, pv := range latency.Percentiles {
		parts = append(parts, fmt.Sprintf("%s %s", pv.Percentile, FormatDuration(pv.Value)))
	}
	return strings.Join(parts, " ")
}

// String renders the one-line report plus captured headers
func (r TestReport) String() string {
	var b strings.Builder
	hash := r.Summary.BodyHash
	if len(hash) > 8 {
		hash = hash[:8]
	}
	fmt.Fprintf(&b, "* %s (%s) Hash: %s ", r.Name, r.Summary.Status, hash)
	for _, s := range r.Snapshots {
		b.WriteString(formatSnapshot(s))
		b.WriteString(" ")
	}
	if len(r.Summary.Headers) > 0 {
		names := make([]string, 0, len(r.Summary.Headers))
		for name := range r.Summary.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "\n    %s: %s", name, r.Summary.Headers[name])
		}
	}
	return strings.TrimRight(b.String(), " ")
}
