package client

import (
	"context"
	"net"

	"github.com/opd-ai/go-tracer/pkg/errors"
	"github.com/opd-ai/go-tracer/pkg/logger"
	"github.com/opd-ai/go-tracer/pkg/metrics"
)

// LookupFunc resolves a hostname to IP addresses. The default uses the
// OS stub resolver; tests inject their own.
type LookupFunc func(ctx context.Context, host string) ([]net.IP, error)

func defaultLookup(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// TracingResolver resolves hostnames and emits a DNS elapsed sample per
// resolution. Lookups run on a bounded worker pool so the blocking stub
// resolver never stalls the calling goroutine past context cancellation.
type TracingResolver struct {
	collector *metrics.CollectorHandle[Metric]
	slots     chan struct{}
	lookup    LookupFunc
	logger    *logger.Logger
}

// NewTracingResolver creates a resolver with the given number of
// blocking worker slots
func NewTracingResolver(handle *metrics.CollectorHandle[Metric], workers int, log *logger.Logger) *TracingResolver {
	if log == nil {
		log = logger.NewDefault()
	}
	if workers < 1 {
		workers = 1
	}
	return &TracingResolver{
		collector: handle,
		slots:     make(chan struct{}, workers),
		lookup:    defaultLookup,
		logger:    log.Component("resolver"),
	}
}

// SetLookup replaces the lookup function. Intended for tests.
func (r *TracingResolver) SetLookup(lookup LookupFunc) {
	r.lookup = lookup
}

type lookupResult struct {
	ips []net.IP
	err error
}

// Resolve resolves host to an ordered list of IP addresses.
//
// A literal IPv4 or IPv6 address short-circuits: it is returned directly
// and no DNS sample is emitted, since no resolution work was performed.
// Otherwise the lookup runs on a worker slot with a stopwatch around it,
// and the DNS sample is emitted whether the lookup succeeds or fails;
// either way it represents wall time spent resolving.
func (r *TracingResolver) Resolve(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}

	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, errors.ResolutionError("resolver queue wait canceled", ctx.Err())
	}

	ch := make(chan lookupResult, 1)
	go func() {
		defer func() { <-r.slots }()
		stopwatch := r.collector.Stopwatch()
		ips, err := r.lookup(ctx, host)
		r.collector.SendElapsed(MetricDNS, stopwatch.Elapsed())
		ch <- lookupResult{ips: ips, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			r.logger.Debug("Resolution failed", "host", host, "error", res.err)
			return nil, errors.ResolutionError("failed to resolve host", res.err)
		}
		r.logger.Debug("Resolved host", "host", host, "addresses", len(res.ips))
		return res.ips, nil
	case <-ctx.Done():
		// The worker still finishes and emits its sample; only the
		// caller stops waiting.
		return nil, errors.ResolutionError("resolution canceled", ctx.Err())
	}
}
