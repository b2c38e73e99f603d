package client

import (
	"context"
	"net"
	"net/url"

	"github.com/opd-ai/go-tracer/pkg/config"
	"github.com/opd-ai/go-tracer/pkg/errors"
	"github.com/opd-ai/go-tracer/pkg/logger"
	"github.com/opd-ai/go-tracer/pkg/metrics"
)

// TracingConnector composes the tracing resolver with TCP dialing and
// emits a Connection elapsed sample per successful dial. Connections
// are single-shot; the connector performs no pooling or reuse.
type TracingConnector struct {
	resolver  *TracingResolver
	collector *metrics.CollectorHandle[Metric]
	dialer    net.Dialer
	nodelay   bool
	logger    *logger.Logger
}

// NewTracingConnector creates a connector over the given collector handle
func NewTracingConnector(handle *metrics.CollectorHandle[Metric], cfg *config.Config, log *logger.Logger) *TracingConnector {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &TracingConnector{
		resolver:  NewTracingResolver(handle, cfg.BlockingWorkers, log),
		collector: handle,
		dialer:    net.Dialer{Timeout: cfg.DialTimeout},
		nodelay:   cfg.Nodelay,
		logger:    log.Component("connector"),
	}
}

// SetNodelay overrides whether TCP_NODELAY is applied after connect
func (c *TracingConnector) SetNodelay(nodelay bool) {
	c.nodelay = nodelay
}

// Resolver returns the underlying tracing resolver
func (c *TracingConnector) Resolver() *TracingResolver {
	return c.resolver
}

// DialURL dials the destination named by a URL. The scheme must be
// http or https; the port defaults to 443 for https and 80 otherwise.
// An empty host is rejected before any sample is emitted.
func (c *TracingConnector) DialURL(ctx context.Context, dst *url.URL) (net.Conn, error) {
	if dst.Scheme != "http" && dst.Scheme != "https" {
		return nil, errors.InputError("unsupported scheme: " + dst.Scheme)
	}
	host := dst.Hostname()
	if host == "" {
		return nil, errors.InputError("invalid host")
	}
	port := dst.Port()
	if port == "" {
		if dst.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return c.dial(ctx, host, port)
}

// DialContext dials a host:port address. This is the shape expected by
// http.Transport's DialContext hook.
func (c *TracingConnector) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if network != "tcp" {
		return nil, errors.InputError("unsupported network: " + network)
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errors.InputError("invalid address: " + addr)
	}
	if host == "" {
		return nil, errors.InputError("invalid host")
	}
	return c.dial(ctx, host, port)
}

// dial resolves host, connects to the first address, and emits the
// Connection sample on success. Dial failures surface without a sample:
// the stage never completed.
func (c *TracingConnector) dial(ctx context.Context, host, port string) (net.Conn, error) {
	ips, err := c.resolver.Resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, errors.ResolutionError("did not resolve an address", nil)
	}
	addr := net.JoinHostPort(ips[0].String(), port)

	stopwatch := c.collector.Stopwatch()
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.ConnectionError("failed to connect", err)
	}
	elapsed := stopwatch.Elapsed()
	c.collector.SendElapsed(MetricConnection, elapsed)

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(c.nodelay); err != nil {
			conn.Close()
			return nil, errors.ConnectionError("failed to set TCP_NODELAY", err)
		}
	}
	c.logger.Stage(MetricConnection, elapsed)
	return conn, nil
}
