package client

import (
	"context"
	"net/http"

	"github.com/opd-ai/go-tracer/pkg/config"
	"github.com/opd-ai/go-tracer/pkg/errors"
	"github.com/opd-ai/go-tracer/pkg/logger"
	"github.com/opd-ai/go-tracer/pkg/metrics"
	"github.com/opd-ai/go-tracer/pkg/pool"
)

// Parts carries the non-body portion of a fully-read response
type Parts struct {
	Status     string
	StatusCode int
	Proto      string
	Header     http.Header
}

// Client is an instrumented HTTP/1.1 client. Every request dials a
// fresh connection through the tracing connector stack; keep-alive is
// disabled so per-request samples always cover the full DNS/TCP/TLS
// establishment path.
type Client struct {
	hc        *http.Client
	connector *TracingHttpsConnector
	collector *metrics.CollectorHandle[Metric]
	logger    *logger.Logger
}

// ConfigureCollectorDefaults registers Count and Gauge interest for
// every built-in metric and LatencyPercentile interest for the five
// duration metrics.
func ConfigureCollectorDefaults(c *metrics.Collector[Metric]) {
	for _, m := range AllMetrics() {
		c.Register(metrics.Count(m))
		c.Register(metrics.Gauge(m))
	}
	for _, m := range LatencyMetrics() {
		c.Register(metrics.LatencyPercentile(m))
	}
}

// NewWithCollectorHandle creates a client emitting samples through the
// given handle. The client borrows the handle; closing it remains the
// caller's responsibility.
func NewWithCollectorHandle(handle *metrics.CollectorHandle[Metric], cfg *config.Config, log *logger.Logger) *Client {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.NewDefault()
	}

	connector := NewTracingHttpsConnector(cfg.Nodelay, handle, cfg, log)
	transport := &http.Transport{
		DialContext:       connector.DialContext,
		DialTLSContext:    connector.DialTLSContext,
		DisableKeepAlives: true,
		ForceAttemptHTTP2: false,
	}

	return &Client{
		hc: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		connector: connector,
		collector: handle,
		logger:    log.Component("client"),
	}
}

// NewWithCollector registers the default interests on the collector and
// returns a client over a fresh handle from it. A configured percentile
// set overrides the collector's default.
func NewWithCollector(c *metrics.Collector[Metric], cfg *config.Config, log *logger.Logger) *Client {
	ConfigureCollectorDefaults(c)
	if cfg != nil && len(cfg.Percentiles) > 0 {
		c.SetPercentiles(cfg.Percentiles)
	}
	return NewWithCollectorHandle(c.Handle(), cfg, log)
}

// NewClientAndCollector creates a collector with default interests and
// a client wired to it.
func NewClientAndCollector(cfg *config.Config, log *logger.Logger) (*Client, *metrics.Collector[Metric]) {
	collector := metrics.New[Metric]()
	client := NewWithCollector(collector, cfg, log)
	return client, collector
}

// Connector returns the client's HTTPS connector, for TLS configuration
func (c *Client) Connector() *TracingHttpsConnector {
	return c.connector
}

// Request performs the request and emits the Headers sample once the
// full response-header set has been received. The response body is
// still open; the caller owns closing it.
func (c *Client) Request(req *http.Request) (*http.Response, error) {
	stopwatch := c.collector.Stopwatch()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.HTTPError("request failed", err)
	}
	elapsed := stopwatch.Elapsed()
	c.collector.SendElapsed(MetricHeaders, elapsed)
	c.logger.Stage(MetricHeaders, elapsed)
	return resp, nil
}

// RequestFully performs the request and aggregates the entire body,
// emitting the FullResponse sample measured from request start to last
// body byte. Callers send HeaderLen and BodyLen value samples after
// inspecting the result; SendSizeSamples does the canonical arithmetic.
func (c *Client) RequestFully(req *http.Request) (Parts, []byte, error) {
	stopwatch := c.collector.Stopwatch()
	resp, err := c.Request(req)
	if err != nil {
		return Parts{}, nil, err
	}
	defer resp.Body.Close()

	body, err := pool.Aggregate(resp.Body)
	if err != nil {
		return Parts{}, nil, errors.HTTPError("failed to read body", err)
	}
	elapsed := stopwatch.Elapsed()
	c.collector.SendElapsed(MetricFullResponse, elapsed)
	c.logger.Stage(MetricFullResponse, elapsed)

	parts := Parts{
		Status:     resp.Status,
		StatusCode: resp.StatusCode,
		Proto:      resp.Proto,
		Header:     resp.Header,
	}
	return parts, body, nil
}

// Do is a convenience wrapper that binds ctx to req and performs a full
// request.
func (c *Client) Do(ctx context.Context, req *http.Request) (Parts, []byte, error) {
	return c.RequestFully(req.WithContext(ctx))
}

// SendSizeSamples emits the HeaderLen and BodyLen value samples for a
// completed response.
func (c *Client) SendSizeSamples(parts Parts, body []byte) {
	c.collector.SendValue(MetricHeaderLen, HeaderSectionLen(parts.Header))
	c.collector.SendValue(MetricBodyLen, uint64(len(body)))
}
