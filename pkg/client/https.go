package client

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/idna"

	"github.com/opd-ai/go-tracer/pkg/config"
	"github.com/opd-ai/go-tracer/pkg/errors"
	"github.com/opd-ai/go-tracer/pkg/logger"
	"github.com/opd-ai/go-tracer/pkg/metrics"
)

// TracingHttpsConnector wraps a TracingConnector with TLS negotiation
// and emits a TLS elapsed sample per successful handshake. Plain http
// destinations pass through untouched with no TLS sample.
type TracingHttpsConnector struct {
	http      *TracingConnector
	tlsConfig *tls.Config
	collector *metrics.CollectorHandle[Metric]
	cfg       *config.Config
	logger    *logger.Logger
}

// newTLSConfig builds the client TLS configuration. The empty RootCAs
// selects the system trust store, which ships the Mozilla-compatible CA
// bundle on the supported platforms. HTTP/2 is not negotiated; the
// request engine speaks HTTP/1.1 only.
func newTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		NextProtos: []string{"http/1.1"},
	}
}

// NewTracingHttpsConnector creates an HTTPS connector over the given
// collector handle
func NewTracingHttpsConnector(nodelay bool, handle *metrics.CollectorHandle[Metric], cfg *config.Config, log *logger.Logger) *TracingHttpsConnector {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.NewDefault()
	}
	http := NewTracingConnector(handle, cfg, log)
	http.SetNodelay(nodelay)
	return &TracingHttpsConnector{
		http:      http,
		tlsConfig: newTLSConfig(),
		collector: handle,
		cfg:       cfg,
		logger:    log.Component("https"),
	}
}

// SetTLSConfig replaces the TLS client configuration (custom roots,
// test certificates)
func (c *TracingHttpsConnector) SetTLSConfig(cfg *tls.Config) {
	c.tlsConfig = cfg
}

// Connector returns the underlying TCP connector
func (c *TracingHttpsConnector) Connector() *TracingConnector {
	return c.http
}

// DialContext dials a plain TCP connection. Used by http.Transport for
// http:// destinations.
func (c *TracingHttpsConnector) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return c.http.DialContext(ctx, network, addr)
}

// DialTLSContext dials TCP and negotiates TLS, emitting the TLS sample
// on handshake success. Used by http.Transport for https:// destinations.
func (c *TracingHttpsConnector) DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errors.InputError("invalid address: " + addr)
	}

	conn, err := c.http.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn, err := c.handshake(ctx, conn, host)
	if err != nil {
		return nil, err
	}
	return tlsConn, nil
}

// DialURL dials the destination named by a URL and returns a tagged
// stream: plaintext for http, TLS-protected for https.
func (c *TracingHttpsConnector) DialURL(ctx context.Context, dst *url.URL) (*MaybeTLSStream, error) {
	conn, err := c.http.DialURL(ctx, dst)
	if err != nil {
		return nil, err
	}
	if dst.Scheme != "https" {
		return NewPlainStream(conn), nil
	}
	tlsConn, err := c.handshake(ctx, conn, dst.Hostname())
	if err != nil {
		return nil, err
	}
	return NewTLSStream(tlsConn), nil
}

// handshake validates the hostname, negotiates TLS over conn, and emits
// the TLS sample. The TCP connection is closed on any failure.
func (c *TracingHttpsConnector) handshake(ctx context.Context, conn net.Conn, host string) (*tls.Conn, error) {
	serverName := host
	if net.ParseIP(host) == nil {
		// Hostnames must be valid DNS names; literal IPs are matched
		// against certificate IP SANs instead.
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			conn.Close()
			return nil, errors.TLSError("invalid dnsname", err)
		}
		serverName = ascii
	}

	cfg := c.tlsConfig.Clone()
	cfg.ServerName = serverName

	if c.cfg.TLSHandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.TLSHandshakeTimeout)
		defer cancel()
	}

	stopwatch := c.collector.Stopwatch()
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, errors.TLSError("TLS handshake failed", err)
	}
	elapsed := stopwatch.Elapsed()
	c.collector.SendElapsed(MetricTLS, elapsed)
	c.logger.Stage(MetricTLS, elapsed)
	return tlsConn, nil
}

// MaybeTLSStream is a byte stream carrying either plaintext or
// TLS-protected data.
type MaybeTLSStream struct {
	conn    net.Conn
	tlsConn *tls.Conn
}

// NewPlainStream wraps a plaintext connection
func NewPlainStream(conn net.Conn) *MaybeTLSStream {
	return &MaybeTLSStream{conn: conn}
}

// NewTLSStream wraps a TLS connection
func NewTLSStream(conn *tls.Conn) *MaybeTLSStream {
	return &MaybeTLSStream{tlsConn: conn}
}

// IsTLS reports whether the stream is TLS-protected
func (s *MaybeTLSStream) IsTLS() bool {
	return s.tlsConn != nil
}

// ConnectionState returns the TLS connection state for TLS streams
func (s *MaybeTLSStream) ConnectionState() (tls.ConnectionState, bool) {
	if s.tlsConn == nil {
		return tls.ConnectionState{}, false
	}
	return s.tlsConn.ConnectionState(), true
}

func (s *MaybeTLSStream) active() net.Conn {
	if s.tlsConn != nil {
		return s.tlsConn
	}
	return s.conn
}

// Read implements net.Conn
func (s *MaybeTLSStream) Read(p []byte) (int, error) { return s.active().Read(p) }

// Write implements net.Conn
func (s *MaybeTLSStream) Write(p []byte) (int, error) { return s.active().Write(p) }

// Close implements net.Conn
func (s *MaybeTLSStream) Close() error { return s.active().Close() }

// LocalAddr implements net.Conn
func (s *MaybeTLSStream) LocalAddr() net.Addr { return s.active().LocalAddr() }

// RemoteAddr implements net.Conn
func (s *MaybeTLSStream) RemoteAddr() net.Addr { return s.active().RemoteAddr() }

// SetDeadline implements net.Conn
func (s *MaybeTLSStream) SetDeadline(t time.Time) error { return s.active().SetDeadline(t) }

// SetReadDeadline implements net.Conn
func (s *MaybeTLSStream) SetReadDeadline(t time.Time) error { return s.active().SetReadDeadline(t) }

// SetWriteDeadline implements net.Conn
func (s *MaybeTLSStream) SetWriteDeadline(t time.Time) error { return s.active().SetWriteDeadline(t) }
