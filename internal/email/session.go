package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// Session is a transport handle configured from a Builder: host, port,
// socket connection timeout, and optional TLS settings. It performs no
// I/O until Connect is called.
type Session struct {
	host      string
	port      int
	timeout   time.Duration
	tlsConfig *tls.Config
}

// Host returns the transport target host.
func (s *Session) Host() string { return s.host }

// Port returns the transport target port.
func (s *Session) Port() int { return s.port }

// Timeout returns the socket connection timeout.
func (s *Session) Timeout() time.Duration { return s.timeout }

// TLSConfig returns the TLS configuration, or nil when none was set.
func (s *Session) TLSConfig() *tls.Config { return s.tlsConfig }

// Addr returns the host:port dial target.
func (s *Session) Addr() string {
	return net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))
}

// Connect dials the transport target, honoring both the configured
// socket timeout and ctx cancellation.
func (s *Session) Connect(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.Addr(), err)
	}
	return conn, nil
}
