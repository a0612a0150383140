package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"
)

// TransportConfig holds the configuration for an SMTP Transport.
type TransportConfig struct {
	// Host and Port identify the SMTP server to deliver through.
	Host string
	Port int

	// LocalName is the hostname announced in EHLO. Defaults to "localhost".
	LocalName string

	// Timeout bounds the dial and each command/reply exchange.
	Timeout time.Duration

	// Credentials configure SMTP AUTH. If empty, AUTH is skipped.
	Credentials Credentials

	// StartTLS upgrades the connection before authenticating.
	StartTLS bool

	// TLSConfig is used for the STARTTLS handshake. If nil, a default
	// configuration with the server hostname is used.
	TLSConfig *tls.Config
}

// Transport delivers messages to a single SMTP server, running the
// full dial, handshake, and transaction sequence per call.
type Transport struct {
	config TransportConfig
}

// NewTransport creates a Transport with the given configuration.
func NewTransport(cfg TransportConfig) *Transport {
	if cfg.LocalName == "" {
		cfg.LocalName = "localhost"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCommandTimeout
	}
	return &Transport{config: cfg}
}

// Addr returns the host:port this transport delivers through.
func (t *Transport) Addr() string {
	return net.JoinHostPort(t.config.Host, fmt.Sprintf("%d", t.config.Port))
}

// SendMail dials the server and delivers one message: greeting, EHLO,
// optional STARTTLS and AUTH, then MAIL/RCPT/DATA and QUIT. The
// connection is closed before returning.
func (t *Transport) SendMail(ctx context.Context, from string, recipients []string, msg io.Reader) error {
	if len(recipients) == 0 {
		return fmt.Errorf("smtp: no envelope recipients")
	}

	dialer := net.Dialer{Timeout: t.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Addr())
	if err != nil {
		return fmt.Errorf("smtp: connecting to %s: %w", t.Addr(), err)
	}

	client, err := NewClient(conn, t.config.Host, t.config.Timeout)
	if err != nil {
		return err
	}
	defer client.Close()

	client.SetLocalName(t.config.LocalName)

	if err := client.Hello(); err != nil {
		return err
	}

	if t.config.StartTLS {
		if err := client.StartTLS(t.config.TLSConfig); err != nil {
			return err
		}
	}

	if t.config.Credentials.Enabled() {
		if err := client.Auth(t.config.Credentials); err != nil {
			return err
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	if err := client.Data(msg); err != nil {
		return err
	}

	slog.Debug("message delivered",
		"server", t.Addr(),
		"recipients", len(recipients),
	)

	return client.Quit()
}
