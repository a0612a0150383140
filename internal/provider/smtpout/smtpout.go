// Package smtpout implements a Provider that delivers messages through
// an outbound SMTP server.
package smtpout

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"

	"github.com/shineum/mailkit/internal/email"
	"github.com/shineum/mailkit/internal/smtp"
)

// Options configure the SMTP dialog beyond the session's host, port,
// and timeout.
type Options struct {
	// Username and Password enable SMTP AUTH when both are set.
	Username string
	Password string

	// StartTLS upgrades the connection before authenticating.
	StartTLS bool

	// TLSConfig overrides the session's TLS configuration for STARTTLS.
	TLSConfig *tls.Config

	// LocalName is the hostname announced in EHLO. Defaults to "localhost".
	LocalName string
}

// SMTPProvider sends built messages through the SMTP server described
// by a builder session.
type SMTPProvider struct {
	transport mailTransport
}

// mailTransport is the delivery seam, used for testing with a recording
// implementation.
type mailTransport interface {
	SendMail(ctx context.Context, from string, recipients []string, msg io.Reader) error
}

// New creates an SMTPProvider delivering through the given session.
func New(sess *email.Session, opts Options) *SMTPProvider {
	tlsConfig := opts.TLSConfig
	if tlsConfig == nil {
		tlsConfig = sess.TLSConfig()
	}

	transport := smtp.NewTransport(smtp.TransportConfig{
		Host:      sess.Host(),
		Port:      sess.Port(),
		LocalName: opts.LocalName,
		Timeout:   sess.Timeout(),
		Credentials: smtp.Credentials{
			Username: opts.Username,
			Password: opts.Password,
		},
		StartTLS:  opts.StartTLS,
		TLSConfig: tlsConfig,
	})

	return &SMTPProvider{transport: transport}
}

// NewWithTransport creates an SMTPProvider with a custom transport,
// used for testing.
func NewWithTransport(t mailTransport) *SMTPProvider {
	return &SMTPProvider{transport: t}
}

// Send renders the message and delivers it to every To, Cc, and Bcc
// recipient in one transaction. The bounce address, when set, becomes
// the envelope return path; the header From stays untouched.
func (p *SMTPProvider) Send(ctx context.Context, msg *email.Message) error {
	envelopeFrom := msg.From()
	if bounce := msg.BounceAddress(); bounce != nil {
		envelopeFrom = bounce
	}
	if envelopeFrom == nil {
		return fmt.Errorf("smtp delivery requires a from address")
	}

	recipients := envelopeRecipients(msg)
	if len(recipients) == 0 {
		return fmt.Errorf("smtp delivery requires at least one recipient")
	}

	data, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("failed to render message: %w", err)
	}

	if err := p.transport.SendMail(ctx, envelopeFrom.Address, recipients, bytes.NewReader(data)); err != nil {
		return err
	}

	slog.Info("email sent via SMTP",
		"from", envelopeFrom.Address,
		"recipients", len(recipients),
	)

	return nil
}

// Name returns the provider name.
func (p *SMTPProvider) Name() string {
	return "smtp"
}

// envelopeRecipients flattens To, Cc, and Bcc addresses into the
// envelope recipient list. Bcc recipients receive the message even
// though the rendered headers omit them.
func envelopeRecipients(msg *email.Message) []string {
	var out []string
	for _, kind := range []email.RecipientKind{email.RecipientTo, email.RecipientCc, email.RecipientBcc} {
		for _, addr := range msg.Recipients(kind) {
			out = append(out, addr.Address)
		}
	}
	return out
}
