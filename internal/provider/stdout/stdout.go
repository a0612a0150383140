// Package stdout implements a Provider that prints messages to standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"

	"github.com/shineum/mailkit/internal/email"
)

// Provider prints built messages to stdout in a human-readable format.
type Provider struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints the message to stdout in a readable format.
// It always returns nil (success).
func (p *Provider) Send(_ context.Context, msg *email.Message) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	if from := msg.From(); from != nil {
		b.WriteString(fmt.Sprintf("From: %s\n", from.Address))
	}
	b.WriteString(fmt.Sprintf("To: %s\n", formatAddrs(msg.Recipients(email.RecipientTo))))

	if cc := msg.Recipients(email.RecipientCc); len(cc) > 0 {
		b.WriteString(fmt.Sprintf("Cc: %s\n", formatAddrs(cc)))
	}
	if bcc := msg.Recipients(email.RecipientBcc); len(bcc) > 0 {
		b.WriteString(fmt.Sprintf("Bcc: %s\n", formatAddrs(bcc)))
	}

	b.WriteString(fmt.Sprintf("Subject: %s\n", msg.Subject()))
	b.WriteString(fmt.Sprintf("Content-Type: %s\n", msg.ContentType()))
	b.WriteString("Body:\n")

	switch body := msg.Content().(type) {
	case nil:
	case string:
		b.WriteString(body + "\n")
	case *email.Multipart:
		attachments := make([]string, 0, len(body.Parts))
		for _, part := range body.Parts {
			if part.Filename != "" {
				attachments = append(attachments,
					fmt.Sprintf("%s (%s)", part.Filename, formatSize(len(part.Body))))
				continue
			}
			b.WriteString(string(part.Body) + "\n")
		}
		if len(attachments) > 0 {
			b.WriteString(fmt.Sprintf("Attachments: %s\n", strings.Join(attachments, ", ")))
		}
	default:
		b.WriteString(fmt.Sprintf("%v\n", body))
	}

	b.WriteString("========================================\n")

	_, err := fmt.Fprint(p.writer, b.String())
	if err != nil {
		// Log the write error but still return nil since the provider
		// contract says stdout always succeeds conceptually
		return nil
	}

	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

// formatAddrs renders an address list as a comma-separated string.
func formatAddrs(addrs []*mail.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.Address)
	}
	return strings.Join(parts, ", ")
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
