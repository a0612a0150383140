// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/shineum/mailkit/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// Each provider handles the actual delivery of a built message to its
// target service (stdout, SMTP relay, AWS SES, Microsoft Graph, etc.).
type Provider interface {
	// Send delivers a built message through this provider.
	// It returns an error if the delivery fails.
	Send(ctx context.Context, msg *email.Message) error

	// Name returns the human-readable name of this provider.
	Name() string
}
