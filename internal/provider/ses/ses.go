// Package ses implements a Provider that sends messages via AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/mailkit/internal/email"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// SESProviderConfig holds the configuration for creating a SESProvider.
type SESProviderConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Sender          string
}

// SESProvider sends built messages via the AWS SES v2 API.
type SESProvider struct {
	sender string
	client SendEmailAPI
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// New creates a new SESProvider with the given configuration.
func New(ctx context.Context, cfg SESProviderConfig) (*SESProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sesv2.NewFromConfig(awsCfg)

	return &SESProvider{
		sender: cfg.Sender,
		client: client,
	}, nil
}

// NewWithClient creates a SESProvider with a custom client, used for testing.
func NewWithClient(sender string, client SendEmailAPI) *SESProvider {
	return &SESProvider{
		sender: sender,
		client: client,
	}
}

// Send delivers a built message via AWS SES v2.
// Multipart messages are sent as raw MIME using the message's own wire
// rendering; textual messages use the SES simple email format.
func (s *SESProvider) Send(ctx context.Context, msg *email.Message) error {
	var input *sesv2.SendEmailInput

	if _, ok := msg.Content().(*email.Multipart); ok {
		raw, err := msg.Bytes()
		if err != nil {
			return fmt.Errorf("failed to render raw message: %w", err)
		}
		input = &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(s.senderFor(msg)),
			Destination:      buildDestination(msg),
			Content: &types.EmailContent{
				Raw: &types.RawMessage{
					Data: raw,
				},
			},
		}
	} else {
		input = s.buildSimpleInput(msg)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying SES API request",
				"attempt", attempt,
				"max_retries", maxRetries,
			)
			delay := backoffDelay(attempt)
			if err := sleepWithContext(ctx, delay); err != nil {
				return fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		}

		_, err := s.client.SendEmail(ctx, input)
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn("SES API error",
			"attempt", attempt,
			"error", err,
		)
	}

	return fmt.Errorf("SES API request failed after %d retries: %w", maxRetries, lastErr)
}

// Name returns the provider name.
func (s *SESProvider) Name() string {
	return "ses"
}

// senderFor prefers the message's own From address over the configured
// default sender.
func (s *SESProvider) senderFor(msg *email.Message) string {
	if from := msg.From(); from != nil {
		return from.Address
	}
	return s.sender
}

// buildSimpleInput creates a SES SendEmailInput for textual messages.
func (s *SESProvider) buildSimpleInput(msg *email.Message) *sesv2.SendEmailInput {
	charset := msg.Charset()
	if charset == "" {
		charset = "UTF-8"
	}

	body := &types.Body{}
	content := &types.Content{
		Data:    aws.String(bodyText(msg)),
		Charset: aws.String(charset),
	}
	if strings.Contains(msg.ContentType(), "text/html") {
		body.Html = content
	} else {
		body.Text = content
	}

	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.senderFor(msg)),
		Destination:      buildDestination(msg),
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject()),
					Charset: aws.String(charset),
				},
				Body: body,
			},
		},
	}
}

// bodyText renders a message body for the simple email format.
func bodyText(msg *email.Message) string {
	switch body := msg.Content().(type) {
	case nil:
		return ""
	case string:
		return body
	default:
		return fmt.Sprint(body)
	}
}

// buildDestination transfers the envelope recipients into an SES destination.
func buildDestination(msg *email.Message) *types.Destination {
	return &types.Destination{
		ToAddresses:  rawAddrs(msg.Recipients(email.RecipientTo)),
		CcAddresses:  rawAddrs(msg.Recipients(email.RecipientCc)),
		BccAddresses: rawAddrs(msg.Recipients(email.RecipientBcc)),
	}
}

func rawAddrs(addrs []*mail.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Address)
	}
	return out
}

// backoffDelay returns the exponential backoff delay for the given attempt number.
func backoffDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepWithContext waits for the specified duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
