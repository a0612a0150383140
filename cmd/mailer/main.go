// Package main is the entry point for the mailer CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/shineum/mailkit/internal/config"
	"github.com/shineum/mailkit/internal/email"
	"github.com/shineum/mailkit/internal/provider"
	"github.com/shineum/mailkit/internal/provider/graph"
	"github.com/shineum/mailkit/internal/provider/ses"
	"github.com/shineum/mailkit/internal/provider/smtpout"
	"github.com/shineum/mailkit/internal/provider/stdout"
	mailtls "github.com/shineum/mailkit/internal/tls"
)

// stringList collects repeatable flag values.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML configuration file (optional)")
		from       = flag.String("from", "", "sender address")
		subject    = flag.String("subject", "", "message subject")
		body       = flag.String("body", "", "message body text")
		bodyFile   = flag.String("body-file", "", "read the message body from a file")
		html       = flag.Bool("html", false, "send the body as text/html")
		charset    = flag.String("charset", "", "charset annotation for textual content")

		to      stringList
		cc      stringList
		bcc     stringList
		replyTo stringList
		headers stringList
		attach  stringList
	)
	flag.Var(&to, "to", "recipient address (repeatable)")
	flag.Var(&cc, "cc", "carbon-copy address (repeatable)")
	flag.Var(&bcc, "bcc", "blind-carbon-copy address (repeatable)")
	flag.Var(&replyTo, "reply-to", "reply-to address (repeatable)")
	flag.Var(&headers, "header", "custom header as Name=Value (repeatable)")
	flag.Var(&attach, "attach", "attachment file path (repeatable)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging.Level)

	b := email.NewBuilder()
	if cfg.SMTP.Host != "" {
		b.SetHostName(cfg.SMTP.Host)
	}
	b.SetSMTPPort(cfg.SMTP.Port)
	b.SetSocketConnectionTimeout(cfg.SMTP.TimeoutMillis)

	if err := populateBuilder(b, builderInput{
		from:     *from,
		subject:  *subject,
		body:     *body,
		bodyFile: *bodyFile,
		html:     *html,
		charset:  *charset,
		to:       to,
		cc:       cc,
		bcc:      bcc,
		replyTo:  replyTo,
		headers:  headers,
		attach:   attach,
	}); err != nil {
		slog.Error("invalid message", "error", err)
		os.Exit(1)
	}

	// The session is only needed for SMTP delivery and requires a host.
	var sess *email.Session
	if cfg.SMTPConfigured() {
		sess, err = b.Session()
		if err != nil {
			slog.Error("failed to create session", "error", err)
			os.Exit(1)
		}
	}

	msg, err := b.Build()
	if err != nil {
		slog.Error("failed to build message", "error", err)
		os.Exit(1)
	}

	prov := selectProvider(cfg, sess)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, cancelling send", "signal", sig)
		cancel()
	}()

	if err := prov.Send(ctx, msg); err != nil {
		slog.Error("send failed",
			"provider", prov.Name(),
			"error", err,
		)
		os.Exit(1)
	}

	slog.Info("message sent", "provider", prov.Name())
}

// builderInput carries the parsed message flags.
type builderInput struct {
	from     string
	subject  string
	body     string
	bodyFile string
	html     bool
	charset  string
	to       []string
	cc       []string
	bcc      []string
	replyTo  []string
	headers  []string
	attach   []string
}

// populateBuilder applies the message flags to the builder.
func populateBuilder(b *email.Builder, in builderInput) error {
	if in.from != "" {
		if err := b.SetFrom(in.from); err != nil {
			return err
		}
	}
	if len(in.to) > 0 {
		if err := b.AddTo(in.to...); err != nil {
			return err
		}
	}
	if len(in.cc) > 0 {
		if err := b.AddCc(in.cc...); err != nil {
			return err
		}
	}
	if len(in.bcc) > 0 {
		if err := b.AddBcc(in.bcc...); err != nil {
			return err
		}
	}
	if len(in.replyTo) > 0 {
		if err := b.AddReplyTo(in.replyTo...); err != nil {
			return err
		}
	}

	b.SetSubject(in.subject)
	if in.charset != "" {
		b.SetCharset(in.charset)
	}

	for _, h := range in.headers {
		name, value, ok := strings.Cut(h, "=")
		if !ok {
			return fmt.Errorf("header %q is not in Name=Value form", h)
		}
		if err := b.AddHeader(name, value); err != nil {
			return err
		}
	}

	bodyText := in.body
	if in.bodyFile != "" {
		data, err := os.ReadFile(in.bodyFile)
		if err != nil {
			return fmt.Errorf("failed to read body file: %w", err)
		}
		bodyText = string(data)
	}

	contentType := "text/plain"
	if in.html {
		contentType = "text/html"
	}

	if len(in.attach) > 0 {
		mp := &email.Multipart{}
		if bodyText != "" {
			mp.AddPart(contentType, []byte(bodyText))
		}
		for _, path := range in.attach {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read attachment: %w", err)
			}
			mp.AddAttachment(filepath.Base(path), "application/octet-stream", data)
		}
		b.SetContent(mp, "")
		return nil
	}

	if bodyText != "" {
		b.SetContent(bodyText, contentType)
	}
	return nil
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectProvider chooses the delivery backend based on configuration.
// If the PROVIDER env var or config field is set, it takes precedence.
// Otherwise, it falls back to auto-detection.
func selectProvider(cfg *config.Config, sess *email.Session) provider.Provider {
	switch cfg.Provider {
	case "smtp":
		if sess == nil {
			slog.Error("SMTP provider selected but SMTP_HOST is required")
			os.Exit(1)
		}
		return newSMTPProvider(cfg, sess)

	case "ses":
		if !cfg.SESConfigured() {
			slog.Error("SES provider selected but SES_REGION and SES_SENDER are required")
			os.Exit(1)
		}
		return newSESProvider(cfg)

	case "graph":
		if !cfg.GraphConfigured() {
			slog.Error("Graph provider selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID, GRAPH_CLIENT_SECRET, and GRAPH_SENDER are required")
			os.Exit(1)
		}
		slog.Info("using Microsoft Graph provider",
			"sender", cfg.Graph.Sender,
		)
		return graph.New(graph.GraphProviderConfig{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Graph.Sender,
		})

	case "stdout":
		slog.Info("using stdout provider")
		return stdout.New()

	case "":
		// Auto-detection fallback
		if sess != nil {
			return newSMTPProvider(cfg, sess)
		}
		if cfg.GraphConfigured() {
			slog.Info("using Microsoft Graph provider (auto-detected)",
				"sender", cfg.Graph.Sender,
			)
			return graph.New(graph.GraphProviderConfig{
				TenantID:     cfg.Graph.TenantID,
				ClientID:     cfg.Graph.ClientID,
				ClientSecret: cfg.Graph.ClientSecret,
				Sender:       cfg.Graph.Sender,
			})
		}
		if cfg.SESConfigured() {
			return newSESProvider(cfg)
		}
		slog.Info("no provider configured, using stdout provider")
		return stdout.New()

	default:
		slog.Error("unknown provider", "provider", cfg.Provider)
		os.Exit(1)
		return nil
	}
}

// newSMTPProvider builds the SMTP delivery backend from the session and
// the transport configuration.
func newSMTPProvider(cfg *config.Config, sess *email.Session) provider.Provider {
	var opts smtpout.Options
	opts.Username = cfg.SMTP.Username
	opts.Password = cfg.SMTP.Password
	opts.StartTLS = cfg.SMTP.StartTLS
	opts.LocalName = cfg.SMTP.LocalName

	if cfg.SMTP.StartTLS {
		tlsConfig, err := mailtls.ClientConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.SMTP.Host, cfg.TLS.Insecure)
		if err != nil {
			slog.Error("failed to setup TLS", "error", err)
			os.Exit(1)
		}
		opts.TLSConfig = tlsConfig
	}

	slog.Info("using SMTP provider",
		"host", cfg.SMTP.Host,
		"port", cfg.SMTP.Port,
		"starttls", cfg.SMTP.StartTLS,
	)
	return smtpout.New(sess, opts)
}

// newSESProvider builds the AWS SES delivery backend.
func newSESProvider(cfg *config.Config) provider.Provider {
	slog.Info("using AWS SES provider",
		"region", cfg.SES.Region,
		"sender", cfg.SES.Sender,
	)
	p, err := ses.New(context.Background(), ses.SESProviderConfig{
		Region:          cfg.SES.Region,
		AccessKeyID:     cfg.SES.AccessKeyID,
		SecretAccessKey: cfg.SES.SecretAccessKey,
		Sender:          cfg.SES.Sender,
	})
	if err != nil {
		slog.Error("failed to create SES provider", "error", err)
		os.Exit(1)
	}
	return p
}
