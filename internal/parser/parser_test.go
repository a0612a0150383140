package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/shineum/mailkit/internal/email"
)

func TestLoadPlainTextMessage(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: Test Subject",
		"Message-Id: <test123@example.com>",
		"Content-Type: text/plain",
		"",
		"Hello, this is a plain text email.",
	}, "\r\n"))

	b, err := Load(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if from := b.FromAddress(); from == nil || from.Address != "sender@example.com" {
		t.Errorf("From: got %v, want sender@example.com", from)
	}
	to := b.ToAddresses()
	if len(to) != 1 || to[0].Address != "recipient@example.com" {
		t.Errorf("To: got %v, want [recipient@example.com]", to)
	}
	if got := b.Subject(); got != "Test Subject" {
		t.Errorf("Subject: got %q, want %q", got, "Test Subject")
	}
	if got := b.Headers()["Message-Id"]; got != "<test123@example.com>" {
		t.Errorf("Message-Id: got %q, want %q", got, "<test123@example.com>")
	}

	b.SetHostName("localhost")
	msg, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if got := msg.TextBody(); got != "Hello, this is a plain text email." {
		t.Errorf("TextBody: got %q, want %q", got, "Hello, this is a plain text email.")
	}
	if ct := msg.ContentType(); !strings.Contains(ct, "text/plain") {
		t.Errorf("content type %q does not contain text/plain", ct)
	}
}

func TestLoadMultipartTextAndHTML(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: alice@example.com, bob@example.com",
		"Cc: carol@example.com",
		"Subject: Multipart Test",
		"Content-Type: multipart/alternative; boundary=boundary123",
		"",
		"--boundary123",
		"Content-Type: text/plain",
		"",
		"Plain text body",
		"--boundary123",
		"Content-Type: text/html",
		"",
		"<html><body><p>HTML body</p></body></html>",
		"--boundary123--",
	}, "\r\n"))

	b, err := Load(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	to := b.ToAddresses()
	if len(to) != 2 {
		t.Fatalf("To: got %d recipients, want 2", len(to))
	}
	if to[0].Address != "alice@example.com" {
		t.Errorf("To[0]: got %q, want %q", to[0].Address, "alice@example.com")
	}
	if to[1].Address != "bob@example.com" {
		t.Errorf("To[1]: got %q, want %q", to[1].Address, "bob@example.com")
	}
	cc := b.CcAddresses()
	if len(cc) != 1 || cc[0].Address != "carol@example.com" {
		t.Errorf("Cc: got %v, want [carol@example.com]", cc)
	}

	b.SetHostName("localhost")
	msg, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	mp, ok := msg.Content().(*email.Multipart)
	if !ok {
		t.Fatalf("content: got %T, want *email.Multipart", msg.Content())
	}
	if mp.Subtype != "alternative" {
		t.Errorf("subtype: got %q, want %q", mp.Subtype, "alternative")
	}
	if len(mp.Parts) != 2 {
		t.Fatalf("parts: got %d, want 2", len(mp.Parts))
	}
	if got := string(mp.Parts[0].Body); got != "Plain text body" {
		t.Errorf("part[0]: got %q, want %q", got, "Plain text body")
	}
	if mp.Parts[1].ContentType != "text/html" {
		t.Errorf("part[1] content type: got %q, want %q", mp.Parts[1].ContentType, "text/html")
	}
}

func TestLoadMessageWithAttachment(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: With Attachment",
		"Content-Type: multipart/mixed; boundary=mixedboundary",
		"",
		"--mixedboundary",
		"Content-Type: text/plain",
		"",
		"Email body text",
		"--mixedboundary",
		"Content-Type: application/pdf; name=\"report.pdf\"",
		"Content-Disposition: attachment; filename=\"report.pdf\"",
		"Content-Transfer-Encoding: base64",
		"",
		"SGVsbG8gV29ybGQ=",
		"--mixedboundary--",
	}, "\r\n"))

	b, err := Load(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b.SetHostName("localhost")
	msg, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	mp, ok := msg.Content().(*email.Multipart)
	if !ok {
		t.Fatalf("content: got %T, want *email.Multipart", msg.Content())
	}
	if len(mp.Parts) != 2 {
		t.Fatalf("parts: got %d, want 2", len(mp.Parts))
	}
	att := mp.Parts[1]
	if att.Filename != "report.pdf" {
		t.Errorf("filename: got %q, want %q", att.Filename, "report.pdf")
	}
	if att.ContentType != "application/pdf" {
		t.Errorf("content type: got %q, want %q", att.ContentType, "application/pdf")
	}
	if got := string(att.Body); got != "Hello World" {
		t.Errorf("attachment body: got %q, want %q", got, "Hello World")
	}
}

func TestLoadSentDate(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Date: Tue, 18 Mar 2025 09:30:00 +0000",
		"Subject: Dated",
		"",
		"body",
	}, "\r\n"))

	b, err := Load(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b.SetHostName("localhost")
	msg, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	want := time.Date(2025, time.March, 18, 9, 30, 0, 0, time.UTC)
	if got := msg.SentDate(); !got.Equal(want) {
		t.Errorf("sent date: got %v, want %v", got, want)
	}
}

func TestLoadInvalidMessage(t *testing.T) {
	t.Parallel()

	if _, err := Load([]byte("not a message")); err == nil {
		t.Fatal("expected error for malformed message, got nil")
	}
}

func TestLoadCharsetFromContentType(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Content-Type: text/plain; charset=ISO-8859-1",
		"",
		"body",
	}, "\r\n"))

	b, err := Load(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b.SetHostName("localhost")
	msg, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if got := msg.Charset(); got != "ISO-8859-1" {
		t.Errorf("charset: got %q, want %q", got, "ISO-8859-1")
	}
}
