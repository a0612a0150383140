package stdout

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shineum/mailkit/internal/email"
)

func buildMessage(t *testing.T, configure func(*email.Builder)) *email.Message {
	t.Helper()

	b := email.NewBuilder()
	b.SetHostName("localhost")
	if err := b.SetFrom("sender@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	configure(b)
	msg, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	return msg
}

func TestSend_BasicMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := buildMessage(t, func(b *email.Builder) {
		if err := b.AddTo("alice@example.com", "bob@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b.SetSubject("Monthly Report")
		b.SetText("Please find the report attached.")
	})

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "From: sender@example.com") {
		t.Error("output missing From header")
	}
	if !strings.Contains(output, "To: alice@example.com, bob@example.com") {
		t.Error("output missing To header")
	}
	if !strings.Contains(output, "Subject: Monthly Report") {
		t.Error("output missing Subject header")
	}
	if !strings.Contains(output, "Please find the report attached.") {
		t.Error("output missing body text")
	}
	if strings.Contains(output, "Attachments:") {
		t.Error("output should not contain Attachments line when there are none")
	}
	if !strings.HasPrefix(output, "========================================\n") {
		t.Error("output should start with separator line")
	}
	if !strings.HasSuffix(output, "========================================\n") {
		t.Error("output should end with separator line")
	}
}

func TestSend_WithCcAndBcc(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := buildMessage(t, func(b *email.Builder) {
		if err := b.AddTo("alice@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := b.AddCc("carol@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := b.AddBcc("dave@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b.SetSubject("With CC")
		b.SetText("Hello")
	})

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Cc: carol@example.com") {
		t.Error("output missing Cc header")
	}
	if !strings.Contains(output, "Bcc: dave@example.com") {
		t.Error("output missing Bcc header")
	}
}

func TestSend_NoCc(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := buildMessage(t, func(b *email.Builder) {
		if err := b.AddTo("recipient@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b.SetSubject("No CC")
		b.SetText("Body")
	})

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(buf.String(), "Cc:") {
		t.Error("output should not contain Cc line when there are no Cc recipients")
	}
}

func TestSend_MultipartWithAttachments(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	mp := &email.Multipart{}
	mp.AddPart("text/plain", []byte("Please find the report attached."))
	mp.AddAttachment("report.pdf", "application/pdf", make([]byte, 1258291)) // ~1.2 MB
	mp.AddAttachment("summary.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		make([]byte, 46080)) // ~45 KB

	msg := buildMessage(t, func(b *email.Builder) {
		if err := b.AddTo("alice@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b.SetSubject("Monthly Report")
		b.SetContent(mp, "")
	})

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Please find the report attached.") {
		t.Error("output missing body part text")
	}
	if !strings.Contains(output, "Attachments:") {
		t.Error("output missing Attachments line")
	}
	if !strings.Contains(output, "report.pdf") {
		t.Error("output missing report.pdf attachment")
	}
	if !strings.Contains(output, "summary.xlsx") {
		t.Error("output missing summary.xlsx attachment")
	}
	if !strings.Contains(output, "MB") {
		t.Error("output should contain MB size for large attachment")
	}
	if !strings.Contains(output, "KB") {
		t.Error("output should contain KB size for medium attachment")
	}
}

func TestSend_NonStringContent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := buildMessage(t, func(b *email.Builder) {
		if err := b.AddTo("recipient@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b.SetContent(42, "text/plain")
	})

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "42") {
		t.Error("output should render non-string content")
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	p := New()
	if p.Name() != "stdout" {
		t.Errorf("Name: got %q, want %q", p.Name(), "stdout")
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		bytes int
		want  string
	}{
		{name: "zero bytes", bytes: 0, want: "0 B"},
		{name: "small bytes", bytes: 512, want: "512 B"},
		{name: "kilobytes", bytes: 46080, want: "45.0 KB"},
		{name: "megabytes", bytes: 1258291, want: "1.2 MB"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := formatSize(tt.bytes)
			if got != tt.want {
				t.Errorf("formatSize(%d): got %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
