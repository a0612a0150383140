// Package parser loads raw RFC 5322 messages into a message builder,
// with MIME multipart support.
package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/shineum/mailkit/internal/email"
)

// Headers consumed structurally during loading; everything else is copied
// into the builder's custom header map.
var structuralHeaders = map[string]bool{
	"From":                      true,
	"To":                        true,
	"Cc":                        true,
	"Bcc":                       true,
	"Reply-To":                  true,
	"Subject":                   true,
	"Date":                      true,
	"Content-Type":              true,
	"Content-Transfer-Encoding": true,
	"Mime-Version":              true,
}

// Load parses a raw RFC 5322 message and returns a Builder populated with
// its addressing, headers, and content, ready for further configuration
// and a Build call. Plain text bodies become string content; multipart
// messages become an *email.Multipart with attachment parts preserved.
//
// The transport host is not part of the wire format, so the returned
// builder has no host name set.
func Load(raw []byte) (*email.Builder, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	b := email.NewBuilder()

	if from := msg.Header.Get("From"); from != "" {
		if err := b.SetFrom(from); err != nil {
			return nil, fmt.Errorf("failed to load From: %w", err)
		}
	}
	if err := loadAddressList(b.AddTo, msg.Header.Get("To")); err != nil {
		return nil, fmt.Errorf("failed to load To: %w", err)
	}
	if err := loadAddressList(b.AddCc, msg.Header.Get("Cc")); err != nil {
		return nil, fmt.Errorf("failed to load Cc: %w", err)
	}
	if err := loadAddressList(b.AddBcc, msg.Header.Get("Bcc")); err != nil {
		return nil, fmt.Errorf("failed to load Bcc: %w", err)
	}
	if err := loadAddressList(b.AddReplyTo, msg.Header.Get("Reply-To")); err != nil {
		return nil, fmt.Errorf("failed to load Reply-To: %w", err)
	}

	b.SetSubject(msg.Header.Get("Subject"))

	if date, err := msg.Header.Date(); err == nil {
		b.SetSentDate(date)
	}

	for key, values := range msg.Header {
		if structuralHeaders[key] || len(values) == 0 || values[0] == "" {
			continue
		}
		if err := b.AddHeader(key, values[0]); err != nil {
			return nil, fmt.Errorf("failed to load header %q: %w", key, err)
		}
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Unparseable content type: treat the body as plain text.
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read message body: %w", readErr)
		}
		b.SetText(string(body))
		return b, nil
	}

	if cs, ok := params["charset"]; ok {
		b.SetCharset(cs)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		mp := &email.Multipart{Subtype: strings.TrimPrefix(mediaType, "multipart/")}
		if err := loadMultipart(msg.Body, boundary, mp); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
		b.SetContent(mp, "")
		return b, nil
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	b.SetContent(string(body), mediaType)
	return b, nil
}

// loadMultipart processes a multipart MIME body, appending text and
// attachment parts. Nested multiparts are flattened into the same body.
func loadMultipart(body io.Reader, boundary string, mp *email.Multipart) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = "text/plain"
		}

		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partContentType,
				"error", err,
			)
			continue
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			nestedBoundary := params["boundary"]
			if nestedBoundary == "" {
				slog.Warn("nested multipart missing boundary, skipping")
				continue
			}
			if err := loadMultipart(part, nestedBoundary, mp); err != nil {
				slog.Warn("failed to parse nested multipart",
					"error", err,
				)
			}
			continue
		}

		content, err := readPartContent(part)
		if err != nil {
			slog.Warn("failed to read part content",
				"content_type", mediaType,
				"error", err,
			)
			continue
		}

		contentDisposition := part.Header.Get("Content-Disposition")
		if strings.HasPrefix(contentDisposition, "attachment") {
			mp.AddAttachment(extractFilename(part, params), mediaType, content)
			continue
		}

		// A filename without an attachment disposition still marks an
		// attachment (common for legacy senders).
		if filename := fileNameHint(part, params); filename != "" && !strings.HasPrefix(mediaType, "text/") {
			mp.AddAttachment(filename, mediaType, content)
			continue
		}

		mp.AddPart(mediaType, content)
	}

	return nil
}

// readPartContent reads the full content of a MIME part, handling
// Content-Transfer-Encoding (base64, quoted-printable).
func readPartContent(part *multipart.Part) ([]byte, error) {
	encoding := part.Header.Get("Content-Transfer-Encoding")
	encoding = strings.ToLower(strings.TrimSpace(encoding))

	raw, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}

	switch encoding {
	case "base64":
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			// Try with RawStdEncoding for unpadded base64
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
		return decoded, nil
	default:
		// For "7bit", "8bit", "binary", "quoted-printable", or empty,
		// return raw content. Go's multipart reader handles QP internally.
		return raw, nil
	}
}

// fileNameHint returns the filename advertised by a MIME part, if any.
func fileNameHint(part *multipart.Part, params map[string]string) string {
	if fn := part.FileName(); fn != "" {
		return fn
	}
	if name, ok := params["name"]; ok && name != "" {
		return name
	}
	return ""
}

// extractFilename extracts the filename from an attachment part, falling
// back to a name derived from the media type when none is advertised.
func extractFilename(part *multipart.Part, params map[string]string) string {
	if fn := fileNameHint(part, params); fn != "" {
		return fn
	}
	if mediaType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type")); err == nil {
		parts := strings.SplitN(mediaType, "/", 2)
		if len(parts) == 2 {
			return "attachment." + parts[1]
		}
	}
	return "attachment"
}

// loadAddressList splits a comma-separated address list and feeds it to
// the given builder accumulator. Empty input is a no-op rather than an
// error: an absent header is not an empty add call.
func loadAddressList(add func(...string) error, raw string) error {
	if raw == "" {
		return nil
	}

	addresses, err := mail.ParseAddressList(raw)
	if err != nil {
		// Fall back to simple comma split if RFC 5322 parsing fails
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) == 0 {
			return nil
		}
		return add(parts...)
	}

	list := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		list = append(list, addr.String())
	}
	return add(list...)
}
