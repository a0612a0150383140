package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"
)

// RecipientKind selects one of the message recipient lists.
type RecipientKind int

const (
	RecipientTo RecipientKind = iota
	RecipientCc
	RecipientBcc
)

// Part is a single body part of a multipart message. A non-empty Filename
// marks the part as an attachment.
type Part struct {
	ContentType string
	Filename    string
	Body        []byte
}

// Multipart is a structured multipart message body. It round-trips through
// Build unchanged: Message.Content returns the same *Multipart value.
type Multipart struct {
	// Subtype is the multipart subtype (e.g. "mixed", "alternative").
	// Empty defaults to "mixed" at render time.
	Subtype string
	Parts   []Part
}

// AddPart appends a body part.
func (m *Multipart) AddPart(contentType string, body []byte) {
	m.Parts = append(m.Parts, Part{ContentType: contentType, Body: body})
}

// AddAttachment appends an attachment part.
func (m *Multipart) AddAttachment(filename, contentType string, body []byte) {
	m.Parts = append(m.Parts, Part{ContentType: contentType, Filename: filename, Body: body})
}

// Message is the immutable product of Builder.Build. All accessors return
// the state transferred from the builder at build time; later builder
// mutation never affects a built message.
type Message struct {
	from        *mail.Address
	bounce      *mail.Address
	to          []*mail.Address
	cc          []*mail.Address
	bcc         []*mail.Address
	replyTo     []*mail.Address
	headers     map[string]string
	subject     string
	content     any
	contentType string
	charset     string
	sentDate    time.Time
}

// From returns the sender address, or nil when none was set.
func (m *Message) From() *mail.Address { return m.from }

// BounceAddress returns the envelope return path, or nil when none was
// set. Transports fall back to From when it is nil.
func (m *Message) BounceAddress() *mail.Address { return m.bounce }

// Recipients returns the recipient list of the given kind in insertion order.
func (m *Message) Recipients(kind RecipientKind) []*mail.Address {
	switch kind {
	case RecipientCc:
		return copyAddrs(m.cc)
	case RecipientBcc:
		return copyAddrs(m.bcc)
	default:
		return copyAddrs(m.to)
	}
}

// ReplyTo returns the reply-to addresses in insertion order.
func (m *Message) ReplyTo() []*mail.Address { return copyAddrs(m.replyTo) }

// Subject returns the message subject.
func (m *Message) Subject() string { return m.subject }

// Header returns the value of a custom header, or the empty string.
func (m *Message) Header(name string) string { return m.headers[name] }

// Headers returns a copy of the custom header map.
func (m *Message) Headers() map[string]string {
	h := make(map[string]string, len(m.headers))
	for k, v := range m.headers {
		h[k] = v
	}
	return h
}

// Content returns the message body exactly as assigned to the builder:
// a string, a *Multipart, or any other value passed to SetContent.
func (m *Message) Content() any { return m.content }

// ContentType returns the content type resolved at build time.
func (m *Message) ContentType() string { return m.contentType }

// Charset returns the charset set on the builder, if any.
func (m *Message) Charset() string { return m.charset }

// SentDate returns the sent date transferred from the builder, or the
// build time when none was set.
func (m *Message) SentDate() time.Time { return m.sentDate }

// TextBody returns the body as a string when the content is textual,
// and the empty string otherwise.
func (m *Message) TextBody() string {
	if s, ok := m.content.(string); ok {
		return s
	}
	return ""
}

// Bytes renders the message in RFC 5322 wire format. Bcc addresses are
// kept off the wire; they live only in the message envelope.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer

	if m.from != nil {
		fmt.Fprintf(&buf, "From: %s\r\n", m.from.String())
	}
	if len(m.to) > 0 {
		fmt.Fprintf(&buf, "To: %s\r\n", joinAddrs(m.to))
	}
	if len(m.cc) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", joinAddrs(m.cc))
	}
	if len(m.replyTo) > 0 {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", joinAddrs(m.replyTo))
	}
	if m.subject != "" {
		fmt.Fprintf(&buf, "Subject: %s\r\n", m.subject)
	}
	fmt.Fprintf(&buf, "Date: %s\r\n", m.sentDate.Format(time.RFC1123Z))
	for name, value := range m.headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
	}
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	if mp, ok := m.content.(*Multipart); ok {
		if err := writeMultipart(&buf, mp); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	fmt.Fprintf(&buf, "Content-Type: %s\r\n\r\n", m.contentType)
	switch body := m.content.(type) {
	case nil:
	case string:
		buf.WriteString(body)
	case []byte:
		buf.Write(body)
	default:
		fmt.Fprint(&buf, body)
	}
	return buf.Bytes(), nil
}

// WriteTo renders the message to w, satisfying io.WriterTo.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	data, err := m.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// writeMultipart renders a multipart body, headers included.
func writeMultipart(buf *bytes.Buffer, mp *Multipart) error {
	writer := multipart.NewWriter(buf)
	subtype := mp.Subtype
	if subtype == "" {
		subtype = "mixed"
	}
	fmt.Fprintf(buf, "Content-Type: multipart/%s; boundary=%q\r\n\r\n", subtype, writer.Boundary())

	for _, p := range mp.Parts {
		header := make(textproto.MIMEHeader)
		contentType := p.ContentType
		if contentType == "" {
			contentType = "text/plain"
		}
		header.Set("Content-Type", contentType)

		if p.Filename != "" {
			header.Set("Content-Transfer-Encoding", "base64")
			header.Set("Content-Disposition",
				fmt.Sprintf("attachment; filename=%s", mime.QEncoding.Encode("UTF-8", p.Filename)))

			part, err := writer.CreatePart(header)
			if err != nil {
				return fmt.Errorf("failed to create attachment part: %w", err)
			}
			if _, err := part.Write([]byte(encodeBase64WithLineBreaks(p.Body))); err != nil {
				return fmt.Errorf("failed to write attachment part: %w", err)
			}
			continue
		}

		part, err := writer.CreatePart(header)
		if err != nil {
			return fmt.Errorf("failed to create body part: %w", err)
		}
		if _, err := part.Write(p.Body); err != nil {
			return fmt.Errorf("failed to write body part: %w", err)
		}
	}

	return writer.Close()
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character line breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}

// joinAddrs formats an address list for a single header line.
func joinAddrs(addrs []*mail.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}
