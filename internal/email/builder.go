// Package email implements a one-shot builder for MIME email messages.
//
// A Builder accumulates addressing, header, and content state through any
// number of setter calls, then produces an immutable Message exactly once
// via Build. Every accumulation call validates its input before touching
// builder state, so a failed call never leaves a partial mutation behind.
package email

import (
	"crypto/tls"
	"fmt"
	"net/mail"
	"time"
)

// DefaultSocketTimeoutMillis is the socket connection timeout applied to
// transport sessions when the caller does not configure one.
const DefaultSocketTimeoutMillis = 60 * 1000

// DefaultSMTPPort is the transport port used when none is configured.
const DefaultSMTPPort = 25

// builderState tracks the builder lifecycle. The built state is terminal:
// a builder never leaves it.
type builderState int

const (
	stateEmpty builderState = iota
	stateConfiguring
	stateBuilt
)

// AddressParser validates and normalizes a raw address string.
// The default implementation parses RFC 5322 addresses via net/mail.
type AddressParser interface {
	Parse(raw string) (*mail.Address, error)
}

type rfc5322Parser struct{}

func (rfc5322Parser) Parse(raw string) (*mail.Address, error) {
	return mail.ParseAddress(raw)
}

// Builder accumulates the state of an email message and produces an
// immutable Message exactly once. After a successful Build the builder is
// terminal: mutators that return an error fail with ErrAlreadyBuilt, and
// plain setters are ignored. A Builder is not safe for concurrent use;
// callers sharing one must serialize access externally.
type Builder struct {
	state  builderState
	parser AddressParser

	hostName string
	smtpPort int

	from    *mail.Address
	bounce  *mail.Address
	to      []*mail.Address
	cc      []*mail.Address
	bcc     []*mail.Address
	replyTo []*mail.Address

	headers map[string]string
	subject string

	content     any
	contentType string
	charset     string

	sentDate    time.Time
	sentDateSet bool

	socketTimeoutMillis int
	tlsConfig           *tls.Config

	message *Message
}

// NewBuilder returns an empty Builder with the default RFC 5322 address
// parser and default socket timeout.
func NewBuilder() *Builder {
	return NewBuilderWithParser(rfc5322Parser{})
}

// NewBuilderWithParser returns a Builder using a custom address parser.
// Used for testing and for callers with non-standard address rules.
func NewBuilderWithParser(p AddressParser) *Builder {
	return &Builder{
		parser:              p,
		headers:             make(map[string]string),
		smtpPort:            DefaultSMTPPort,
		socketTimeoutMillis: DefaultSocketTimeoutMillis,
	}
}

// advance moves an empty builder into the configuring state.
func (b *Builder) advance() {
	if b.state == stateEmpty {
		b.state = stateConfiguring
	}
}

// configure applies a plain setter mutation unless the builder is in the
// terminal built state, in which case it is ignored.
func (b *Builder) configure(mutate func()) {
	if b.state == stateBuilt {
		return
	}
	b.advance()
	mutate()
}

// parseAll validates every raw address before any is appended, so a failed
// call leaves the target collection untouched.
func (b *Builder) parseAll(addrs []string) ([]*mail.Address, error) {
	if len(addrs) == 0 {
		return nil, &AddressError{Err: ErrNoAddresses}
	}
	parsed := make([]*mail.Address, 0, len(addrs))
	for _, raw := range addrs {
		a, err := b.parser.Parse(raw)
		if err != nil {
			return nil, &AddressError{Raw: raw, Err: err}
		}
		parsed = append(parsed, a)
	}
	return parsed, nil
}

func (b *Builder) addAddresses(dst *[]*mail.Address, addrs []string) error {
	if b.state == stateBuilt {
		return ErrAlreadyBuilt
	}
	parsed, err := b.parseAll(addrs)
	if err != nil {
		return err
	}
	b.advance()
	*dst = append(*dst, parsed...)
	return nil
}

// AddTo appends one or more recipient addresses, preserving order.
// It fails with *AddressError when no addresses are given or any address
// is malformed; on failure the recipient list is unchanged.
func (b *Builder) AddTo(addrs ...string) error {
	return b.addAddresses(&b.to, addrs)
}

// AddCc appends one or more carbon-copy addresses. Same contract as AddTo.
func (b *Builder) AddCc(addrs ...string) error {
	return b.addAddresses(&b.cc, addrs)
}

// AddBcc appends one or more blind-carbon-copy addresses. Same contract as AddTo.
func (b *Builder) AddBcc(addrs ...string) error {
	return b.addAddresses(&b.bcc, addrs)
}

// AddReplyTo appends one or more reply-to addresses. Same contract as AddTo.
func (b *Builder) AddReplyTo(addrs ...string) error {
	return b.addAddresses(&b.replyTo, addrs)
}

// SetFrom parses and stores the sender address.
func (b *Builder) SetFrom(raw string) error {
	if b.state == stateBuilt {
		return ErrAlreadyBuilt
	}
	a, err := b.parser.Parse(raw)
	if err != nil {
		return &AddressError{Raw: raw, Err: err}
	}
	b.advance()
	b.from = a
	return nil
}

// SetBounceAddress parses and stores the envelope return path used as the
// SMTP envelope sender. When unset, transports fall back to the From
// address.
func (b *Builder) SetBounceAddress(raw string) error {
	if b.state == stateBuilt {
		return ErrAlreadyBuilt
	}
	a, err := b.parser.Parse(raw)
	if err != nil {
		return &AddressError{Raw: raw, Err: err}
	}
	b.advance()
	b.bounce = a
	return nil
}

// AddHeader inserts or overwrites a header. Empty names and empty values
// are rejected with ErrInvalidHeader before any mutation.
func (b *Builder) AddHeader(name, value string) error {
	if b.state == stateBuilt {
		return ErrAlreadyBuilt
	}
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidHeader)
	}
	if value == "" {
		return fmt.Errorf("%w: empty value for %q", ErrInvalidHeader, name)
	}
	b.advance()
	b.headers[name] = value
	return nil
}

// SetHostName sets the transport target host. The value is only required
// at build or session-acquisition time.
func (b *Builder) SetHostName(host string) {
	b.configure(func() { b.hostName = host })
}

// HostName returns the configured host name. It fails with ErrMissingHost
// when no host has been set rather than returning an empty string.
func (b *Builder) HostName() (string, error) {
	if b.hostName == "" {
		return "", ErrMissingHost
	}
	return b.hostName, nil
}

// SetSMTPPort sets the transport port used by Session. Values below 1 are
// ignored and the default port is kept.
func (b *Builder) SetSMTPPort(port int) {
	b.configure(func() {
		if port > 0 {
			b.smtpPort = port
		}
	})
}

// SetSubject sets the message subject.
func (b *Builder) SetSubject(subject string) {
	b.configure(func() { b.subject = subject })
}

// SetCharset sets the charset used to annotate textual content types.
func (b *Builder) SetCharset(charset string) {
	b.configure(func() { b.charset = charset })
}

// SetContent stores the message body and the requested content type
// verbatim. The type string is not validated here; content-type
// resolution happens at build time.
func (b *Builder) SetContent(body any, contentType string) {
	b.configure(func() {
		b.content = body
		b.contentType = contentType
	})
}

// SetText sets a plain-text body with no explicit content type, so the
// built message resolves to text/plain.
func (b *Builder) SetText(body string) {
	b.SetContent(body, "")
}

// SetSentDate sets the message sent date, transferred into the built
// message without truncation or timezone adjustment.
func (b *Builder) SetSentDate(d time.Time) {
	b.configure(func() {
		b.sentDate = d
		b.sentDateSet = true
	})
}

// SetSocketConnectionTimeout sets the transport connection timeout in
// milliseconds.
func (b *Builder) SetSocketConnectionTimeout(ms int) {
	b.configure(func() { b.socketTimeoutMillis = ms })
}

// SocketConnectionTimeout returns the configured timeout in milliseconds.
func (b *Builder) SocketConnectionTimeout() int {
	return b.socketTimeoutMillis
}

// SetTLSConfig sets the TLS configuration handed to transport sessions.
func (b *Builder) SetTLSConfig(cfg *tls.Config) {
	b.configure(func() { b.tlsConfig = cfg })
}

// ToAddresses returns a copy of the accumulated To list.
func (b *Builder) ToAddresses() []*mail.Address { return copyAddrs(b.to) }

// CcAddresses returns a copy of the accumulated Cc list.
func (b *Builder) CcAddresses() []*mail.Address { return copyAddrs(b.cc) }

// BccAddresses returns a copy of the accumulated Bcc list.
func (b *Builder) BccAddresses() []*mail.Address { return copyAddrs(b.bcc) }

// ReplyToAddresses returns a copy of the accumulated Reply-To list.
func (b *Builder) ReplyToAddresses() []*mail.Address { return copyAddrs(b.replyTo) }

// FromAddress returns the configured sender, or nil when unset.
func (b *Builder) FromAddress() *mail.Address { return b.from }

// BounceAddress returns the configured envelope return path, or nil
// when unset.
func (b *Builder) BounceAddress() *mail.Address { return b.bounce }

// Headers returns a copy of the accumulated header map.
func (b *Builder) Headers() map[string]string {
	h := make(map[string]string, len(b.headers))
	for k, v := range b.headers {
		h[k] = v
	}
	return h
}

// Subject returns the configured subject.
func (b *Builder) Subject() string { return b.subject }

// resolveContentType applies the build-time content type policy: an
// explicit type is used verbatim; otherwise text/plain, annotated with
// the configured charset when the body is textual.
func (b *Builder) resolveContentType() string {
	if b.contentType != "" {
		return b.contentType
	}
	if b.charset != "" {
		if _, ok := b.content.(string); ok || b.content == nil {
			return "text/plain; charset=" + b.charset
		}
	}
	return "text/plain"
}

// Build validates required state and produces the immutable Message.
// It succeeds at most once per builder: every later call fails with
// ErrAlreadyBuilt. A missing host name fails with ErrMissingHost.
func (b *Builder) Build() (*Message, error) {
	if b.state == stateBuilt {
		return nil, ErrAlreadyBuilt
	}
	if _, err := b.HostName(); err != nil {
		return nil, err
	}

	msg := &Message{
		from:        b.from,
		bounce:      b.bounce,
		to:          copyAddrs(b.to),
		cc:          copyAddrs(b.cc),
		bcc:         copyAddrs(b.bcc),
		replyTo:     copyAddrs(b.replyTo),
		headers:     b.Headers(),
		subject:     b.subject,
		content:     b.content,
		contentType: b.resolveContentType(),
		charset:     b.charset,
	}
	if b.sentDateSet {
		msg.sentDate = b.sentDate
	} else {
		msg.sentDate = time.Now()
	}

	b.message = msg
	b.state = stateBuilt
	return msg, nil
}

// Message returns the message cached by a successful Build, or nil when
// the builder has not been built.
func (b *Builder) Message() *Message {
	return b.message
}

// Session returns a transport session configured with the builder's host,
// port, socket timeout, and TLS settings. It fails with ErrMissingHost
// when no host name is set, independent of whether Build has been called.
func (b *Builder) Session() (*Session, error) {
	host, err := b.HostName()
	if err != nil {
		return nil, err
	}
	return &Session{
		host:      host,
		port:      b.smtpPort,
		timeout:   time.Duration(b.socketTimeoutMillis) * time.Millisecond,
		tlsConfig: b.tlsConfig,
	}, nil
}

func copyAddrs(src []*mail.Address) []*mail.Address {
	if src == nil {
		return nil
	}
	dst := make([]*mail.Address, len(src))
	copy(dst, src)
	return dst
}
