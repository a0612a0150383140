package smtp

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

// defaultCommandTimeout bounds each command/reply exchange when the
// caller does not supply a timeout.
const defaultCommandTimeout = 60 * time.Second

// ReplyError is a non-success SMTP reply from the server.
type ReplyError struct {
	Code    int
	Message string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("smtp: server replied %d %s", e.Code, e.Message)
}

// Client speaks the SMTP protocol over an established connection and
// tracks the server capabilities advertised in the EHLO reply.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	timeout time.Duration

	// localName is the hostname sent in EHLO/HELO.
	localName string

	// ext maps advertised extension keywords (upper-case) to their parameters.
	ext map[string]string

	tlsActive  bool
	helloDone  bool
	serverName string
}

// NewClient wraps an established connection and reads the server greeting.
// serverName is used for TLS verification during STARTTLS.
func NewClient(conn net.Conn, serverName string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}

	c := &Client{
		conn:       conn,
		reader:     bufio.NewReader(conn),
		writer:     bufio.NewWriter(conn),
		timeout:    timeout,
		localName:  "localhost",
		serverName: serverName,
	}

	if _, _, err := c.readReply(220); err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp: reading greeting: %w", err)
	}
	return c, nil
}

// SetLocalName overrides the hostname announced in EHLO/HELO.
func (c *Client) SetLocalName(name string) {
	if name != "" {
		c.localName = name
	}
}

// Hello sends EHLO and records the advertised extensions, falling back
// to HELO for servers that reject EHLO.
func (c *Client) Hello() error {
	if c.helloDone {
		return nil
	}

	code, lines, err := c.cmd("EHLO %s", c.localName)
	if err == nil && code == 250 {
		c.ext = parseExtensions(lines)
		c.helloDone = true
		return nil
	}

	var reply *ReplyError
	if err != nil {
		var ok bool
		reply, ok = err.(*ReplyError)
		if !ok {
			return err
		}
	}

	slog.Debug("EHLO rejected, falling back to HELO",
		"code", reply.Code,
	)

	if _, _, err := c.cmd("HELO %s", c.localName); err != nil {
		return err
	}
	c.ext = nil
	c.helloDone = true
	return nil
}

// Extension reports whether the server advertised the named extension
// and returns its parameter string.
func (c *Client) Extension(name string) (bool, string) {
	if c.ext == nil {
		return false, ""
	}
	param, ok := c.ext[strings.ToUpper(name)]
	return ok, param
}

// StartTLS upgrades the connection to TLS and re-issues EHLO, since
// extension advertisements may change after the handshake.
func (c *Client) StartTLS(cfg *tls.Config) error {
	if err := c.Hello(); err != nil {
		return err
	}
	if c.tlsActive {
		return fmt.Errorf("smtp: TLS already active")
	}
	if ok, _ := c.Extension("STARTTLS"); !ok {
		return fmt.Errorf("smtp: server does not support STARTTLS")
	}

	if _, _, err := c.cmd("STARTTLS"); err != nil {
		return err
	}

	if cfg == nil {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" && c.serverName != "" {
		cfg = cfg.Clone()
		cfg.ServerName = c.serverName
	}

	tlsConn := tls.Client(c.conn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return fmt.Errorf("smtp: TLS handshake failed: %w", err)
	}

	c.conn = tlsConn
	c.reader = bufio.NewReader(tlsConn)
	c.writer = bufio.NewWriter(tlsConn)
	c.tlsActive = true
	c.helloDone = false
	c.ext = nil

	return c.Hello()
}

// Auth authenticates using AUTH PLAIN when advertised, falling back to
// AUTH LOGIN otherwise.
func (c *Client) Auth(creds Credentials) error {
	if err := c.Hello(); err != nil {
		return err
	}
	if !creds.Enabled() {
		return fmt.Errorf("smtp: credentials not configured")
	}

	_, mechanisms := c.Extension("AUTH")
	if strings.Contains(strings.ToUpper(mechanisms), "PLAIN") || mechanisms == "" {
		return c.authPlain(creds)
	}
	return c.authLogin(creds)
}

// authPlain sends the credentials inline: AUTH PLAIN <base64>.
func (c *Client) authPlain(creds Credentials) error {
	_, _, err := c.cmdExpect(235, "AUTH PLAIN %s", creds.PlainResponse())
	if err != nil {
		return fmt.Errorf("smtp: AUTH PLAIN failed: %w", err)
	}
	return nil
}

// authLogin runs the AUTH LOGIN challenge-response flow: two 334
// challenges followed by a 235 success reply.
func (c *Client) authLogin(creds Credentials) error {
	_, lines, err := c.cmdExpect(334, "AUTH LOGIN")
	if err != nil {
		return fmt.Errorf("smtp: AUTH LOGIN failed: %w", err)
	}

	first, err := c.loginChallengeResponse(creds, firstLine(lines))
	if err != nil {
		return err
	}
	_, lines, err = c.cmdExpect(334, "%s", first)
	if err != nil {
		return fmt.Errorf("smtp: AUTH LOGIN failed: %w", err)
	}

	second, err := c.loginChallengeResponse(creds, firstLine(lines))
	if err != nil {
		return err
	}
	if _, _, err := c.cmdExpect(235, "%s", second); err != nil {
		return fmt.Errorf("smtp: AUTH LOGIN failed: %w", err)
	}
	return nil
}

// loginChallengeResponse picks the username or password response for a
// decoded AUTH LOGIN challenge. Servers may send the challenges in
// either order.
func (c *Client) loginChallengeResponse(creds Credentials, encoded string) (string, error) {
	challenge, err := decodeChallenge(encoded)
	if err != nil {
		return "", fmt.Errorf("smtp: AUTH LOGIN: %w", err)
	}
	if strings.HasPrefix(strings.ToLower(challenge), "password") {
		return creds.LoginResponse(creds.Password), nil
	}
	return creds.LoginResponse(creds.Username), nil
}

// Mail starts a mail transaction with the given envelope sender.
func (c *Client) Mail(from string) error {
	if err := c.Hello(); err != nil {
		return err
	}
	if _, _, err := c.cmd("MAIL FROM:<%s>", from); err != nil {
		return fmt.Errorf("smtp: MAIL FROM rejected: %w", err)
	}
	return nil
}

// Rcpt adds an envelope recipient to the current transaction.
func (c *Client) Rcpt(to string) error {
	if _, _, err := c.cmd("RCPT TO:<%s>", to); err != nil {
		return fmt.Errorf("smtp: RCPT TO rejected for %s: %w", to, err)
	}
	return nil
}

// Data sends the message body, applying dot-stuffing and terminating
// with <CRLF>.<CRLF>.
func (c *Client) Data(r io.Reader) error {
	if _, _, err := c.cmdExpect(354, "DATA"); err != nil {
		return fmt.Errorf("smtp: DATA rejected: %w", err)
	}

	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}

	if err := writeDotStuffed(c.writer, r); err != nil {
		return fmt.Errorf("smtp: writing message data: %w", err)
	}
	if _, err := c.writer.WriteString(".\r\n"); err != nil {
		return fmt.Errorf("smtp: writing data terminator: %w", err)
	}
	if err := c.writer.Flush(); err != nil {
		return err
	}

	if _, _, err := c.readReply(250); err != nil {
		return fmt.Errorf("smtp: message rejected: %w", err)
	}
	return nil
}

// Reset aborts the current mail transaction.
func (c *Client) Reset() error {
	_, _, err := c.cmd("RSET")
	return err
}

// Quit sends QUIT and closes the connection.
func (c *Client) Quit() error {
	_, _, err := c.cmdExpect(221, "QUIT")
	closeErr := c.conn.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// Close closes the connection without the QUIT exchange.
func (c *Client) Close() error {
	return c.conn.Close()
}

// cmd sends a command and expects a 250 reply.
func (c *Client) cmd(format string, args ...interface{}) (int, []string, error) {
	return c.cmdExpect(250, format, args...)
}

// cmdExpect sends a command and reads the reply, returning a ReplyError
// when the code does not match expectCode.
func (c *Client) cmdExpect(expectCode int, format string, args ...interface{}) (int, []string, error) {
	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, nil, err
	}

	line := fmt.Sprintf(format, args...)
	if _, err := c.writer.WriteString(line + "\r\n"); err != nil {
		return 0, nil, fmt.Errorf("smtp: writing command: %w", err)
	}
	if err := c.writer.Flush(); err != nil {
		return 0, nil, fmt.Errorf("smtp: flushing command: %w", err)
	}

	return c.readReply(expectCode)
}

// readReply reads a single-line or multi-line ("NNN-") reply.
func (c *Client) readReply(expectCode int) (int, []string, error) {
	var (
		code  int
		lines []string
	)

	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return 0, nil, fmt.Errorf("smtp: reading reply: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 {
			return 0, nil, fmt.Errorf("smtp: short reply line %q", line)
		}

		code, err = strconv.Atoi(line[:3])
		if err != nil {
			return 0, nil, fmt.Errorf("smtp: malformed reply line %q", line)
		}

		rest := ""
		continued := false
		if len(line) > 3 {
			continued = line[3] == '-'
			rest = strings.TrimSpace(line[4:])
		}
		lines = append(lines, rest)

		if !continued {
			break
		}
	}

	if code != expectCode {
		return code, lines, &ReplyError{Code: code, Message: firstLine(lines)}
	}
	return code, lines, nil
}

// parseExtensions builds the extension map from EHLO reply lines.
// The first line is the server greeting and is skipped.
func parseExtensions(lines []string) map[string]string {
	ext := make(map[string]string)
	for i, line := range lines {
		if i == 0 || line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		param := ""
		if len(parts) > 1 {
			param = parts[1]
		}
		ext[strings.ToUpper(parts[0])] = param
	}
	return ext
}

// firstLine returns the first reply line, or empty.
func firstLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

// writeDotStuffed copies r to w line by line, normalizing line endings
// to CRLF and doubling leading dots per RFC 5321. Every line, including
// a final line without a newline, is terminated with CRLF so the data
// terminator can follow directly.
func writeDotStuffed(w *bufio.Writer, r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			trimmed := strings.TrimRight(line, "\r\n")
			if strings.HasPrefix(trimmed, ".") {
				trimmed = "." + trimmed
			}
			if _, werr := w.WriteString(trimmed + "\r\n"); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
