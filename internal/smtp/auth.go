// Package smtp implements a minimal SMTP client with STARTTLS and AUTH support.
package smtp

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Credentials holds the username and password used for SMTP AUTH.
// If both fields are empty, authentication is disabled.
type Credentials struct {
	Username string
	Password string
}

// Enabled returns true if authentication credentials are configured.
func (c Credentials) Enabled() bool {
	return c.Username != "" && c.Password != ""
}

// PlainResponse encodes the credentials for the AUTH PLAIN mechanism.
// AUTH PLAIN format: base64(\0username\0password)
func (c Credentials) PlainResponse() string {
	raw := "\x00" + c.Username + "\x00" + c.Password
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// LoginResponse encodes a single AUTH LOGIN challenge response.
func (c Credentials) LoginResponse(value string) string {
	return base64.StdEncoding.EncodeToString([]byte(value))
}

// decodeChallenge decodes a base64 server challenge from a 334 reply.
func decodeChallenge(encoded string) (string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid base64 challenge: %w", err)
	}
	return string(decoded), nil
}
