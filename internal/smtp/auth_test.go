package smtp

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestCredentials_Enabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{name: "both set", username: "user", password: "pass", want: true},
		{name: "both empty", username: "", password: "", want: false},
		{name: "username only", username: "user", password: "", want: false},
		{name: "password only", username: "", password: "pass", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			creds := Credentials{Username: tt.username, Password: tt.password}
			if got := creds.Enabled(); got != tt.want {
				t.Errorf("Enabled(): got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredentials_PlainResponse(t *testing.T) {
	t.Parallel()

	creds := Credentials{Username: "testuser", Password: "testpass"}

	decoded, err := base64.StdEncoding.DecodeString(creds.PlainResponse())
	if err != nil {
		t.Fatalf("PlainResponse is not valid base64: %v", err)
	}

	parts := strings.Split(string(decoded), "\x00")
	if len(parts) != 3 {
		t.Fatalf("decoded parts: got %d, want 3", len(parts))
	}
	if parts[0] != "" {
		t.Errorf("authorization identity: got %q, want empty", parts[0])
	}
	if parts[1] != "testuser" {
		t.Errorf("username: got %q, want %q", parts[1], "testuser")
	}
	if parts[2] != "testpass" {
		t.Errorf("password: got %q, want %q", parts[2], "testpass")
	}
}

func TestCredentials_LoginResponse(t *testing.T) {
	t.Parallel()

	creds := Credentials{Username: "user", Password: "pass"}

	got := creds.LoginResponse("user")
	want := base64.StdEncoding.EncodeToString([]byte("user"))
	if got != want {
		t.Errorf("LoginResponse: got %q, want %q", got, want)
	}
}

func TestDecodeChallenge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "username challenge", input: "VXNlcm5hbWU6", want: "Username:"},
		{name: "password challenge", input: "UGFzc3dvcmQ6", want: "Password:"},
		{name: "empty challenge", input: "", want: ""},
		{name: "whitespace only", input: "   ", want: ""},
		{name: "invalid base64", input: "!!!not-base64!!!", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := decodeChallenge(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("decodeChallenge(%q): got %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
