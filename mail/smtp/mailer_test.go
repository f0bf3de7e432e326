package smtp

import (
	"strings"
	"testing"

	authcore "github.com/pagelinkhq/authcore"
)

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing host", Config{Port: 587, FromAddr: "noreply@example.com"}},
		{"missing port", Config{Host: "mail.example.com", FromAddr: "noreply@example.com"}},
		{"missing from", Config{Host: "mail.example.com", Port: 587}},
	}
	for _, tc := range cases {
		if _, err := New(tc.cfg); err == nil {
			t.Fatalf("%s: expected an error", tc.name)
		}
	}

	m, err := New(Config{Host: "mail.example.com", Port: 587, FromAddr: "noreply@example.com"})
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if m.addr != "mail.example.com:587" {
		t.Fatalf("addr = %q", m.addr)
	}
}

func TestAuthOnlyWithUsername(t *testing.T) {
	m, err := New(Config{Host: "mail.example.com", Port: 587, FromAddr: "noreply@example.com"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.auth != nil {
		t.Fatal("expected no auth without a username")
	}

	m, err = New(Config{
		Host: "mail.example.com", Port: 587, FromAddr: "noreply@example.com",
		Username: "mailer", Password: "secret",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.auth == nil {
		t.Fatal("expected plain auth with a username")
	}
}

func TestPurposeCopy(t *testing.T) {
	cases := []struct {
		purpose authcore.OTPPurpose
		subject string
	}{
		{authcore.PurposeSignup, "Confirm your email"},
		{authcore.PurposeLogin, "Your login code"},
		{authcore.PurposeGuestWiFi, "Your WiFi access code"},
		{authcore.OTPPurpose("unknown"), "Your verification code"},
	}

	for _, tc := range cases {
		subject, intro := purposeCopy(tc.purpose)
		if subject != tc.subject {
			t.Fatalf("purpose %q: subject %q, want %q", tc.purpose, subject, tc.subject)
		}
		if strings.TrimSpace(intro) == "" {
			t.Fatalf("purpose %q: empty intro", tc.purpose)
		}
	}
}
