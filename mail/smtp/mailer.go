// Package smtp delivers one-time codes over SMTP using mailyak. One mailer
// instance serves all flows; subject and body vary per purpose.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"

	authcore "github.com/pagelinkhq/authcore"
)

// Config holds the SMTP connection and sender identity.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	FromAddr string
	FromName string
	// UseTLS dials an implicit-TLS connection (typically port 465) instead
	// of plain SMTP with STARTTLS upgrade.
	UseTLS bool
}

// Mailer implements authcore.MailSender over SMTP.
type Mailer struct {
	config Config
	addr   string
	auth   smtp.Auth
}

func New(cfg Config) (*Mailer, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, errors.New("smtp: host and port required")
	}
	if cfg.FromAddr == "" {
		return nil, errors.New("smtp: from address required")
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &Mailer{
		config: cfg,
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth:   auth,
	}, nil
}

// SendOTP emails the code. The send runs on its own goroutine so a hung SMTP
// server cannot outlive the caller's context; an abandoned send finishes in
// the background and its result is discarded.
func (m *Mailer) SendOTP(ctx context.Context, email, code string, purpose authcore.OTPPurpose) error {
	mail, err := m.newMessage()
	if err != nil {
		return err
	}

	mail.To(email)
	subject, intro := purposeCopy(purpose)
	mail.Subject(subject)
	mail.Plain().Set(fmt.Sprintf(
		"%s\n\nYour verification code is: %s\n\nIf you did not request this code, you can ignore this email.\n",
		intro, code,
	))
	fmt.Fprintf(mail.HTML(),
		"<p>%s</p><p>Your verification code is:</p><p style=\"font-size:24px;letter-spacing:4px\"><strong>%s</strong></p><p>If you did not request this code, you can ignore this email.</p>",
		intro, code,
	)

	done := make(chan error, 1)
	go func() {
		done <- mail.Send()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mailer) newMessage() (*mailyak.MailYak, error) {
	var mail *mailyak.MailYak
	if m.config.UseTLS {
		var err error
		mail, err = mailyak.NewWithTLS(m.addr, m.auth, &tls.Config{ServerName: m.config.Host})
		if err != nil {
			return nil, fmt.Errorf("smtp tls: %w", err)
		}
	} else {
		mail = mailyak.New(m.addr, m.auth)
	}

	mail.From(m.config.FromAddr)
	if m.config.FromName != "" {
		mail.FromName(m.config.FromName)
	}
	return mail, nil
}

func purposeCopy(purpose authcore.OTPPurpose) (subject, intro string) {
	switch purpose {
	case authcore.PurposeSignup:
		return "Confirm your email", "Welcome! Use this code to finish creating your account."
	case authcore.PurposeLogin:
		return "Your login code", "Use this code to sign in to your account."
	case authcore.PurposeGuestWiFi:
		return "Your WiFi access code", "Use this code to connect to the guest WiFi."
	default:
		return "Your verification code", "Use this code to continue."
	}
}
