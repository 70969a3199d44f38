// Package mail provides an SMTP-backed delivery implementation of the
// engine's Mailer interface. The engine's dispatcher owns queueing and
// retries; this package only formats and sends a single message.
package mail

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
	"gopkg.in/gomail.v2"
)

// Config holds the SMTP connection settings.
type Config struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

// ConfigFromEnv reads the SMTP settings from the environment.
func ConfigFromEnv() (Config, error) {
	return env.ParseAs[Config]()
}

// Validate checks that every required SMTP setting is present.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP host")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP port")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP from address")
	}
	return nil
}

// SMTPMailer sends reset mails over SMTP.
type SMTPMailer struct {
	config Config
	dialer *gomail.Dialer
}

// NewSMTPMailer builds an SMTPMailer from the configuration.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SMTPMailer{
		config: cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

// SendResetLink delivers the password reset mail for the given link.
// gomail has no context support; the dialer's own timeouts bound the call.
func (m *SMTPMailer) SendResetLink(_ context.Context, recipient, link string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", "Reset your password")
	msg.SetBody("text/plain", fmt.Sprintf(
		"A password reset was requested for this address.\n\n"+
			"Open the link below to choose a new password. The link is valid for "+
			"15 minutes and can be used once.\n\n%s\n\n"+
			"If you did not request this, you can ignore this mail.", link))
	msg.AddAlternative("text/html", fmt.Sprintf(
		`<p>A password reset was requested for this address.</p>`+
			`<p><a href="%s">Choose a new password</a></p>`+
			`<p>The link is valid for 15 minutes and can be used once. `+
			`If you did not request this, you can ignore this mail.</p>`, link))

	return m.dialer.DialAndSend(msg)
}
