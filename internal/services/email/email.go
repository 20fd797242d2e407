// Copyright 2026 Vetpraxis Contributors
// Licensed under the EUPL-1.2

// Package email sends account lifecycle notifications over SMTP.
package email

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/vetpraxis/vetpraxis/internal/config"
	"github.com/wneessen/go-mail"
)

// Service sends confirmation and password-reset emails. All transport
// settings come from the injected SMTP config; nothing is read from the
// process environment at send time.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig, baseURL string) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// SendConfirmation sends the account confirmation email with the given
// one-time token.
func (s *Service) SendConfirmation(_ context.Context, toEmail, name, token string) error {
	confirmURL := fmt.Sprintf("%s/confirm-account/%s", s.baseURL, token)

	subject := "Confirm your Vetpraxis account"
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"your Vetpraxis account is almost ready. Confirm it by opening the link below:\n\n"+
			"%s\n\n"+
			"If you did not create this account, you can ignore this message.\n",
		name, confirmURL)

	return s.send(toEmail, subject, body)
}

// SendPasswordReset sends the password-reset email with the given one-time
// token.
func (s *Service) SendPasswordReset(_ context.Context, toEmail, name, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password/%s", s.baseURL, token)

	subject := "Reset your Vetpraxis password"
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"you requested a password reset for your Vetpraxis account. Follow the link below to choose a new password:\n\n"+
			"%s\n\n"+
			"If you did not request this, you can ignore this message.\n",
		name, resetURL)

	return s.send(toEmail, subject, body)
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS for port 465, STARTTLS otherwise
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
