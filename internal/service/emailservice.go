package service

import (
	"context"
	"fmt"
	"strings"

	"expensemate/internal/domain"
	"expensemate/internal/email"
)

type SMTPSettingsStore interface {
	GetSMTPSettings(ctx context.Context) (domain.SMTPSettings, bool, error)
	UpsertSMTPSettings(ctx context.Context, settings domain.SMTPSettings) error
}

type BroadcastRecipientsStore interface {
	ListUserEmails(ctx context.Context) ([]string, error)
}

// Sender is the SMTP dispatch function; tests replace it to capture the
// outbound message.
type Sender func(settings email.SMTPSettings, msg email.Message) error

type EmailService struct {
	Settings   SMTPSettingsStore
	Recipients BroadcastRecipientsStore
	Send       Sender
}

func (s *EmailService) sender() Sender {
	if s.Send != nil {
		return s.Send
	}
	return email.SendSMTP
}

func (s *EmailService) GetSMTPSettings(ctx context.Context) (domain.SMTPSettings, bool, error) {
	if s.Settings == nil {
		return domain.SMTPSettings{}, false, fmt.Errorf("smtp settings unavailable")
	}
	return s.Settings.GetSMTPSettings(ctx)
}

func (s *EmailService) SaveSMTPSettings(ctx context.Context, settings domain.SMTPSettings) error {
	if s.Settings == nil {
		return fmt.Errorf("smtp settings unavailable")
	}
	return s.Settings.UpsertSMTPSettings(ctx, settings)
}

func (s *EmailService) SendPasswordReset(ctx context.Context, fromEmail, toEmail, resetURL string) error {
	settings, err := s.requireSettings(ctx)
	if err != nil {
		return err
	}

	subject := "Reset your ExpenseMate password"
	body := strings.Join([]string{
		"You requested a password reset.",
		"",
		"Reset your password using this link:",
		resetURL,
		"",
		"If you did not request this, you can ignore this email.",
	}, "\n")

	if fromEmail == "" {
		fromEmail = settings.FromEmail
	}
	return s.sender()(smtpTransport(settings), email.Message{
		FromName:  settings.FromName,
		FromEmail: fromEmail,
		ToEmail:   toEmail,
		Subject:   subject,
		TextBody:  body,
	})
}

type BroadcastParams struct {
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []email.Attachment
}

// Broadcast mails every active user. Recipients ride in BCC so member
// addresses are never disclosed to each other; the To header carries the
// configured from address.
func (s *EmailService) Broadcast(ctx context.Context, p BroadcastParams) (int, error) {
	p.Subject = strings.TrimSpace(p.Subject)
	if p.Subject == "" {
		return 0, domain.NewValidationError(map[string]string{"subject": "required"})
	}
	if strings.TrimSpace(p.TextBody) == "" && strings.TrimSpace(p.HTMLBody) == "" {
		return 0, domain.NewValidationError(map[string]string{"body": "required"})
	}

	settings, err := s.requireSettings(ctx)
	if err != nil {
		return 0, err
	}

	recipients, err := s.Recipients.ListUserEmails(ctx)
	if err != nil {
		return 0, err
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	err = s.sender()(smtpTransport(settings), email.Message{
		FromName:    settings.FromName,
		FromEmail:   settings.FromEmail,
		BCC:         recipients,
		Subject:     p.Subject,
		TextBody:    p.TextBody,
		HTMLBody:    p.HTMLBody,
		Attachments: p.Attachments,
	})
	if err != nil {
		return 0, err
	}
	return len(recipients), nil
}

func (s *EmailService) SendTestEmail(ctx context.Context, settings domain.SMTPSettings, toEmail string) error {
	toEmail = strings.TrimSpace(strings.ToLower(toEmail))
	if toEmail == "" {
		return fmt.Errorf("test email required")
	}
	subject := "ExpenseMate SMTP test"
	body := strings.Join([]string{
		"This is a test email from ExpenseMate.",
		"",
		"If you received this, your SMTP settings are working.",
	}, "\n")

	return s.sender()(smtpTransport(settings), email.Message{
		FromName:  settings.FromName,
		FromEmail: settings.FromEmail,
		ToEmail:   toEmail,
		Subject:   subject,
		TextBody:  body,
	})
}

func (s *EmailService) requireSettings(ctx context.Context) (domain.SMTPSettings, error) {
	if s.Settings == nil {
		return domain.SMTPSettings{}, fmt.Errorf("smtp settings unavailable")
	}
	settings, ok, err := s.Settings.GetSMTPSettings(ctx)
	if err != nil {
		return domain.SMTPSettings{}, err
	}
	if !ok {
		return domain.SMTPSettings{}, fmt.Errorf("smtp settings not configured")
	}
	return settings, nil
}

func smtpTransport(settings domain.SMTPSettings) email.SMTPSettings {
	return email.SMTPSettings{
		Host:     settings.Host,
		Port:     settings.Port,
		Username: settings.Username,
		Password: settings.Password,
		TLSMode:  settings.TLSMode,
	}
}
