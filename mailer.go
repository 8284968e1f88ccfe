package auth

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// MailerConfig holds SMTP settings for the default Mailer.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SiteURL prefixes the links embedded in lifecycle emails.
	SiteURL string
}

// SMTPMailer sends lifecycle emails over SMTP. Subjects and bodies go
// through the Translator so hosts control the wording.
type SMTPMailer struct {
	config     MailerConfig
	dialer     *gomail.Dialer
	translator Translator
	logger     Logger
}

// NewSMTPMailer creates a Mailer backed by an SMTP dialer.
func NewSMTPMailer(cfg MailerConfig, translator Translator) *SMTPMailer {
	return &SMTPMailer{
		config:     cfg,
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		translator: translator,
		logger:     defLogger{},
	}
}

func (m *SMTPMailer) WithLogger(logger Logger) *SMTPMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// SendVerification emails the verification link to a new account.
func (m *SMTPMailer) SendVerification(ctx context.Context, user *User) error {
	link := fmt.Sprintf("%s/verify/%s", m.config.SiteURL, user.VerificationToken)
	return m.send(ctx, user.Email,
		m.translator.T(DefaultLanguage, "mail.verification.subject"),
		m.translator.T(DefaultLanguage, "mail.verification.body", link),
	)
}

// SendResetToken emails the password reset link.
func (m *SMTPMailer) SendResetToken(ctx context.Context, user *User) error {
	link := fmt.Sprintf("%s/reset-password/%s", m.config.SiteURL, user.ResetPasswordToken)
	return m.send(ctx, user.Email,
		m.translator.T(DefaultLanguage, "mail.reset.subject"),
		m.translator.T(DefaultLanguage, "mail.reset.body", link),
	)
}

// SendChangeEmail emails the confirmation link to the pending address,
// not the canonical one.
func (m *SMTPMailer) SendChangeEmail(ctx context.Context, user *User) error {
	link := fmt.Sprintf("%s/change-email/%s", m.config.SiteURL, user.ChangeEmailToken)
	return m.send(ctx, user.ChangeEmailAddress,
		m.translator.T(DefaultLanguage, "mail.change_email.subject"),
		m.translator.T(DefaultLanguage, "mail.change_email.body", link),
	)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryOperation, "context cancelled before mail send")
	default:
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to send email")
	}
	return nil
}

var _ Mailer = (*SMTPMailer)(nil)

// SendMailDetached runs a mail send off the request path and logs the
// failure instead of returning it. The discarded error is the contract:
// reset requests must never fail because a third party mail hop did.
func SendMailDetached(logger Logger, send func() error) {
	if logger == nil {
		logger = defLogger{}
	}
	go func() {
		if err := send(); err != nil {
			logger.Error("detached mail send error: %v", err)
		}
	}()
}
