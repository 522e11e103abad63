package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/mundocerca/backend/internal/config"
	"github.com/mundocerca/backend/internal/constants"
	"github.com/mundocerca/backend/internal/utils"
)

const resetEmailSubject = "Your MundoCerca password reset code"

// EmailSender delivers a reset code to one address.
type EmailSender interface {
	SendPasswordResetCode(ctx context.Context, toEmail, code string, ttl time.Duration) error
}

// NewEmailSender returns the sender selected by email.provider
func NewEmailSender(cfg *config.EmailSettings) (EmailSender, error) {
	switch cfg.Provider {
	case constants.EmailProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY environment variable not set")
		}
		return NewSendGridSender(cfg), nil
	case constants.EmailProviderSMTP:
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST environment variable not set")
		}
		return NewSMTPSender(cfg), nil
	case constants.EmailProviderLog, "":
		return LogSender{}, nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
}

func resetEmailBodies(code string, ttl time.Duration) (plain, html string) {
	minutes := int(ttl.Minutes())
	plain = fmt.Sprintf("Your MundoCerca verification code is %s. It expires in %d minutes. "+
		"If you did not ask to reset your password you can ignore this email.", code, minutes)
	html = fmt.Sprintf("<p>Your MundoCerca verification code is</p><p><strong style=\"font-size:24px\">%s</strong></p>"+
		"<p>It expires in %d minutes. If you did not ask to reset your password you can ignore this email.</p>", code, minutes)
	return plain, html
}

// SendGridSender delivers through the SendGrid v3 mail API.
type SendGridSender struct {
	request   rest.Request
	fromName  string
	fromEmail string
}

// NewSendGridSender creates a sender for the configured API key and host
func NewSendGridSender(cfg *config.EmailSettings) *SendGridSender {
	host := cfg.SendGridHost
	if host == "" {
		host = constants.SendGridHost
	}

	request := sendgrid.GetRequest(cfg.SendGridAPIKey, constants.SendGridMailSendPath, host)
	request.Method = "POST"

	return &SendGridSender{
		request:   request,
		fromName:  cfg.FromName,
		fromEmail: cfg.FromAddress,
	}
}

// SendPasswordResetCode sends the code as a single transactional email.
func (s *SendGridSender) SendPasswordResetCode(ctx context.Context, toEmail, code string, ttl time.Duration) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", toEmail)
	plainTextContent, htmlContent := resetEmailBodies(code, ttl)
	message := mail.NewSingleEmail(from, resetEmailSubject, to, plainTextContent, htmlContent)

	// SendWithContext writes the body into the client, so each send gets its own copy
	client := &sendgrid.Client{Request: s.request}
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected message with status %d", response.StatusCode)
	}

	log.Debug().Int("status_code", response.StatusCode).Msg("SendGrid accepted password reset email")
	return nil
}

// SMTPSender delivers through an SMTP relay with STARTTLS when the server offers it.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a sender for the configured relay
func NewSMTPSender(cfg *config.EmailSettings) *SMTPSender {
	port := cfg.SMTPPort
	if port == 0 {
		port = constants.DefaultSMTPPort
	}
	return &SMTPSender{
		host:      cfg.SMTPHost,
		port:      port,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		fromName:  cfg.FromName,
		fromEmail: cfg.FromAddress,
	}
}

// SendPasswordResetCode dials the relay and submits one message.
func (s *SMTPSender) SendPasswordResetCode(ctx context.Context, toEmail, code string, ttl time.Duration) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial smtp relay: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start smtp session: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("failed to start tls: %w", err)
		}
	}

	if s.username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return fmt.Errorf("smtp authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.fromEmail); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(toEmail); err != nil {
		return fmt.Errorf("smtp RCPT TO failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(s.buildMessage(toEmail, code, ttl)); err != nil {
		w.Close()
		return fmt.Errorf("failed to write smtp message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp relay rejected message: %w", err)
	}

	return client.Quit()
}

func (s *SMTPSender) buildMessage(toEmail, code string, ttl time.Duration) []byte {
	plain, _ := resetEmailBodies(code, ttl)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.fromName, s.fromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", toEmail)
	fmt.Fprintf(&b, "Subject: %s\r\n", resetEmailSubject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(plain)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogSender records that a message would have been sent. The code itself is never logged.
type LogSender struct{}

// SendPasswordResetCode logs the masked recipient
func (LogSender) SendPasswordResetCode(_ context.Context, toEmail, _ string, ttl time.Duration) error {
	log.Info().
		Str("email", utils.MaskEmail(toEmail)).
		Dur("code_ttl", ttl).
		Msg("Email provider is 'log'; password reset code not delivered")
	return nil
}

// EmailService dispatches reset codes on tracked background workers.
// A delivery failure is logged and never reaches the requesting client.
type EmailService struct {
	sender  EmailSender
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewEmailService creates a new EmailService
func NewEmailService(sender EmailSender, timeout time.Duration) *EmailService {
	if timeout <= 0 {
		timeout = constants.DefaultEmailSendTimeout
	}
	return &EmailService{sender: sender, timeout: timeout}
}

// DispatchResetCode sends the code in the background and returns immediately.
func (s *EmailService) DispatchResetCode(toEmail, code string, ttl time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("Email worker panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.sender.SendPasswordResetCode(ctx, toEmail, code, ttl); err != nil {
			log.Error().
				Err(err).
				Str("event", constants.LogEventResetEmailFailed).
				Str("email", utils.MaskEmail(toEmail)).
				Msg("Failed to send password reset email")
			return
		}

		log.Info().
			Str("event", constants.LogEventResetEmailSent).
			Str("email", utils.MaskEmail(toEmail)).
			Msg("Password reset email sent")
	}()
}

// Wait blocks until every dispatched email has finished
func (s *EmailService) Wait() {
	s.wg.Wait()
}
