// Package sender отправляет письма из очереди уведомлений по SMTP.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linkedrite/linkedrite/internal/lib/sl"
	"github.com/linkedrite/linkedrite/internal/lib/smtp"
	"github.com/linkedrite/linkedrite/internal/models"
)

// Service читает сообщения очереди и рассылает письма.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// HandleEmailMessage обрабатывает одно сообщение очереди: выбирает
// шаблон письма и отправляет его получателю.
func (s *Service) HandleEmailMessage(body []byte) error {
	var message models.EmailMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject, bodyText, err := composeEmail(message)
	if err != nil {
		s.log.Error("failed to compose email", sl.Err(err),
			slog.String("template", message.Template))
		return err
	}

	return s.sendEmail([]string{message.Recipient}, subject, bodyText)
}

func composeEmail(message models.EmailMessage) (subject, body string, err error) {
	username := message.Context["username"]
	link := message.Context["link"]

	switch message.Template {
	case models.EmailTemplateVerify:
		subject = "Verify your LinkedRite account"
		body = fmt.Sprintf(`Hello, %s!

Thank you for signing up for LinkedRite.

Please confirm your email address by following the link below:
%s

The link is valid for 24 hours. If you did not create an account, just ignore this message.`,
			username, link)
	case models.EmailTemplateReset:
		subject = "Reset your LinkedRite password"
		body = fmt.Sprintf(`Hello, %s!

We received a request to reset your LinkedRite password.

To choose a new password, follow the link below:
%s

The link is valid for 1 hour. If you did not request a reset, just ignore this message.`,
			username, link)
	default:
		return "", "", fmt.Errorf("unknown email template: %s", message.Template)
	}
	return subject, body, nil
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
