package email

import (
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/dkarpov/taskboard/internal/event"
	"github.com/dkarpov/taskboard/internal/notifications/config"
	"github.com/dkarpov/taskboard/pkg/logging"
)

type SenderService struct {
	smtpConfig *config.SMTP
	log        *slog.Logger
}

func NewSender(smtpCfg *config.SMTP, log *slog.Logger) *SenderService {
	return &SenderService{smtpConfig: smtpCfg, log: log}
}

// SendTaskCreated dispatches the creation notice. Sending the same
// event twice produces a duplicate email and nothing else, so
// redelivered messages are safe to process again.
func (s *SenderService) SendTaskCreated(msg event.Message) error {
	subject := "New task created"

	body, err := renderTaskCreatedTemplate(msg)
	if err != nil {
		s.log.Error("task created template render error", logging.Err(err))
		return ErrRenderTemplate
	}

	return s.sendEmail(msg.Email, subject, body)
}

func (s *SenderService) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpConfig.Email, s.smtpConfig.Password, s.smtpConfig.Host)

	msg := []byte(
		"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-version: 1.0;\r\n" +
			"Content-Type: text/html; charset=\"UTF-8\";\r\n" +
			"\r\n" + body,
	)

	addr := fmt.Sprintf("%s:%d", s.smtpConfig.Host, s.smtpConfig.Port)
	return smtp.SendMail(addr, auth, s.smtpConfig.Email, []string{to}, msg)
}
