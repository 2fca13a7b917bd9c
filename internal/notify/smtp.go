package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Stavickiy/internet-store/internal/config"
)

// Sender delivers a composed message. The core never inspects delivery
// results beyond the returned error.
type Sender interface {
	Send(msg Message) error
}

// SMTPSender is a plain-text SMTP client. No mail framework is involved;
// async behavior and retries live in the outbox/Kafka pipeline.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(msg Message) error {
	addr := s.cfg.Host + ":" + s.cfg.Port

	var auth smtp.Auth
	if s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.Host)
	}

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.cfg.From, strings.Join(msg.Recipients, ", "), msg.Subject, msg.Body)

	if err := smtp.SendMail(addr, auth, s.cfg.From, msg.Recipients, []byte(body)); err != nil {
		return fmt.Errorf("failed to send mail %s: %w", msg.ID, err)
	}
	return nil
}
