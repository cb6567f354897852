package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/permanent"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSender delivers messages to recipient addresses over SMTP.
// Params: SMTP host/port, optional credentials, and from address.
// Returns: email channel sender.
type EmailSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	sendMail sendMailFunc
}

// NewEmailSender creates SMTP sender from config.
// Params: email notifier config.
// Returns: initialized sender or config error.
func NewEmailSender(cfg config.EmailNotifier) (*EmailSender, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	from := strings.TrimSpace(cfg.From)
	if host == "" {
		return nil, errors.New("smtp_host is required for email sender")
	}
	if from == "" {
		return nil, errors.New("from is required for email sender")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	return &EmailSender{
		host:     host,
		port:     port,
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		from:     from,
		sendMail: smtp.SendMail,
	}, nil
}

// Channel returns sender channel name.
func (s *EmailSender) Channel() string {
	return ChannelEmail
}

// Send delivers message to all recipients in one SMTP transaction.
// Params: context (checked before dialing) and rendered message.
// Returns: SMTP error; missing recipients is permanent.
func (s *EmailSender) Send(ctx context.Context, message domain.OutboundMessage) (SendResult, error) {
	if len(message.To) == 0 {
		return SendResult{}, permanent.Mark(errors.New("email message has no recipients"))
	}
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	if err := s.sendMail(addr, auth, s.from, message.To, buildMIMEMessage(s.from, message)); err != nil {
		return SendResult{}, fmt.Errorf("smtp send: %w", err)
	}
	return SendResult{ExternalRef: message.ID}, nil
}

// buildMIMEMessage renders plain-text RFC 5322 message.
func buildMIMEMessage(from string, message domain.OutboundMessage) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(message.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(message.Subject))
	if message.ID != "" {
		fmt.Fprintf(&b, "Message-ID: <%s@roadwatch>\r\n", message.ID)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(message.Body, "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}
