// Package email delivers account-verification messages.
package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/avolkovs/authapi/internal/logging"
)

// Sender delivers a verification link to a recipient address.
type Sender interface {
	SendVerification(ctx context.Context, to, username, link string) error
}

// SMTPSender sends verification mail through a plain SMTP relay.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPSender configures a sender for the given relay. Auth is skipped
// when username is empty (local relays in development).
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
	}
}

func (s *SMTPSender) SendVerification(_ context.Context, to, username, link string) error {
	body := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: Verify your email address\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"<p>Hello %s,</p>"+
		"<p>Please confirm your email address by following this link:</p>"+
		"<p><a href=%q>%s</a></p>"+
		"<p>The link is valid for 24 hours.</p>\r\n",
		s.from, to, username, link, link)

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("error sending verification mail: %w", err)
	}
	return nil
}

// LogSender writes the verification link to the log instead of sending
// mail. Used when no SMTP relay is configured.
type LogSender struct {
	logger logging.Logger
}

// NewLogSender constructs a log-only sender.
func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendVerification(ctx context.Context, to, username, link string) error {
	s.logger.Info(ctx, "verification mail suppressed, no relay configured",
		"to", to, "username", username, "link", link)
	return nil
}
