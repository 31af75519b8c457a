// Package mail sends transactional email — currently just the password
// reset message.
//
// Sender is an interface so the service layer never knows how mail leaves
// the building: production wires the SMTP implementation, development
// (no SMTP host configured) wires LogSender, and tests wire a recording
// fake. Delivery is fire-and-forget from the caller's point of view, but
// failures must still be visible server-side — callers are expected to
// log a returned error rather than swallow it.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// Sender delivers a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender delivers mail through an SMTP relay using gomail.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender creates a Sender that talks to the given SMTP relay.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send composes and delivers one message. gomail dials per call — fine at
// password-reset volumes; a pooled daemon would be overkill here.
func (s *SMTPSender) Send(_ context.Context, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("mail: sending to %s: %w", to, err)
	}
	return nil
}

// LogSender writes the message to the log instead of sending it. Used in
// development so the reset link can be copied straight from the server
// output.
type LogSender struct {
	logger *slog.Logger
}

var _ Sender = (*LogSender)(nil)

// NewLogSender creates a Sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, subject, htmlBody string) error {
	s.logger.Info("mail (not sent, no SMTP configured)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", htmlBody),
	)
	return nil
}
