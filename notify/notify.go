// Package notify mails the run log to an operator.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/jordan-wright/email"
)

// Settings are the SMTP parameters of a Mailer.
type Settings struct {
	Host      string
	Port      int
	Sender    string
	Password  string
	Recipient string
}

// Mailer sends plain-text run reports.
type Mailer struct {
	settings Settings
	logger   *slog.Logger
	send     func(m *email.Email, addr string, auth smtp.Auth) error
}

// NewMailer returns a Mailer for settings.
func NewMailer(settings Settings, logger *slog.Logger) (*Mailer, error) {
	if settings.Host == "" {
		return nil, errors.New("notify: smtp host is required")
	}
	if settings.Sender == "" || settings.Recipient == "" {
		return nil, errors.New("notify: sender and recipient are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{
		settings: settings,
		logger:   logger,
		send: func(m *email.Email, addr string, auth smtp.Auth) error {
			return m.Send(addr, auth)
		},
	}, nil
}

// Subject is the subject line of the report mailed for the run on date.
func Subject(date string) string {
	return "Log Content " + date
}

// Message builds the report email without sending it.
func (m *Mailer) Message(date, body string) *email.Email {
	msg := email.NewEmail()
	msg.From = m.settings.Sender
	msg.To = []string{m.settings.Recipient}
	msg.Subject = Subject(date)
	msg.Text = []byte(body)
	return msg
}

// SendReport mails body as the report for date. Servers that do not offer
// AUTH are retried without credentials.
func (m *Mailer) SendReport(ctx context.Context, date, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := m.Message(date, body)
	addr := net.JoinHostPort(m.settings.Host, strconv.Itoa(m.settings.Port))
	auth := smtp.PlainAuth("", m.settings.Sender, m.settings.Password, m.settings.Host)

	err := m.send(msg, addr, auth)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		m.logger.Warn("smtp server has no AUTH, sending unauthenticated", slog.String("addr", addr))
		err = m.send(msg, addr, nil)
	}
	if err != nil {
		return fmt.Errorf("send report to %s: %w", m.settings.Recipient, err)
	}

	m.logger.Info("report mailed",
		slog.String("recipient", m.settings.Recipient),
		slog.String("subject", msg.Subject),
	)
	return nil
}
