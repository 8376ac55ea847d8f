package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"

	"github.com/jordan-wright/email"
)

func testMailer(t *testing.T) *Mailer {
	t.Helper()
	m, err := NewMailer(Settings{
		Host:      "smtp.example.test",
		Port:      587,
		Sender:    "bot@example.test",
		Password:  "secret",
		Recipient: "ops@example.test",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	return m
}

func TestNewMailerValidation(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{name: "no host", settings: Settings{Sender: "a@b.test", Recipient: "c@d.test"}},
		{name: "no sender", settings: Settings{Host: "smtp.test", Recipient: "c@d.test"}},
		{name: "no recipient", settings: Settings{Host: "smtp.test", Sender: "a@b.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMailer(tt.settings, nil); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestMessage(t *testing.T) {
	m := testMailer(t)
	msg := m.Message("2024-03-05", "Total Number Apps Successfully Scraped: 2\n")

	if msg.Subject != "Log Content 2024-03-05" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if msg.From != "bot@example.test" || len(msg.To) != 1 || msg.To[0] != "ops@example.test" {
		t.Fatalf("from=%q to=%v", msg.From, msg.To)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("render message: %v", err)
	}
	if !strings.Contains(string(raw), "Total Number Apps Successfully Scraped: 2") {
		t.Fatalf("body missing from rendered message:\n%s", raw)
	}
}

func TestSendReport(t *testing.T) {
	m := testMailer(t)

	var addrs []string
	var auths []smtp.Auth
	m.send = func(_ *email.Email, addr string, auth smtp.Auth) error {
		addrs = append(addrs, addr)
		auths = append(auths, auth)
		return nil
	}

	if err := m.SendReport(context.Background(), "2024-03-05", "log"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(addrs) != 1 || addrs[0] != "smtp.example.test:587" {
		t.Fatalf("addrs = %v", addrs)
	}
	if auths[0] == nil {
		t.Fatalf("first attempt must authenticate")
	}
}

func TestSendReportFallsBackWithoutAuth(t *testing.T) {
	m := testMailer(t)

	var auths []smtp.Auth
	m.send = func(_ *email.Email, _ string, auth smtp.Auth) error {
		auths = append(auths, auth)
		if auth != nil {
			return errors.New("smtp: server doesn't support AUTH")
		}
		return nil
	}

	if err := m.SendReport(context.Background(), "2024-03-05", "log"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(auths) != 2 || auths[1] != nil {
		t.Fatalf("expected an unauthenticated retry, got %d attempts", len(auths))
	}
}

func TestSendReportError(t *testing.T) {
	m := testMailer(t)
	m.send = func(*email.Email, string, smtp.Auth) error {
		return errors.New("535 authentication failed")
	}

	err := m.SendReport(context.Background(), "2024-03-05", "log")
	if err == nil || !strings.Contains(err.Error(), "535") {
		t.Fatalf("err = %v", err)
	}
}
