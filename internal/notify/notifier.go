package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"github.com/jobtrail-io/jobtrail/internal/config"
)

// Email is one outbound message. Kind tags the message for logging and the
// mail template layer; UserID ties it back to the triggering account.
type Email struct {
	To       string
	Subject  string
	HTMLBody string
	Kind     string
	UserID   string
}

// Notifier delivers outbound email. Callers treat delivery as best-effort:
// failures are logged and never propagated into the primary flow.
type Notifier interface {
	Send(ctx context.Context, email Email) error
}

// LogNotifier logs messages instead of delivering them. Default in
// development and tests.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, email Email) error {
	_ = ctx
	log.Printf("[NOTIFY] kind=%s to=%s user=%s subject=%q", email.Kind, email.To, email.UserID, email.Subject)
	return nil
}

// SMTPNotifier delivers via a plain SMTP relay.
type SMTPNotifier struct {
	host string
	port int
	from string
}

func (n SMTPNotifier) Send(ctx context.Context, email Email) error {
	_ = ctx
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	msg := fmt.Sprintf("To: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n",
		email.To, email.Subject, email.HTMLBody)
	return smtp.SendMail(addr, nil, n.from, []string{email.To}, []byte(msg))
}

// NewNotifier selects an implementation from config.
func NewNotifier(cfg *config.Config) Notifier {
	switch cfg.NotifySender {
	case "smtp":
		return SMTPNotifier{host: cfg.SMTPHost, port: cfg.SMTPPort, from: cfg.MailFrom}
	default:
		return LogNotifier{}
	}
}
