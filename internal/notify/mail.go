package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	apperrors "github.com/statuswatch/statuswatch/internal/errors"
	"github.com/statuswatch/statuswatch/internal/resilience"
)

// timeLayout matches the timestamp format the alert recipients are used to.
const timeLayout = "2006-01-02 15:04:05 MST"

// Mailer sends alerts over SMTP with STARTTLS, dialing per send. The
// account password doubles as the login secret, Gmail-style.
type Mailer struct {
	host     string
	port     int
	from     string
	password string
	to       string
}

// NewMailer creates an SMTP sink.
func NewMailer(host string, port int, from, password, to string) *Mailer {
	return &Mailer{host: host, port: port, from: from, password: password, to: to}
}

// Notify implements Notifier.
func (m *Mailer) Notify(ctx context.Context, ev Event) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return apperrors.Wrap(err, apperrors.CodeConfigInvalid, "sender address")
	}
	if err := msg.To(m.to); err != nil {
		return apperrors.Wrap(err, apperrors.CodeConfigInvalid, "recipient address")
	}
	msg.Subject(Subject(ev))
	msg.SetBodyString(mail.TypeTextPlain, Body(ev))

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.from),
		mail.WithPassword(m.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeTransportFailed, "smtp client")
	}

	err = resilience.Retry(ctx, resilience.MailRetryConfig(), func() error {
		return client.DialAndSendWithContext(ctx, msg)
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeTransportFailed, "send mail").
			WithMetadata("host", m.host)
	}
	return nil
}

// Subject renders the alert subject line.
func Subject(ev Event) string {
	return fmt.Sprintf("Status Alert: %s is now %s", ev.Person, strings.ToUpper(string(ev.Status)))
}

// Body renders the plain-text alert body.
func Body(ev Event) string {
	return fmt.Sprintf(`Chat Status Alert
=================

Person: %s
Status: %s
Time: %s

This is an automated notification.
Next email allowed after: %d minutes`,
		ev.Person,
		strings.ToUpper(string(ev.Status)),
		ev.When.Format(timeLayout),
		ev.RateLimitMin,
	)
}
