package mail

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/walidhousni/glavito-sub011/pkg/logx"
)

// Mailer sends one email and returns the transport message id when the
// provider assigns one.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, html, text string) (string, error)
}

type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridMailer(apiKey, fromEmail, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (m *SendGridMailer) SendEmail(ctx context.Context, to, subject, html, text string) (string, error) {
	from := sgmail.NewEmail(m.fromName, m.fromEmail)
	msg := sgmail.NewSingleEmail(from, subject, sgmail.NewEmail("", to), text, html)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

// LogMailer is the development transport: it logs instead of sending.
type LogMailer struct {
	FromEmail string
}

func (m LogMailer) SendEmail(ctx context.Context, to, subject, html, text string) (string, error) {
	id := "log-" + uuid.NewString()
	logx.L().Infow("email_logged",
		"message_id", id,
		"from", m.FromEmail,
		"to", to,
		"subject", subject,
		"html_bytes", len(html),
		"text_bytes", len(text),
	)
	return id, nil
}

// New picks SendGrid when an API key is configured, the log transport
// otherwise.
func New(apiKey, fromEmail, fromName string) Mailer {
	if apiKey == "" {
		logx.L().Warnw("mailer_console_mode", "hint", "set SENDGRID_API_KEY to send real email")
		return LogMailer{FromEmail: fromEmail}
	}
	return NewSendGridMailer(apiKey, fromEmail, fromName)
}
