// Package notify sends the owner an email when a new wish arrives. Sending
// is strictly best-effort: misconfiguration disables it silently and a
// delivery failure is logged, never propagated to the write path.
package notify

import (
	"context"
	"html"

	mail "github.com/wneessen/go-mail"

	"github.com/mooky-live/wishes-backend/internal/domain"
)

// SMTPConfig is the outbound mail configuration. Disabled short-circuits
// everything; an incomplete host/user/pass set behaves the same.
type SMTPConfig struct {
	Disabled bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// configured reports whether enough settings are present to send.
func (c SMTPConfig) configured() bool {
	return !c.Disabled && c.Host != "" && c.Username != "" && c.Password != ""
}

// Mailer delivers new-wish notifications over SMTP. A nil *Mailer is a
// valid no-op sender, so callers never need to branch on configuration.
type Mailer struct {
	client *mail.Client
	from   string
	to     string
}

// NewMailer builds a Mailer, or returns (nil, nil) when notifications are
// disabled or not fully configured.
func NewMailer(cfg SMTPConfig) (*Mailer, error) {
	if !cfg.configured() {
		return nil, nil
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, err
	}
	from := cfg.From
	if from == "" {
		from = "no-reply@example.com"
	}
	return &Mailer{client: client, from: from, to: cfg.To}, nil
}

// NotifyNewWish emails the configured recipient about w.
func (m *Mailer) NotifyNewWish(ctx context.Context, w *domain.Wish) error {
	if m == nil || m.to == "" {
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(m.to); err != nil {
		return err
	}
	msg.Subject("🎂 New Birthday Wish from " + w.Name)
	msg.SetBodyString(mail.TypeTextHTML,
		`<div style="font-family:system-ui,sans-serif">`+
			`<h2 style="margin:0 0 8px">New Birthday Wish</h2>`+
			`<p><b>From:</b> `+html.EscapeString(w.Name)+`</p>`+
			`<p style="white-space:pre-wrap"><b>Message:</b><br>`+html.EscapeString(w.Message)+`</p>`+
			`</div>`)

	return m.client.DialAndSendWithContext(ctx, msg)
}
