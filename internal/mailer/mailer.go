// Package mailer sends transactional email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/wneessen/go-mail"

	"trackApply/internal/config"
)

const resetSubject = "Password Reset Request for TrackApply"

var resetText = texttemplate.Must(texttemplate.New("reset.txt").Parse(
	`You are receiving this because you (or someone else) have requested the reset of the password for your account.

Please click on the following link, or paste it into your browser to complete the process:

{{.Link}}

This link expires at {{.Expires}}.

If you did not request this, please ignore this email and your password will remain unchanged.
`))

var resetHTML = htmltemplate.Must(htmltemplate.New("reset.html").Parse(
	`<p>You are receiving this because you (or someone else) have requested the reset of the password for your account.</p>
<p>Please click on the following link, or paste it into your browser to complete the process:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>This link expires at {{.Expires}}.</p>
<p>If you did not request this, please ignore this email and your password will remain unchanged.</p>
`))

type resetView struct {
	Link    string
	Expires string
}

// Sender is satisfied by *mail.Client.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Mailer struct {
	sender Sender
	from   string
}

// New builds an SMTP client. Authentication is only enabled when a username
// is configured, which suits local catchers such as Mailpit.
func New(cfg config.MailConfig) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return NewWithSender(client, cfg.From), nil
}

func NewWithSender(sender Sender, from string) *Mailer {
	return &Mailer{sender: sender, from: from}
}

// SendPasswordReset mails the reset link as plain text with an HTML alternative.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, link string, expiresAt time.Time) error {
	msg, err := m.buildPasswordReset(to, link, expiresAt)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

func (m *Mailer) buildPasswordReset(to, link string, expiresAt time.Time) (*mail.Msg, error) {
	view := resetView{Link: link, Expires: expiresAt.UTC().Format(time.RFC1123)}

	var text, html bytes.Buffer
	if err := resetText.Execute(&text, view); err != nil {
		return nil, fmt.Errorf("render reset text: %w", err)
	}
	if err := resetHTML.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("render reset html: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	msg.Subject(resetSubject)
	msg.SetBodyString(mail.TypeTextPlain, text.String())
	msg.AddAlternativeString(mail.TypeTextHTML, html.String())
	return msg, nil
}
