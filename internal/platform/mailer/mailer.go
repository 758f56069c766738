package mailer

import (
	"context"
	"fmt"
	"html"

	"github.com/wneessen/go-mail"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
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
		return nil, fmt.Errorf("mailer: new client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mm := mail.NewMsg()
	if err := mm.From(m.from); err != nil {
		return fmt.Errorf("mailer: from: %w", err)
	}
	if err := mm.To(msg.To); err != nil {
		return fmt.Errorf("mailer: to: %w", err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		mm.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	if err := m.client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

// ResetPasswordMessage builds the email carrying the password reset link.
func ResetPasswordMessage(to, resetURL string) Message {
	escaped := html.EscapeString(resetURL)
	return Message{
		To:      to,
		Subject: "Your password reset token (valid for only 10 minutes!)",
		HTML: "<div><h1>Click the link below to reset your password.</h1>" +
			"<a href='" + escaped + "'>Reset your password.</a></div>",
		Text: "Click the link below to reset your password.\n\n" + resetURL + "\n",
	}
}
