package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

type SMTPOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender delivers plain-text email over SMTP. A fresh client per send
// keeps it safe for concurrent use from the worker and the inline flush.
type SMTPSender struct {
	opts SMTPOptions
}

func NewSMTPSender(opts SMTPOptions) *SMTPSender {
	return &SMTPSender{opts: opts}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.opts.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	clientOpts := []mail.Option{
		mail.WithPort(s.opts.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.opts.User != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.opts.User),
			mail.WithPassword(s.opts.Password),
		)
	}

	client, err := mail.NewClient(s.opts.Host, clientOpts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
