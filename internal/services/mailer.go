package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ruralpay/supplycredit/internal/config"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	InlineImage *InlineImage
}

// InlineImage is embedded in the HTML part and referenced as cid:<Name>.
type InlineImage struct {
	Name string
	Data []byte
}

// Mailer is the outbound mail sink. Implementations report failure and
// never retry.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers through an SMTP relay, one connection per message.
type SMTPMailer struct {
	cfg config.MailConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	em := mail.NewMsg()
	if err := em.From(m.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := em.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	em.Subject(msg.Subject)
	em.SetBodyString(mail.TypeTextPlain, msg.Text)
	em.AddAlternativeString(mail.TypeTextHTML, msg.HTML)

	if img := msg.InlineImage; img != nil {
		if err := em.EmbedReader(img.Name, bytes.NewReader(img.Data)); err != nil {
			return fmt.Errorf("embed %s: %w", img.Name, err)
		}
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, em); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogMailer stands in for SMTP when no relay is configured.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log.Named("mail")}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("mail delivery disabled, message dropped",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Bool("inline_image", msg.InlineImage != nil))
	return nil
}
