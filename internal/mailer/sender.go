package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

var ErrNoRecipient = errors.New("email has no recipient")

// Sender delivers an email and returns the transport's message id.
type Sender interface {
	Send(ctx context.Context, e Email) (string, error)
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, e Email) (string, error) {
	if strings.TrimSpace(e.To) == "" {
		return "", ErrNoRecipient
	}

	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return "", fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.To(e.To); err != nil {
		return "", fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(e.Subject)
	m.SetBodyString(mail.TypeTextPlain, e.TextBody)
	if e.HTMLBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, e.HTMLBody)
	}
	id := messageID(s.cfg.From)
	m.SetGenHeader(mail.HeaderMessageID, id)

	opts := []mail.Option{mail.WithPort(s.cfg.Port), mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return "", fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return id, nil
}

// LogSender writes emails to the log instead of delivering them. Used in development.
type LogSender struct {
	Logger zerolog.Logger
}

func (l LogSender) Send(ctx context.Context, e Email) (string, error) {
	if strings.TrimSpace(e.To) == "" {
		return "", ErrNoRecipient
	}
	id := messageID("civiclink.local")
	l.Logger.Info().
		Str("message_id", id).
		Str("to", e.To).
		Str("subject", e.Subject).
		Int("body_length", len(e.TextBody)).
		Msg("email logged, not delivered")
	return id, nil
}

func messageID(from string) string {
	domain := "civiclink.local"
	if i := strings.LastIndexByte(from, '@'); i >= 0 && i < len(from)-1 {
		domain = from[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
