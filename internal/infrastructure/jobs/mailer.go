package jobs

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/vigia-auth/pkg/config"
	"github.com/jhoicas/vigia-auth/pkg/logger"
)

// Mailer entrega un correo ya renderizado.
type Mailer interface {
	Send(ctx context.Context, msg SendEmailPayload) error
}

// NewMailer devuelve un SMTPMailer si hay host configurado; si no, un LogMailer.
func NewMailer(cfg config.SMTPConfig, log *logger.Logger) Mailer {
	if cfg.Host == "" {
		return NewLogMailer(log)
	}
	return NewSMTPMailer(cfg)
}

// SMTPMailer envía por SMTP con gomail. Reintenta fallos de red en el mismo intento de la tarea.
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	attempts uint64
	base     time.Duration
}

// NewSMTPMailer construye el mailer.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:     cfg.From,
		attempts: 3,
		base:     200 * time.Millisecond,
	}
}

// Send arma el mensaje y lo entrega.
func (m *SMTPMailer) Send(ctx context.Context, msg SendEmailPayload) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	backoff := retry.WithMaxRetries(m.attempts-1, retry.NewExponential(m.base))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := m.dialer.DialAndSend(gm); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("MAIL_DELIVERY_FAILED").In("smtp").With("host", m.dialer.Host).Wrap(err)
	}
	return nil
}

// LogMailer solo registra el envío (desarrollo sin SMTP). No loguea el cuerpo: lleva el token.
type LogMailer struct {
	log *logger.Logger
}

// NewLogMailer construye el mailer de desarrollo.
func NewLogMailer(log *logger.Logger) *LogMailer {
	if log == nil {
		log = logger.Nop()
	}
	return &LogMailer{log: log}
}

// Send registra destinatario y asunto.
func (m *LogMailer) Send(_ context.Context, msg SendEmailPayload) error {
	m.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("SMTP no configurado; correo descartado")
	return nil
}
