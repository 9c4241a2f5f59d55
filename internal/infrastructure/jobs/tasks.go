package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/vigia-auth/pkg/logger"
)

const (
	// QueueDefault cola única del worker.
	QueueDefault = "default"
	// TaskTypeSendEmail correo transaccional ya renderizado.
	TaskTypeSendEmail = "mail:send"
	// TaskTypePurgeResetTokens limpieza periódica de tokens expirados.
	TaskTypePurgeResetTokens = "reset_tokens:purge"
)

// SendEmailPayload datos del correo a enviar.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask construye la tarea asynq.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5), asynq.Timeout(time.Minute)), nil
}

// NewPurgeResetTokensTask tarea sin payload; el corte se calcula al ejecutarla.
func NewPurgeResetTokensTask() *asynq.Task {
	return asynq.NewTask(TaskTypePurgeResetTokens, nil)
}

// MailHandler procesa TaskTypeSendEmail.
type MailHandler struct {
	mailer  Mailer
	log     *logger.Logger
	metrics Tracker
}

// NewMailHandler construye el handler. metrics puede ser nil.
func NewMailHandler(mailer Mailer, log *logger.Logger, metrics Tracker) *MailHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &MailHandler{mailer: mailer, log: log, metrics: metrics}
}

// Handle envía el correo. Un payload ilegible no se reintenta.
func (h *MailHandler) Handle(ctx context.Context, t *asynq.Task) (err error) {
	defer track(h.metrics, TaskTypeSendEmail)(&err)

	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s: %v: %w", TaskTypeSendEmail, err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("%s sin destinatario: %w", TaskTypeSendEmail, asynq.SkipRetry)
	}
	if err := h.mailer.Send(ctx, payload); err != nil {
		logger.Err(h.log.Warn(), err).Str("subject", payload.Subject).Msg("envío de correo fallido")
		return err
	}
	h.log.Debug().Str("subject", payload.Subject).Msg("correo enviado")
	return nil
}

// TokenPurger lo implementa auth.ResetService.
type TokenPurger interface {
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// PurgeHandler procesa TaskTypePurgeResetTokens.
type PurgeHandler struct {
	purger  TokenPurger
	now     func() time.Time
	log     *logger.Logger
	metrics Tracker
}

// NewPurgeHandler construye el handler de limpieza.
func NewPurgeHandler(purger TokenPurger, log *logger.Logger, metrics Tracker) *PurgeHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PurgeHandler{purger: purger, now: time.Now, log: log, metrics: metrics}
}

// Handle borra los tokens ya expirados.
func (h *PurgeHandler) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	defer track(h.metrics, TaskTypePurgeResetTokens)(&err)

	n, err := h.purger.Purge(ctx, h.now())
	if err != nil {
		return err
	}
	h.log.Debug().Int64("purged", n).Msg("purga de tokens completada")
	return nil
}

// Tracker instrumenta ejecuciones de tareas (metrics.Metrics lo implementa).
type Tracker interface {
	ObserveJob(job string, err error, elapsed time.Duration)
}

func track(t Tracker, job string) func(*error) {
	start := time.Now()
	return func(err *error) {
		if t != nil {
			t.ObserveJob(job, *err, time.Since(start))
		}
	}
}
