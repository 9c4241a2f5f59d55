package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/samber/oops"

	"github.com/jhoicas/vigia-auth/internal/application/auth"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/jobs"
	"github.com/jhoicas/vigia-auth/pkg/logger"
)

var (
	_ auth.Notifier = (*QueueNotifier)(nil)
	_ auth.Notifier = (*MailNotifier)(nil)
)

// Enqueuer lo implementa jobs.Client.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// QueueNotifier encola el correo de redefinición para el worker.
type QueueNotifier struct {
	queue    Enqueuer
	renderer Renderer
}

// NewQueueNotifier construye el notificador asíncrono.
func NewQueueNotifier(queue Enqueuer, renderer Renderer) *QueueNotifier {
	return &QueueNotifier{queue: queue, renderer: renderer}
}

// SendPasswordReset renderiza y encola. No espera la entrega.
func (n *QueueNotifier) SendPasswordReset(ctx context.Context, msg auth.PasswordResetMessage) error {
	payload, err := n.renderer.PasswordReset(msg)
	if err != nil {
		return err
	}
	if _, err := n.queue.EnqueueSendEmail(ctx, payload); err != nil {
		return oops.Code("MAIL_ENQUEUE_FAILED").In("asynq").With("user_id", msg.UserID).Wrap(err)
	}
	return nil
}

// Valores por defecto del envío sin cola.
const (
	DefaultMailTimeout  = 30 * time.Second
	DefaultMailInFlight = 16
)

// MailNotifier entrega sin cola (despliegues sin Redis). El SMTP corre en una goroutine
// con su propio plazo: la solicitud HTTP no espera al servidor de correo.
// Con DefaultMailInFlight envíos en curso el siguiente correo se descarta y se informa como error.
type MailNotifier struct {
	mailer   jobs.Mailer
	renderer Renderer
	log      *logger.Logger
	timeout  time.Duration
	slots    chan struct{}
	wg       sync.WaitGroup
}

// MailOption ajusta un MailNotifier.
type MailOption func(*MailNotifier)

// WithMailTimeout plazo de cada envío SMTP.
func WithMailTimeout(d time.Duration) MailOption {
	return func(n *MailNotifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithMaxInFlight envíos simultáneos permitidos.
func WithMaxInFlight(max int) MailOption {
	return func(n *MailNotifier) {
		if max > 0 {
			n.slots = make(chan struct{}, max)
		}
	}
}

// NewMailNotifier construye el notificador sin cola.
func NewMailNotifier(mailer jobs.Mailer, renderer Renderer, log *logger.Logger, opts ...MailOption) *MailNotifier {
	if log == nil {
		log = logger.Nop()
	}
	n := &MailNotifier{
		mailer:   mailer,
		renderer: renderer,
		log:      log,
		timeout:  DefaultMailTimeout,
		slots:    make(chan struct{}, DefaultMailInFlight),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SendPasswordReset renderiza y dispara el envío. Solo devuelve errores previos al envío
// (plantilla inválida o cupo lleno); las fallas SMTP quedan en el log.
func (n *MailNotifier) SendPasswordReset(ctx context.Context, msg auth.PasswordResetMessage) error {
	payload, err := n.renderer.PasswordReset(msg)
	if err != nil {
		return err
	}
	select {
	case n.slots <- struct{}{}:
	default:
		return oops.Code("MAIL_BACKLOG_FULL").In("notify").With("user_id", msg.UserID).Errorf("envíos SMTP en curso: %d", cap(n.slots))
	}

	// El envío sobrevive a la cancelación de la solicitud pero no a su propio plazo.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	n.wg.Add(1)
	go func() {
		defer func() {
			cancel()
			<-n.slots
			n.wg.Done()
		}()
		if err := n.mailer.Send(sendCtx, payload); err != nil {
			logger.Err(n.log.Error(), err).Str("user_id", msg.UserID).Msg("correo de redefinición no entregado")
		}
	}()
	return nil
}

// Close espera los envíos en curso hasta que ctx termine.
func (n *MailNotifier) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Renderer arma el texto del correo.
type Renderer struct {
	AppName  string
	ResetURL string // el token se agrega como parámetro "token"
}

// PasswordReset devuelve el correo con el enlace de redefinición.
func (r Renderer) PasswordReset(msg auth.PasswordResetMessage) (jobs.SendEmailPayload, error) {
	link, err := r.link(msg.Token)
	if err != nil {
		return jobs.SendEmailPayload{}, err
	}
	name := strings.TrimSpace(msg.FullName)
	if name == "" {
		name = msg.Email
	}
	app := r.AppName
	if app == "" {
		app = "VIGIA"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Olá, %s.\n\n", name)
	fmt.Fprintf(&b, "Recebemos um pedido para redefinir a senha da sua conta %s.\n", app)
	fmt.Fprintf(&b, "Use o link abaixo até %s (UTC):\n\n", msg.ExpiresAt.UTC().Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "%s\n\n", link)
	b.WriteString("Se você não fez este pedido, ignore este e-mail.\n")

	return jobs.SendEmailPayload{
		To:      msg.Email,
		Subject: app + " - redefinição de senha",
		Body:    b.String(),
	}, nil
}

func (r Renderer) link(token string) (string, error) {
	u, err := url.Parse(r.ResetURL)
	if err != nil {
		return "", oops.Code("RESET_URL_INVALID").In("notify").Wrap(err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
