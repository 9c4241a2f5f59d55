package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/vigia-auth/internal/application/auth"
	"github.com/jhoicas/vigia-auth/internal/domain"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/jobs"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/notify"
	"github.com/jhoicas/vigia-auth/pkg/logger"
)

// stuckMailer simula un SMTP que no responde hasta que se cierre release.
type stuckMailer struct {
	release chan struct{}
	sent    chan string
}

func (m *stuckMailer) Send(ctx context.Context, p jobs.SendEmailPayload) error {
	select {
	case <-m.release:
		m.sent <- p.To
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestResetIssue_EmailDesconocido_SinTokens(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", validCNPJ)

	require.NoError(t, f.reset.Issue(context.Background(), "nadie@x.com"))

	_, _, tokens := f.counts(t)
	assert.Zero(t, tokens)
	assert.Empty(t, f.notifier.sent)
}

func TestResetIssue_GuardaHuellaYNotifica(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "a@x.com", validCNPJ)

	require.NoError(t, f.reset.Issue(context.Background(), "A@x.com"))

	_, _, tokens := f.counts(t)
	assert.Equal(t, 1, tokens)

	msg := f.notifier.last(t)
	assert.Equal(t, res.UserID, msg.UserID)
	assert.Equal(t, "a@x.com", msg.Email)
	assert.NotEmpty(t, msg.Token)
	assert.Equal(t, f.clock.Now().Add(auth.DefaultResetTokenTTL), msg.ExpiresAt)

	// El token plano no se guarda: buscar por el valor plano no encuentra nada.
	_, err := f.store.ResetTokens().Consume(context.Background(), msg.Token, f.clock.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
}

func TestResetIssue_EntregaALaDireccionGuardada(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "Straße@x.de", validCNPJ)

	for _, requested := range []string{"Straße@x.de", "strasse@x.de", " STRASSE@X.DE "} {
		require.NoError(t, f.reset.Issue(context.Background(), requested))
		msg := f.notifier.last(t)
		assert.Equal(t, res.UserID, msg.UserID, requested)
		assert.Equal(t, "Straße@x.de", msg.Email, "el correo va al buzón registrado, no a la clave plegada")
	}
}

func TestResetIssue_SinColaNoEsperaAlSMTP(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", validCNPJ)

	mailer := &stuckMailer{release: make(chan struct{}), sent: make(chan string, 1)}
	mn := notify.NewMailNotifier(mailer, notify.Renderer{ResetURL: "http://localhost:3000/r"}, logger.Nop())
	reset := auth.NewResetService(f.store.Users(), f.store.ResetTokens(), f.store,
		auth.NewBcryptHasher(bcrypt.MinCost), mn, logger.Nop(), auth.ResetConfig{})

	done := make(chan error, 1)
	go func() { done <- reset.Issue(context.Background(), "a@x.com") }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Issue quedó bloqueado por el envío de correo")
	}

	close(mailer.release)
	require.NoError(t, mn.Close(context.Background()))
	assert.Equal(t, "a@x.com", <-mailer.sent)
}

func TestResetIssue_FallaDelNotificadorNoEsFatal(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", validCNPJ)
	f.notifier.err = errors.New("smtp caído")

	require.NoError(t, f.reset.Issue(context.Background(), "a@x.com"))
	_, _, tokens := f.counts(t)
	assert.Equal(t, 1, tokens)
}

func TestResetConsume_UnaSolaVez(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", validCNPJ)
	require.NoError(t, f.reset.Issue(ctx, "a@x.com"))
	token := f.notifier.last(t).Token

	require.NoError(t, f.reset.Consume(ctx, token, "recuperada"))

	err := f.reset.Consume(ctx, token, "otra-mas")
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	assert.Equal(t, domain.CodeInvalidOrExpiredToken, domain.ReasonCode(err))

	out, err := f.svc.Login(ctx, "a@x.com", "recuperada")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusAuthenticated, out.Status())
}

func TestResetConsume_LimpiaTemporal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", validCNPJ)
	_, err := f.svc.IssueTemporaryPassword(ctx, "a@x.com")
	require.NoError(t, err)

	require.NoError(t, f.reset.Issue(ctx, "a@x.com"))
	require.NoError(t, f.reset.Consume(ctx, f.notifier.last(t).Token, "recuperada"))

	out, err := f.svc.Login(ctx, "a@x.com", "recuperada")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusAuthenticated, out.Status())
}

func TestResetConsume_Concurrente_UnGanador(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", validCNPJ)
	require.NoError(t, f.reset.Issue(ctx, "a@x.com"))
	token := f.notifier.last(t).Token

	const n = 10
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := f.reset.Consume(ctx, token, "concurrente")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrInvalidOrExpiredToken):
				losses++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, losses)
}

func TestResetConsume_Expirado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", validCNPJ)
	require.NoError(t, f.reset.Issue(ctx, "a@x.com"))
	token := f.notifier.last(t).Token

	f.clock.Advance(auth.DefaultResetTokenTTL + time.Second)

	err := f.reset.Consume(ctx, token, "tarde-demais")
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)

	// La contraseña original sigue vigente
	out, err := f.svc.Login(ctx, "a@x.com", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, auth.StatusAuthenticated, out.Status())
}

func TestResetConsume_PasswordDebilNoGastaElToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", validCNPJ)
	require.NoError(t, f.reset.Issue(ctx, "a@x.com"))
	token := f.notifier.last(t).Token

	err := f.reset.Consume(ctx, token, "123")
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	assert.NoError(t, f.reset.Consume(ctx, token, "suficiente"))
}

func TestResetConsume_TokenDesconocido(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assert.ErrorIs(t, f.reset.Consume(ctx, "no-existe", "suficiente"), domain.ErrInvalidOrExpiredToken)
	assert.ErrorIs(t, f.reset.Consume(ctx, "", "suficiente"), domain.ErrInvalidOrExpiredToken)
}

func TestResetPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", validCNPJ)
	require.NoError(t, f.reset.Issue(ctx, "a@x.com"))

	n, err := f.reset.Purge(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, n, "el token vigente no se borra")

	f.clock.Advance(time.Hour)
	require.NoError(t, f.reset.Issue(ctx, "a@x.com"))

	n, err = f.reset.Purge(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, _, tokens := f.counts(t)
	assert.Equal(t, 1, tokens)
}
