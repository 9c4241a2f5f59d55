package auth

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/vigia-auth/internal/domain"
	"github.com/jhoicas/vigia-auth/internal/domain/entity"
	"github.com/jhoicas/vigia-auth/internal/domain/repository"
	"github.com/jhoicas/vigia-auth/pkg/logger"
)

// DefaultResetTokenTTL vigencia de un token de redefinición.
const DefaultResetTokenTTL = 30 * time.Minute

// ResetConfig parámetros del flujo "esqueci minha senha".
type ResetConfig struct {
	TTL    time.Duration
	Policy PasswordPolicy
}

// ResetService emite y consume tokens de redefinición de contraseña.
type ResetService struct {
	users    repository.UserRepository
	tokens   repository.ResetTokenRepository
	tx       repository.TxRunner
	hasher   PasswordHasher
	notifier Notifier
	log      *logger.Logger
	cfg      ResetConfig
	now      func() time.Time
}

// ResetOption configura dependencias opcionales de ResetService.
type ResetOption func(*ResetService)

// WithResetClock reemplaza time.Now (tests).
func WithResetClock(now func() time.Time) ResetOption {
	return func(s *ResetService) { s.now = now }
}

// NewResetService construye el servicio. notifier nil descarta los envíos.
func NewResetService(
	users repository.UserRepository,
	tokens repository.ResetTokenRepository,
	tx repository.TxRunner,
	hasher PasswordHasher,
	notifier Notifier,
	log *logger.Logger,
	cfg ResetConfig,
	opts ...ResetOption,
) *ResetService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultResetTokenTTL
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &ResetService{
		users:    users,
		tokens:   tokens,
		tx:       tx,
		hasher:   hasher,
		notifier: notifier,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue genera un token para email y lo entrega al notificador.
// Un email desconocido no es error: no se crea nada y el llamador no puede distinguirlo.
func (s *ResetService) Issue(ctx context.Context, email string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.reset.issue")
	defer endSpan(span, &err)

	user, err := s.users.GetByEmail(ctx, entity.EmailKey(email))
	if err != nil {
		return err
	}
	if user == nil {
		s.log.Debug().Msg("redefinición solicitada para email inexistente")
		return nil
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return err
	}
	now := s.now()
	rt := &entity.ResetToken{
		TokenHash: hash,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}
	if err := s.tokens.Create(ctx, rt); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	// Destino: la dirección guardada, no la escrita en la solicitud.
	msg := PasswordResetMessage{
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Token:     token,
		ExpiresAt: rt.ExpiresAt,
	}
	if err := s.notifier.SendPasswordReset(ctx, msg); err != nil {
		// El token ya existe; el usuario puede pedir otro si el correo no llega.
		logger.Err(s.log.Error(), err).Str("user_id", user.ID).Msg("no se pudo encolar el correo de redefinición")
		return nil
	}
	s.log.Info().Str("user_id", user.ID).Time("expires_at", rt.ExpiresAt).Msg("token de redefinición emitido")
	return nil
}

// Consume canjea token por una contraseña nueva. El token queda marcado como usado
// en la misma transacción que guarda el hash, de modo que dos usos concurrentes
// no pueden ganar ambos.
func (s *ResetService) Consume(ctx context.Context, token, newPassword string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.reset.consume")
	defer endSpan(span, &err)

	if err := s.cfg.Policy.Check(newPassword); err != nil {
		return err
	}
	if token == "" {
		return domain.ErrInvalidOrExpiredToken
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	fingerprint := FingerprintToken(token)

	var userID string
	err = s.tx.RunAuth(ctx, func(users repository.UserRepository, _ repository.CompanyRepository, tokens repository.ResetTokenRepository) error {
		now := s.now()
		rt, err := tokens.Consume(ctx, fingerprint, now)
		if err != nil {
			return err
		}
		user, err := users.GetByID(ctx, rt.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrNotFound
		}
		user.SetPassword(hash, false, now)
		userID = user.ID
		return users.Put(ctx, user)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Msg("contraseña redefinida por token")
	return nil
}

// Purge borra los tokens expirados antes de olderThan. Los consumidos y vigentes se conservan.
func (s *ResetService) Purge(ctx context.Context, olderThan time.Time) (n int64, err error) {
	ctx, span := tracer.Start(ctx, "auth.reset.purge")
	defer endSpan(span, &err)

	n, err = s.tokens.DeleteExpired(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("reset_tokens.purged", n))
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("tokens de redefinición expirados eliminados")
	}
	return n, nil
}
