package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/vigia-auth/internal/domain"
	"github.com/jhoicas/vigia-auth/internal/domain/entity"
	"github.com/jhoicas/vigia-auth/internal/domain/repository"
	"github.com/jhoicas/vigia-auth/pkg/cnpj"
	"github.com/jhoicas/vigia-auth/pkg/logger"
)

// Config parámetros del servicio de auth.
type Config struct {
	Policy PasswordPolicy
	// ValidateCNPJCheckDigits en false solo exige 14 caracteres (ambientes de prueba).
	ValidateCNPJCheckDigits bool
}

// Option configura dependencias opcionales del servicio.
type Option func(*Service)

// WithThrottle activa el bloqueo por intentos fallidos.
func WithThrottle(t LoginThrottle) Option {
	return func(s *Service) {
		if t != nil {
			s.throttle = t
		}
	}
}

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service casos de uso de credenciales: login, cadastro, cambio de contraseña.
type Service struct {
	users     repository.UserRepository
	companies repository.CompanyRepository
	tx        repository.TxRunner
	hasher    PasswordHasher
	sessions  SessionIssuer
	throttle  LoginThrottle
	log       *logger.Logger
	cfg       Config
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService construye el servicio de auth.
func NewService(
	users repository.UserRepository,
	companies repository.CompanyRepository,
	tx repository.TxRunner,
	hasher PasswordHasher,
	sessions SessionIssuer,
	log *logger.Logger,
	cfg Config,
	opts ...Option,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		users:     users,
		companies: companies,
		tx:        tx,
		hasher:    hasher,
		sessions:  sessions,
		throttle:  nopThrottle{},
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifica email/password. El error solo se usa para fallas de infraestructura;
// credenciales incorrectas o bloqueo llegan como Rejected.
func (s *Service) Login(ctx context.Context, email, password string) (out LoginOutcome, err error) {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer endSpan(span, &err)

	key := entity.EmailKey(email)

	locked, err := s.throttle.Locked(ctx, key)
	if err != nil {
		// Sin Redis no se bloquea a nadie; el login sigue.
		logger.Err(s.log.Warn(), err).Msg("login throttle no disponible")
		err = nil
	}
	if locked {
		span.SetAttributes(attribute.Bool("auth.locked_out", true))
		return Rejected{Reason: domain.ErrTooManyAttempts}, nil
	}

	user, err := s.users.GetByEmail(ctx, key)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Misma latencia que un email existente para no revelar cuáles están registrados.
		_, _ = s.hasher.Verify(password, s.dummy())
		s.recordFailure(ctx, key)
		return Rejected{Reason: domain.ErrInvalidCredentials}, nil
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.recordFailure(ctx, key)
		s.log.Info().Str("user_id", user.ID).Msg("login rechazado")
		return Rejected{Reason: domain.ErrInvalidCredentials}, nil
	}

	if err := s.throttle.Reset(ctx, key); err != nil {
		logger.Err(s.log.Warn(), err).Str("user_id", user.ID).Msg("no se pudo limpiar el contador de fallos")
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	if user.TemporaryPassword {
		tok, err := s.sessions.IssueRotation(user)
		if err != nil {
			return nil, fmt.Errorf("emitir token de rotación: %w", err)
		}
		s.log.Info().Str("user_id", user.ID).Msg("login con contraseña temporal, rotación requerida")
		return PasswordRotationRequired{UserID: user.ID, RotationToken: tok}, nil
	}

	tok, err := s.sessions.IssueSession(user)
	if err != nil {
		return nil, fmt.Errorf("emitir sesión: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Str("company_id", user.CompanyID).Msg("login correcto")
	return Authenticated{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		IsAdmin:   user.IsAdmin,
		Session:   tok,
	}, nil
}

// ChangePassword reemplaza la contraseña y limpia el flag de temporal.
func (s *Service) ChangePassword(ctx context.Context, userID, newPassword string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.change_password", trace.WithAttributes(attribute.String("user.id", userID)))
	defer endSpan(span, &err)

	if err := s.cfg.Policy.Check(newPassword); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.SetPassword(hash, false, s.now())
	if err := s.users.Put(ctx, user); err != nil {
		return err
	}
	s.log.Info().Str("user_id", user.ID).Msg("contraseña cambiada")
	return nil
}

// Register crea la empresa y su primer usuario (admin) en una sola transacción.
// Si algo falla no queda ni la empresa ni el usuario.
func (s *Service) Register(ctx context.Context, in RegisterInput) (res *RegisterResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.register")
	defer endSpan(span, &err)

	email := entity.NormalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	companyName := strings.TrimSpace(in.CompanyName)
	if fullName == "" || companyName == "" {
		return nil, fmt.Errorf("%w: nombre y empresa son requeridos", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email inválido", domain.ErrInvalidInput)
	}
	taxID, err := s.normalizeCNPJ(in.CNPJ)
	if err != nil {
		return nil, err
	}
	if err := s.cfg.Policy.Check(in.Password); err != nil {
		return nil, err
	}

	// bcrypt fuera de la transacción para no retener conexiones.
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	company := &entity.Company{
		ID:        uuid.New().String(),
		Name:      companyName,
		CNPJ:      taxID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	user := &entity.User{
		ID:              uuid.New().String(),
		CompanyID:       company.ID,
		Email:           email,
		PasswordHash:    hash,
		PasswordVersion: 1, // un token sin claim pwv (cero) nunca coincide
		FullName:        fullName,
		WhatsApp:        entity.DigitsOnly(in.WhatsApp),
		IsAdmin:         true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.tx.RunAuth(ctx, func(users repository.UserRepository, companies repository.CompanyRepository, _ repository.ResetTokenRepository) error {
		existing, err := companies.GetByCNPJ(ctx, taxID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateCNPJ
		}
		taken, err := users.ExistsByEmail(ctx, user.EmailKey())
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrDuplicateEmail
		}
		// Una carrera con otro cadastro aparece aquí como ErrConflict del store.
		if err := companies.Put(ctx, company); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return fmt.Errorf("%w: %w", err, domain.ErrDuplicateCNPJ)
			}
			return err
		}
		if err := users.Put(ctx, user); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return fmt.Errorf("%w: %w", err, domain.ErrDuplicateEmail)
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.log.Info().Str("code", domain.ReasonCode(err)).Msg("cadastro rechazado")
		return nil, err
	}

	span.SetAttributes(attribute.String("user.id", user.ID), attribute.String("company.id", company.ID))
	s.log.Info().Str("user_id", user.ID).Str("company_id", company.ID).Msg("empresa registrada")
	return &RegisterResult{UserID: user.ID, CompanyID: company.ID}, nil
}

// IssueTemporaryPassword genera una contraseña temporal para email y la devuelve en claro una sola vez.
// El próximo login de ese usuario exigirá rotarla.
func (s *Service) IssueTemporaryPassword(ctx context.Context, email string) (string, error) {
	return s.issueTemporaryPassword(ctx, "", email)
}

// IssueTemporaryPasswordInCompany igual que IssueTemporaryPassword pero solo para usuarios de companyID.
// Un usuario de otra empresa se reporta como inexistente.
func (s *Service) IssueTemporaryPasswordInCompany(ctx context.Context, companyID, email string) (string, error) {
	return s.issueTemporaryPassword(ctx, companyID, email)
}

func (s *Service) issueTemporaryPassword(ctx context.Context, companyID, email string) (plain string, err error) {
	ctx, span := tracer.Start(ctx, "auth.issue_temporary_password")
	defer endSpan(span, &err)

	user, err := s.users.GetByEmail(ctx, entity.EmailKey(email))
	if err != nil {
		return "", err
	}
	if user == nil || (companyID != "" && user.CompanyID != companyID) {
		return "", domain.ErrNotFound
	}
	plain, err = generateTemporaryPassword()
	if err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return "", err
	}
	user.SetPassword(hash, true, s.now())
	if err := s.users.Put(ctx, user); err != nil {
		return "", err
	}
	s.log.Info().Str("user_id", user.ID).Msg("contraseña temporal emitida")
	return plain, nil
}

// Me devuelve el usuario y su empresa.
func (s *Service) Me(ctx context.Context, userID string) (*UserView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	company, err := s.companies.GetByID(ctx, user.CompanyID)
	if err != nil {
		return nil, err
	}
	return &UserView{User: user, Company: company}, nil
}

// CheckSession devuelve domain.ErrSessionRevoked si el usuario ya no existe o si su contraseña
// cambió después de firmado el token (passwordVersion distinta de la guardada).
func (s *Service) CheckSession(ctx context.Context, userID string, passwordVersion int) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.PasswordVersion != passwordVersion {
		return domain.ErrSessionRevoked
	}
	return nil
}

// CNPJAvailable informa si todavía no hay empresa con ese CNPJ (pre-chequeo del formulario de cadastro).
// Register vuelve a comprobarlo dentro de la transacción.
func (s *Service) CNPJAvailable(ctx context.Context, raw string) (bool, error) {
	taxID, err := s.normalizeCNPJ(raw)
	if err != nil {
		return false, err
	}
	existing, err := s.companies.GetByCNPJ(ctx, taxID)
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}

func (s *Service) normalizeCNPJ(raw string) (string, error) {
	if s.cfg.ValidateCNPJCheckDigits {
		n, err := cnpj.Validate(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrInvalidCNPJ, err)
		}
		return n, nil
	}
	n := cnpj.Normalize(raw)
	if len(n) != cnpj.Length {
		return "", fmt.Errorf("%w: se esperaban %d caracteres", domain.ErrInvalidCNPJ, cnpj.Length)
	}
	return n, nil
}

func (s *Service) recordFailure(ctx context.Context, key string) {
	if err := s.throttle.RecordFailure(ctx, key); err != nil {
		logger.Err(s.log.Warn(), err).Msg("no se pudo registrar el fallo de login")
	}
}

// dummy hash para igualar el costo de un login con email inexistente.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("vigia-dummy-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
