package auth

import (
	"context"
	"time"

	"github.com/jhoicas/vigia-auth/internal/domain/entity"
)

// SessionIssuer firma los tokens que recibe el cliente tras un login.
type SessionIssuer interface {
	// IssueSession emite el token de sesión de un usuario autenticado.
	IssueSession(user *entity.User) (string, error)
	// IssueRotation emite el token de corta duración que solo autoriza el cambio de contraseña.
	IssueRotation(user *entity.User) (string, error)
}

// PasswordResetMessage lo que necesita el notificador para armar el correo.
// Token es el valor plano; no se persiste ni se loguea.
type PasswordResetMessage struct {
	UserID    string
	Email     string
	FullName  string
	Token     string
	ExpiresAt time.Time
}

// Notifier entrega el token de redefinición al usuario (fire-and-forget).
type Notifier interface {
	SendPasswordReset(ctx context.Context, msg PasswordResetMessage) error
}

// LoginThrottle lleva la cuenta de fallos por email y bloquea temporalmente.
type LoginThrottle interface {
	// Locked informa si la clave está bloqueada.
	Locked(ctx context.Context, key string) (bool, error)
	// RecordFailure suma un fallo; al llegar al umbral bloquea la clave.
	RecordFailure(ctx context.Context, key string) error
	// Reset limpia el contador tras un login correcto.
	Reset(ctx context.Context, key string) error
}

type nopThrottle struct{}

func (nopThrottle) Locked(context.Context, string) (bool, error) { return false, nil }
func (nopThrottle) RecordFailure(context.Context, string) error  { return nil }
func (nopThrottle) Reset(context.Context, string) error          { return nil }

type nopNotifier struct{}

func (nopNotifier) SendPasswordReset(context.Context, PasswordResetMessage) error { return nil }
