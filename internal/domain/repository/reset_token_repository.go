package repository

import (
	"context"
	"time"

	"github.com/jhoicas/vigia-auth/internal/domain/entity"
)

// ResetTokenRepository persiste tokens de redefinición de contraseña por su huella.
type ResetTokenRepository interface {
	Create(ctx context.Context, token *entity.ResetToken) error
	// Consume marca el token como usado si no estaba consumido y no expiró en now.
	// Es un check-and-set atómico; devuelve domain.ErrInvalidOrExpiredToken en cualquier otro caso.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*entity.ResetToken, error)
	// DeleteExpired borra los tokens expirados antes de before y devuelve cuántos borró.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	Count(ctx context.Context) (int, error)
}
