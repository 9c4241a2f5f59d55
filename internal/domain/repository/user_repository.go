package repository

import (
	"context"

	"github.com/jhoicas/vigia-auth/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (credential store).
// Las búsquedas por email reciben la clave entity.EmailKey, no la dirección.
type UserRepository interface {
	// GetByEmail devuelve nil, nil si no existe.
	GetByEmail(ctx context.Context, key string) (*entity.User, error)
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// Put inserta o actualiza por ID. Devuelve domain.ErrConflict si otro usuario ya tiene la misma EmailKey.
	Put(ctx context.Context, user *entity.User) error
	ExistsByEmail(ctx context.Context, key string) (bool, error)
	Count(ctx context.Context) (int, error)
}
