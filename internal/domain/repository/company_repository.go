package repository

import (
	"context"

	"github.com/jhoicas/vigia-auth/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company (DIP).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	// GetByCNPJ devuelve nil, nil si no existe. cnpj llega normalizado.
	GetByCNPJ(ctx context.Context, cnpj string) (*entity.Company, error)
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	// Put inserta o actualiza por ID. Devuelve domain.ErrConflict si el CNPJ pertenece a otra empresa.
	Put(ctx context.Context, company *entity.Company) error
	Count(ctx context.Context) (int, error)
}
