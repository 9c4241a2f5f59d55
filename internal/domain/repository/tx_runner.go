package repository

import "context"

// TxRunner ejecuta fn dentro de una transacción, pasando repositorios atados a ella.
// Si fn devuelve error no queda nada escrito.
type TxRunner interface {
	RunAuth(ctx context.Context, fn func(
		users UserRepository,
		companies CompanyRepository,
		tokens ResetTokenRepository,
	) error) error
}
