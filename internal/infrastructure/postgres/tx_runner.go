package postgres

import (
	"context"

	"github.com/jhoicas/vigia-auth/internal/domain/repository"
)

// Ensure TxRunner implements repository.TxRunner.
var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	db Beginner
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(db Beginner) *TxRunner {
	return &TxRunner{db: db}
}

// RunAuth inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Lo usan el cadastro (empresa + admin) y el canje de tokens de redefinición.
func (r *TxRunner) RunAuth(ctx context.Context, fn func(
	users repository.UserRepository,
	companies repository.CompanyRepository,
	tokens repository.ResetTokenRepository,
) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	users := NewUserRepository(tx)
	companies := NewCompanyRepository(tx)
	tokens := NewResetTokenRepository(tx)

	if err := fn(users, companies, tokens); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}
