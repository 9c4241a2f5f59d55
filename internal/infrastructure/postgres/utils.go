package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/jhoicas/vigia-auth/internal/domain"
)

// Querier lo implementan *pgxpool.Pool, pgx.Tx y los mocks de pgxmock.
// Los repos lo reciben para funcionar igual dentro o fuera de una transacción.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Beginner abre transacciones (pool real o pgxmock).
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == pgerrcode.UniqueViolation
}

// isForeignKeyViolation 23503.
func isForeignKeyViolation(err error) bool {
	return pgCode(err) == pgerrcode.ForeignKeyViolation
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// storeErr envuelve una falla de la base como domain.ErrStoreUnavailable con el contexto de la operación.
func storeErr(op string, err error) error {
	return oops.
		Code(domain.CodeStoreUnavailable).
		In("postgres").
		With("operation", op).
		Wrap(fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err))
}
