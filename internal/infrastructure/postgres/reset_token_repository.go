package postgres

import (
	"context"
	"time"

	"github.com/jhoicas/vigia-auth/internal/domain"
	"github.com/jhoicas/vigia-auth/internal/domain/entity"
	"github.com/jhoicas/vigia-auth/internal/domain/repository"
)

var _ repository.ResetTokenRepository = (*ResetTokenRepo)(nil)

// ResetTokenRepo tokens de redefinición en password_reset_tokens.
type ResetTokenRepo struct {
	q Querier
}

// NewResetTokenRepository construye el adaptador. Pasar pool o tx (Querier).
func NewResetTokenRepository(q Querier) *ResetTokenRepo {
	return &ResetTokenRepo{q: q}
}

// Create persiste un token nuevo. La FK a users garantiza que el usuario existe.
func (r *ResetTokenRepo) Create(ctx context.Context, t *entity.ResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (token_hash, user_id, expires_at, consumed, created_at)
		VALUES ($1, $2, $3, false, $4)`
	_, err := r.q.Exec(ctx, query, t.TokenHash, t.UserID, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return storeErr("create reset token", err)
	}
	return nil
}

// Consume marca el token en una sola sentencia. Si dos transacciones compiten por la
// misma fila, la segunda reevalúa el WHERE tras el commit de la primera y no actualiza nada.
func (r *ResetTokenRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (*entity.ResetToken, error) {
	query := `
		UPDATE password_reset_tokens
		   SET consumed = true, consumed_at = $2
		 WHERE token_hash = $1
		   AND NOT consumed
		   AND expires_at > $2
		RETURNING token_hash, user_id, expires_at, consumed, consumed_at, created_at`
	var t entity.ResetToken
	err := r.q.QueryRow(ctx, query, tokenHash, now).Scan(
		&t.TokenHash, &t.UserID, &t.ExpiresAt, &t.Consumed, &t.ConsumedAt, &t.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, storeErr("consume reset token", err)
	}
	return &t, nil
}

// DeleteExpired borra los tokens con expires_at <= before.
func (r *ResetTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.q.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, storeErr("delete expired reset tokens", err)
	}
	return cmd.RowsAffected(), nil
}

// Count total de tokens (consumidos incluidos).
func (r *ResetTokenRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM password_reset_tokens`).Scan(&n); err != nil {
		return 0, storeErr("count reset tokens", err)
	}
	return n, nil
}
