package postgres

import (
	"context"

	"github.com/jhoicas/vigia-auth/internal/domain"
	"github.com/jhoicas/vigia-auth/internal/domain/entity"
	"github.com/jhoicas/vigia-auth/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

const userColumns = `id, company_id, email, password_hash, full_name, whatsapp, temporary_password, password_version, is_admin, created_at, updated_at`

// UserRepo implementación del puerto UserRepository sobre PostgreSQL (usable con pool o tx).
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador de persistencia para usuarios. Pasar pool o tx (Querier).
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

// GetByEmail obtiene un usuario por su clave de email (entity.EmailKey).
func (r *UserRepo) GetByEmail(ctx context.Context, key string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email_key = $1`
	u, err := scanUser(r.q.QueryRow(ctx, query, key))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, storeErr("get user by email", err)
	}
	return u, nil
}

// GetByID obtiene un usuario por ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, storeErr("get user by id", err)
	}
	return u, nil
}

// Put inserta o actualiza por id. El índice único de email_key resuelve las carreras.
func (r *UserRepo) Put(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (` + userColumns + `, email_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			company_id         = EXCLUDED.company_id,
			email              = EXCLUDED.email,
			email_key          = EXCLUDED.email_key,
			password_hash      = EXCLUDED.password_hash,
			full_name          = EXCLUDED.full_name,
			whatsapp           = EXCLUDED.whatsapp,
			temporary_password = EXCLUDED.temporary_password,
			password_version   = EXCLUDED.password_version,
			is_admin           = EXCLUDED.is_admin,
			updated_at         = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		user.ID, user.CompanyID, user.Email, user.PasswordHash, user.FullName, user.WhatsApp,
		user.TemporaryPassword, user.PasswordVersion, user.IsAdmin, user.CreatedAt, user.UpdatedAt, user.EmailKey(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound // empresa inexistente
		}
		return storeErr("put user", err)
	}
	return nil
}

// ExistsByEmail informa si la clave de email ya está tomada.
func (r *UserRepo) ExistsByEmail(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email_key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, storeErr("exists user by email", err)
	}
	return exists, nil
}

// Count total de usuarios.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, storeErr("count users", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	var u entity.User
	err := row.Scan(
		&u.ID, &u.CompanyID, &u.Email, &u.PasswordHash, &u.FullName, &u.WhatsApp,
		&u.TemporaryPassword, &u.PasswordVersion, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
