package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vigia-auth/internal/domain"
	"github.com/jhoicas/vigia-auth/internal/domain/entity"
	"github.com/jhoicas/vigia-auth/internal/domain/repository"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/postgres"
)

var (
	userCols = []string{"id", "company_id", "email", "password_hash", "full_name", "whatsapp", "temporary_password", "password_version", "is_admin", "created_at", "updated_at"}
	ts       = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock
}

// ──────────────────────────────────────────────────────────────────────────────
// UserRepo
// ──────────────────────────────────────────────────────────────────────────────

func TestUserRepo_GetByEmail(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantNil   bool
		wantErr   error
	}{
		{
			name: "encontrado",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(userCols).
					AddRow("u1", "c1", "a@x.com", "hash", "Ana", "11999990000", true, 3, true, ts, ts)
				mock.ExpectQuery(`SELECT .* FROM users WHERE email_key = \$1`).
					WithArgs("a@x.com").
					WillReturnRows(rows)
			},
		},
		{
			name: "no existe",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .* FROM users WHERE email_key = \$1`).
					WithArgs("a@x.com").
					WillReturnError(pgx.ErrNoRows)
			},
			wantNil: true,
		},
		{
			name: "base caída",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .* FROM users WHERE email_key = \$1`).
					WithArgs("a@x.com").
					WillReturnError(errors.New("connection refused"))
			},
			wantNil: true,
			wantErr: domain.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setupMock(mock)

			u, err := postgres.NewUserRepository(mock).GetByEmail(context.Background(), "a@x.com")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "connection refused")
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, u)
			} else {
				require.NotNil(t, u)
				assert.Equal(t, "u1", u.ID)
				assert.True(t, u.TemporaryPassword)
				assert.Equal(t, 3, u.PasswordVersion)
				assert.True(t, u.IsAdmin)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepo_Put(t *testing.T) {
	user := &entity.User{ID: "u1", CompanyID: "c1", Email: "a@x.com", PasswordHash: "h", PasswordVersion: 2, CreatedAt: ts, UpdatedAt: ts}

	t.Run("upsert", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users .* ON CONFLICT \(id\) DO UPDATE`).
			WithArgs("u1", "c1", "a@x.com", "h", "", "", false, 2, false, ts, ts, "a@x.com").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, postgres.NewUserRepository(mock).Put(context.Background(), user))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("guarda email original y clave plegada", func(t *testing.T) {
		mock := newMock(t)
		u := *user
		u.Email = "Straße@x.de"
		mock.ExpectExec(`INSERT INTO users \(.*, email_key\)`).
			WithArgs("u1", "c1", "Straße@x.de", "h", "", "", false, 2, false, ts, ts, "strasse@x.de").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, postgres.NewUserRepository(mock).Put(context.Background(), &u))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email de otro usuario", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key_key"})

		err := postgres.NewUserRepository(mock).Put(context.Background(), user)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestUserRepo_ExistsByEmailYCount(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("a@x.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT count\(\*\) FROM users`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	repo := postgres.NewUserRepository(mock)
	ok, err := repo.ExistsByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ──────────────────────────────────────────────────────────────────────────────
// CompanyRepo
// ──────────────────────────────────────────────────────────────────────────────

func TestCompanyRepo_GetByCNPJ(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, name, cnpj, created_at, updated_at FROM companies WHERE cnpj = \$1`).
		WithArgs("11222333000181").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "cnpj", "created_at", "updated_at"}).
			AddRow("c1", "Vigia", "11222333000181", ts, ts))
	mock.ExpectQuery(`FROM companies WHERE cnpj = \$1`).
		WithArgs("11444777000161").
		WillReturnError(pgx.ErrNoRows)

	repo := postgres.NewCompanyRepository(mock)
	c, err := repo.GetByCNPJ(context.Background(), "11222333000181")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Vigia", c.Name)

	c, err = repo.GetByCNPJ(context.Background(), "11444777000161")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyRepo_PutCNPJDuplicado(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO companies`).
		WithArgs("c2", "Otra", "11222333000181", ts, ts).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "companies_cnpj_key"})

	err := postgres.NewCompanyRepository(mock).Put(context.Background(),
		&entity.Company{ID: "c2", Name: "Otra", CNPJ: "11222333000181", CreatedAt: ts, UpdatedAt: ts})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ──────────────────────────────────────────────────────────────────────────────
// ResetTokenRepo
// ──────────────────────────────────────────────────────────────────────────────

func TestResetTokenRepo_Consume(t *testing.T) {
	consumedAt := ts
	t.Run("vigente", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE password_reset_tokens\s+SET consumed = true`).
			WithArgs("h1", ts).
			WillReturnRows(pgxmock.NewRows([]string{"token_hash", "user_id", "expires_at", "consumed", "consumed_at", "created_at"}).
				AddRow("h1", "u1", ts.Add(time.Minute), true, &consumedAt, ts.Add(-time.Minute)))

		rt, err := postgres.NewResetTokenRepository(mock).Consume(context.Background(), "h1", ts)
		require.NoError(t, err)
		assert.Equal(t, "u1", rt.UserID)
		assert.True(t, rt.Consumed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("consumido o expirado", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE password_reset_tokens`).
			WithArgs("h1", ts).
			WillReturnError(pgx.ErrNoRows)

		_, err := postgres.NewResetTokenRepository(mock).Consume(context.Background(), "h1", ts)
		assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	})
}

func TestResetTokenRepo_CreateUsuarioInexistente(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO password_reset_tokens`).
		WithArgs("h1", "nadie", ts, ts).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})

	err := postgres.NewResetTokenRepository(mock).Create(context.Background(),
		&entity.ResetToken{TokenHash: "h1", UserID: "nadie", ExpiresAt: ts, CreatedAt: ts})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResetTokenRepo_DeleteExpired(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM password_reset_tokens WHERE expires_at <= \$1`).
		WithArgs(ts).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := postgres.NewResetTokenRepository(mock).DeleteExpired(context.Background(), ts)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ──────────────────────────────────────────────────────────────────────────────
// TxRunner
// ──────────────────────────────────────────────────────────────────────────────

func TestTxRunner_Commit(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO companies`).
		WithArgs("c1", "Vigia", "11222333000181", ts, ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	runner := postgres.NewTxRunner(mock)
	err := runner.RunAuth(context.Background(), func(_ repository.UserRepository, companies repository.CompanyRepository, _ repository.ResetTokenRepository) error {
		return companies.Put(context.Background(), &entity.Company{ID: "c1", Name: "Vigia", CNPJ: "11222333000181", CreatedAt: ts, UpdatedAt: ts})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_RollbackSiFnFalla(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := postgres.NewTxRunner(mock).RunAuth(context.Background(), func(repository.UserRepository, repository.CompanyRepository, repository.ResetTokenRepository) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_BeginFalla(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := postgres.NewTxRunner(mock).RunAuth(context.Background(), func(repository.UserRepository, repository.CompanyRepository, repository.ResetTokenRepository) error {
		t.Fatal("fn no debe ejecutarse")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.True(t, domain.IsRetryable(err))
}
