package postgres

import (
	"context"

	"github.com/jhoicas/vigia-auth/internal/domain"
	"github.com/jhoicas/vigia-auth/internal/domain/entity"
	"github.com/jhoicas/vigia-auth/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

// GetByCNPJ obtiene una empresa por CNPJ normalizado.
func (r *CompanyRepo) GetByCNPJ(ctx context.Context, cnpj string) (*entity.Company, error) {
	query := `SELECT id, name, cnpj, created_at, updated_at FROM companies WHERE cnpj = $1`
	var c entity.Company
	err := r.q.QueryRow(ctx, query, cnpj).Scan(&c.ID, &c.Name, &c.CNPJ, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, storeErr("get company by cnpj", err)
	}
	return &c, nil
}

// GetByID obtiene una empresa por ID.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	query := `SELECT id, name, cnpj, created_at, updated_at FROM companies WHERE id = $1`
	var c entity.Company
	err := r.q.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.CNPJ, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, storeErr("get company", err)
	}
	return &c, nil
}

// Put inserta o actualiza por id. Un CNPJ de otra empresa viola companies_cnpj_key.
func (r *CompanyRepo) Put(ctx context.Context, company *entity.Company) error {
	query := `
		INSERT INTO companies (id, name, cnpj, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name       = EXCLUDED.name,
			cnpj       = EXCLUDED.cnpj,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query, company.ID, company.Name, company.CNPJ, company.CreatedAt, company.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return storeErr("put company", err)
	}
	return nil
}

// Count total de empresas.
func (r *CompanyRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM companies`).Scan(&n); err != nil {
		return 0, storeErr("count companies", err)
	}
	return n, nil
}
