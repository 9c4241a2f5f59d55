package memory

import (
	"context"
	"time"

	"github.com/jhoicas/vigia-auth/internal/domain"
	"github.com/jhoicas/vigia-auth/internal/domain/entity"
	"github.com/jhoicas/vigia-auth/internal/domain/repository"
)

var (
	_ repository.UserRepository       = (*UserRepo)(nil)
	_ repository.CompanyRepository    = (*CompanyRepo)(nil)
	_ repository.ResetTokenRepository = (*ResetTokenRepo)(nil)
)

// UserRepo credential store en memoria. tx != nil cuando vive dentro de RunAuth.
type UserRepo struct {
	store *Store
	tx    *snapshot
}

func (r *UserRepo) GetByEmail(ctx context.Context, key string) (*entity.User, error) {
	var out *entity.User
	err := r.store.view(ctx, r.tx, func(s *snapshot) error {
		if id, ok := s.emails[key]; ok {
			u := s.users[id]
			out = &u
		}
		return nil
	})
	return out, err
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.store.view(ctx, r.tx, func(s *snapshot) error {
		if u, ok := s.users[id]; ok {
			out = &u
		}
		return nil
	})
	return out, err
}

// Put inserta o actualiza. Si el email cambia se libera la clave anterior.
func (r *UserRepo) Put(ctx context.Context, user *entity.User) error {
	key := user.EmailKey()
	return r.store.view(ctx, r.tx, func(s *snapshot) error {
		if owner, ok := s.emails[key]; ok && owner != user.ID {
			return domain.ErrConflict
		}
		if prev, ok := s.users[user.ID]; ok {
			if prevKey := prev.EmailKey(); prevKey != key {
				delete(s.emails, prevKey)
			}
		}
		s.users[user.ID] = *user
		s.emails[key] = user.ID
		return nil
	})
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := r.store.view(ctx, r.tx, func(s *snapshot) error {
		_, ok = s.emails[key]
		return nil
	})
	return ok, err
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.store.view(ctx, r.tx, func(s *snapshot) error {
		n = len(s.users)
		return nil
	})
	return n, err
}

// CompanyRepo company registry en memoria.
type CompanyRepo struct {
	store *Store
	tx    *snapshot
}

func (r *CompanyRepo) GetByCNPJ(ctx context.Context, cnpj string) (*entity.Company, error) {
	var out *entity.Company
	err := r.store.view(ctx, r.tx, func(s *snapshot) error {
		if id, ok := s.cnpjs[cnpj]; ok {
			c := s.companies[id]
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	var out *entity.Company
	err := r.store.view(ctx, r.tx, func(s *snapshot) error {
		if c, ok := s.companies[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *CompanyRepo) Put(ctx context.Context, company *entity.Company) error {
	return r.store.view(ctx, r.tx, func(s *snapshot) error {
		if owner, ok := s.cnpjs[company.CNPJ]; ok && owner != company.ID {
			return domain.ErrConflict
		}
		if prev, ok := s.companies[company.ID]; ok && prev.CNPJ != company.CNPJ {
			delete(s.cnpjs, prev.CNPJ)
		}
		s.companies[company.ID] = *company
		s.cnpjs[company.CNPJ] = company.ID
		return nil
	})
}

func (r *CompanyRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.store.view(ctx, r.tx, func(s *snapshot) error {
		n = len(s.companies)
		return nil
	})
	return n, err
}

// ResetTokenRepo tokens de redefinición en memoria, indexados por huella.
type ResetTokenRepo struct {
	store *Store
	tx    *snapshot
}

func (r *ResetTokenRepo) Create(ctx context.Context, token *entity.ResetToken) error {
	return r.store.view(ctx, r.tx, func(s *snapshot) error {
		if _, ok := s.tokens[token.TokenHash]; ok {
			return domain.ErrConflict
		}
		if _, ok := s.users[token.UserID]; !ok {
			return domain.ErrNotFound
		}
		s.tokens[token.TokenHash] = *token
		return nil
	})
}

// Consume check-and-set bajo el mismo lock: el segundo llamador ve Consumed=true.
func (r *ResetTokenRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (*entity.ResetToken, error) {
	var out *entity.ResetToken
	err := r.store.view(ctx, r.tx, func(s *snapshot) error {
		t, ok := s.tokens[tokenHash]
		if !ok || !t.UsableAt(now) {
			return domain.ErrInvalidOrExpiredToken
		}
		at := now
		t.Consumed = true
		t.ConsumedAt = &at
		s.tokens[tokenHash] = t
		out = &t
		return nil
	})
	return out, err
}

func (r *ResetTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.store.view(ctx, r.tx, func(s *snapshot) error {
		for k, t := range s.tokens {
			if !t.ExpiresAt.After(before) {
				delete(s.tokens, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *ResetTokenRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.store.view(ctx, r.tx, func(s *snapshot) error {
		n = len(s.tokens)
		return nil
	})
	return n, err
}
