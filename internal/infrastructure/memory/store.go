// Package memory implementa los repositorios de dominio en memoria.
// Sirve para desarrollo local (STORE_DRIVER=memory) y para los tests de los casos de uso.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/jhoicas/vigia-auth/internal/domain"
	"github.com/jhoicas/vigia-auth/internal/domain/entity"
	"github.com/jhoicas/vigia-auth/internal/domain/repository"
)

var _ repository.TxRunner = (*Store)(nil)

// Store agrupa usuarios, empresas y tokens detrás de un único mutex.
type Store struct {
	mu          sync.Mutex
	data        *snapshot
	unavailable atomic.Bool
}

type snapshot struct {
	users     map[string]entity.User // por id
	emails    map[string]string      // EmailKey -> user id
	companies map[string]entity.Company
	cnpjs     map[string]string // cnpj -> company id
	tokens    map[string]entity.ResetToken
}

func newSnapshot() *snapshot {
	return &snapshot{
		users:     make(map[string]entity.User),
		emails:    make(map[string]string),
		companies: make(map[string]entity.Company),
		cnpjs:     make(map[string]string),
		tokens:    make(map[string]entity.ResetToken),
	}
}

func (s *snapshot) clone() *snapshot {
	c := newSnapshot()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.companies {
		c.companies[k] = v
	}
	for k, v := range s.cnpjs {
		c.cnpjs[k] = v
	}
	for k, v := range s.tokens {
		if v.ConsumedAt != nil {
			at := *v.ConsumedAt
			v.ConsumedAt = &at
		}
		c.tokens[k] = v
	}
	return c
}

// New crea un store vacío.
func New() *Store {
	return &Store{data: newSnapshot()}
}

// SetUnavailable simula una caída del almacenamiento: toda operación devuelve domain.ErrStoreUnavailable.
func (s *Store) SetUnavailable(down bool) {
	s.unavailable.Store(down)
}

// Users repositorio de usuarios fuera de transacción.
func (s *Store) Users() *UserRepo { return &UserRepo{store: s} }

// Companies repositorio de empresas fuera de transacción.
func (s *Store) Companies() *CompanyRepo { return &CompanyRepo{store: s} }

// ResetTokens repositorio de tokens fuera de transacción.
func (s *Store) ResetTokens() *ResetTokenRepo { return &ResetTokenRepo{store: s} }

// RunAuth ejecuta fn sobre una copia del estado y la publica solo si fn no devuelve error.
// El mutex se mantiene durante todo fn: dentro de fn usar únicamente los repos recibidos.
func (s *Store) RunAuth(ctx context.Context, fn func(
	users repository.UserRepository,
	companies repository.CompanyRepository,
	tokens repository.ResetTokenRepository,
) error) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	err := fn(
		&UserRepo{store: s, tx: work},
		&CompanyRepo{store: s, tx: work},
		&ResetTokenRepo{store: s, tx: work},
	)
	if err != nil {
		return err
	}
	s.data = work
	return nil
}

// view ejecuta fn sobre tx si es una transacción o sobre el estado publicado con el mutex tomado.
func (s *Store) view(ctx context.Context, tx *snapshot, fn func(*snapshot) error) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return oops.Code(domain.CodeStoreUnavailable).In("memory").Wrap(fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err))
	}
	if s.unavailable.Load() {
		return oops.Code(domain.CodeStoreUnavailable).In("memory").Wrap(domain.ErrStoreUnavailable)
	}
	return nil
}
