package auth

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/jhoicas/vigia-auth/internal/domain"
)

// bcryptMaxBytes bcrypt ignora lo que exceda 72 bytes.
const bcryptMaxBytes = 72

// PasswordPolicy reglas mínimas para una contraseña nueva.
type PasswordPolicy struct {
	MinLength     int // en caracteres
	MaxLength     int // en bytes
	RequireLetter bool
	RequireDigit  bool
}

// DefaultPasswordPolicy mínimo de 6 caracteres, como pide el formulario de cadastro.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 6, MaxLength: bcryptMaxBytes}
}

// Check devuelve un error que envuelve domain.ErrWeakPassword si password no cumple.
func (p PasswordPolicy) Check(password string) error {
	max := p.MaxLength
	if max <= 0 || max > bcryptMaxBytes {
		max = bcryptMaxBytes
	}
	if n := utf8.RuneCountInString(password); n < p.MinLength {
		return fmt.Errorf("%w: mínimo %d caracteres", domain.ErrWeakPassword, p.MinLength)
	}
	if len(password) > max {
		return fmt.Errorf("%w: máximo %d bytes", domain.ErrWeakPassword, max)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if p.RequireLetter && !hasLetter {
		return fmt.Errorf("%w: debe contener al menos una letra", domain.ErrWeakPassword)
	}
	if p.RequireDigit && !hasDigit {
		return fmt.Errorf("%w: debe contener al menos un número", domain.ErrWeakPassword)
	}
	return nil
}
