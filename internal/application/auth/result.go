package auth

import (
	"github.com/jhoicas/vigia-auth/internal/domain/entity"
)

// LoginOutcome es el estado terminal de un intento de login.
// Solo lo implementan Authenticated, PasswordRotationRequired y Rejected.
type LoginOutcome interface {
	Status() string
	loginOutcome()
}

// Authenticated credenciales correctas y contraseña definitiva.
type Authenticated struct {
	UserID    string
	CompanyID string
	IsAdmin   bool
	Session   string
}

// PasswordRotationRequired credenciales correctas pero la contraseña es temporal.
// RotationToken solo sirve para llamar a ChangePassword.
type PasswordRotationRequired struct {
	UserID        string
	RotationToken string
}

// Rejected intento fallido. Reason es domain.ErrInvalidCredentials o domain.ErrTooManyAttempts.
type Rejected struct {
	Reason error
}

// Valores de Status.
const (
	StatusAuthenticated            = "Authenticated"
	StatusPasswordRotationRequired = "PasswordRotationRequired"
	StatusRejected                 = "Rejected"
)

func (Authenticated) Status() string            { return StatusAuthenticated }
func (PasswordRotationRequired) Status() string { return StatusPasswordRotationRequired }
func (Rejected) Status() string                 { return StatusRejected }

func (Authenticated) loginOutcome()            {}
func (PasswordRotationRequired) loginOutcome() {}
func (Rejected) loginOutcome()                 {}

// RegisterInput datos del formulario de cadastro. La confirmación de contraseña
// se valida antes de llegar aquí.
type RegisterInput struct {
	FullName    string
	Email       string
	Password    string
	WhatsApp    string
	CompanyName string
	CNPJ        string
}

// RegisterResult identificadores creados por Register.
type RegisterResult struct {
	UserID    string
	CompanyID string
}

// UserView perfil de la sesión actual.
type UserView struct {
	User    *entity.User
	Company *entity.Company
}
