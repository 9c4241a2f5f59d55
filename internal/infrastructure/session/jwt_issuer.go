// Package session emite los JWT de sesión y de rotación de contraseña.
package session

import (
	"github.com/jhoicas/vigia-auth/internal/domain/entity"
	"github.com/jhoicas/vigia-auth/pkg/jwt"
)

// Config parámetros de firma.
type Config struct {
	Secret          string
	Issuer          string
	ExpMinutes      int
	RotationMinutes int
}

// JWTIssuer implementa auth.SessionIssuer con HS256.
type JWTIssuer struct {
	cfg Config
}

// NewJWTIssuer construye el emisor.
func NewJWTIssuer(cfg Config) *JWTIssuer {
	if cfg.ExpMinutes <= 0 {
		cfg.ExpMinutes = 60
	}
	if cfg.RotationMinutes <= 0 {
		cfg.RotationMinutes = 10
	}
	return &JWTIssuer{cfg: cfg}
}

// IssueSession token de sesión con el rol del usuario.
func (i *JWTIssuer) IssueSession(user *entity.User) (string, error) {
	return jwt.Generate(i.cfg.Secret, user.ID, user.CompanyID, user.Role(), i.cfg.Issuer, user.PasswordVersion, i.cfg.ExpMinutes)
}

// IssueRotation token que solo habilita el cambio de contraseña.
func (i *JWTIssuer) IssueRotation(user *entity.User) (string, error) {
	return jwt.GenerateRotation(i.cfg.Secret, user.ID, user.CompanyID, i.cfg.Issuer, user.PasswordVersion, i.cfg.RotationMinutes)
}
