package entity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Roles expuestos en la sesión.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User representa un usuario del sistema (pertenece a una Company).
type User struct {
	ID                string
	CompanyID         string
	Email             string // tal como se ingresó (recortado); destino de los correos
	PasswordHash      string // bcrypt, nunca plano
	FullName          string
	WhatsApp          string // solo dígitos
	TemporaryPassword bool   // true obliga a rotar la contraseña antes de abrir sesión
	PasswordVersion   int    // viaja en el JWT; cada cambio de contraseña invalida los tokens previos
	IsAdmin           bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Role devuelve el rol que se firma en el JWT.
func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// SetPassword reemplaza el hash y avanza PasswordVersion.
func (u *User) SetPassword(hash string, temporary bool, at time.Time) {
	u.PasswordHash = hash
	u.TemporaryPassword = temporary
	u.PasswordVersion++
	u.UpdatedAt = at
}

// EmailKey devuelve la clave de búsqueda y unicidad del usuario.
func (u *User) EmailKey() string { return EmailKey(u.Email) }

// NormalizeEmail solo recorta espacios. El buzón no se modifica:
// "Straße@x.de" y "strasse@x.de" son direcciones distintas para el servidor de correo.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// EmailKey aplica case folding Unicode sobre el email recortado,
// de modo que "A@X.com" y "a@x.com" son la misma cuenta.
// Sirve solo para buscar y garantizar unicidad; nunca como destino de envío.
// Un Caser no se comparte entre goroutines, por eso se crea en cada llamada.
func EmailKey(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// DigitsOnly descarta máscaras de entrada ("(11) 99999-0000" -> "11999990000").
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
