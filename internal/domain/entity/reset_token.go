package entity

import "time"

// ResetToken es una credencial de un solo uso para redefinir la contraseña.
// Solo se persiste la huella (SHA-256) del token; el token plano viaja por email.
type ResetToken struct {
	TokenHash  string
	UserID     string
	ExpiresAt  time.Time
	Consumed   bool
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// UsableAt informa si el token todavía puede consumirse en el instante now.
func (t *ResetToken) UsableAt(now time.Time) bool {
	return !t.Consumed && now.Before(t.ExpiresAt)
}
