package dto

import "time"

// LoginRequest credenciales del formulario de acceso.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

// LoginResponse resultado del login. Status es Authenticated, PasswordRotationRequired o Rejected.
type LoginResponse struct {
	Status        string `json:"status"`
	UserID        string `json:"userId,omitempty"`
	CompanyID     string `json:"companyId,omitempty"`
	IsAdmin       bool   `json:"isAdmin,omitempty"`
	Token         string `json:"token,omitempty"`
	RotationToken string `json:"rotationToken,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// ChangePasswordRequest nueva contraseña del usuario autenticado (o en rotación).
type ChangePasswordRequest struct {
	UserID      string `json:"userId" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// RegisterRequest formulario de cadastro de empresa y primer administrador.
// PasswordConfirm es opcional; si llega debe coincidir.
type RegisterRequest struct {
	FullName        string `json:"fullName" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,max=254"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"omitempty,eqfield=Password"`
	WhatsApp        string `json:"whatsapp" validate:"omitempty,max=32"`
	CompanyName     string `json:"companyName" validate:"required,max=200"`
	CNPJ            string `json:"cnpj" validate:"required,max=18"`
}

// RegisterResponse resultado del cadastro.
type RegisterResponse struct {
	Success   bool   `json:"success"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
	UserID    string `json:"userId,omitempty"`
	CompanyID string `json:"companyId,omitempty"`
}

// CNPJAvailabilityResponse pre-chequeo del formulario de cadastro.
type CNPJAvailabilityResponse struct {
	CNPJ      string `json:"cnpj"`
	Available bool   `json:"available"`
}

// ResetRequest pedido de "esqueci minha senha".
type ResetRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

// ResetRequestResponse siempre accepted=true, exista o no el email.
type ResetRequestResponse struct {
	Accepted bool `json:"accepted"`
}

// ResetConsumeRequest canje del token recibido por email.
type ResetConsumeRequest struct {
	Token       string `json:"token" validate:"required,max=256"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// UserResponse salida de un usuario (sin hash).
type UserResponse struct {
	ID                string    `json:"id"`
	CompanyID         string    `json:"companyId"`
	Email             string    `json:"email"`
	FullName          string    `json:"fullName"`
	WhatsApp          string    `json:"whatsapp,omitempty"`
	IsAdmin           bool      `json:"isAdmin"`
	TemporaryPassword bool      `json:"temporaryPassword"`
	CreatedAt         time.Time `json:"createdAt"`
}

// CompanyResponse salida de una empresa.
type CompanyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CNPJ      string    `json:"cnpj"`
	CreatedAt time.Time `json:"createdAt"`
}

// MeResponse perfil de la sesión.
type MeResponse struct {
	User    UserResponse     `json:"user"`
	Company *CompanyResponse `json:"company,omitempty"`
}

// TemporaryPasswordRequest emisión de contraseña temporal por un admin.
type TemporaryPasswordRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

// TemporaryPasswordResponse la contraseña se muestra una sola vez.
type TemporaryPasswordResponse struct {
	Email             string `json:"email"`
	TemporaryPassword string `json:"temporaryPassword"`
}
