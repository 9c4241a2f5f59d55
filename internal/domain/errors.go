package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrInvalidCredentials    = errors.New("credenciales inválidas")
	ErrDuplicateEmail        = errors.New("el email ya está registrado")
	ErrDuplicateCNPJ         = errors.New("ya existe una empresa con ese CNPJ")
	ErrWeakPassword          = errors.New("la contraseña no cumple la política")
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrInvalidOrExpiredToken = errors.New("token inválido o expirado")
	ErrConflict              = errors.New("conflicto con el estado actual")
	ErrStoreUnavailable      = errors.New("almacenamiento no disponible")
	ErrInvalidCNPJ           = errors.New("CNPJ inválido")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrTooManyAttempts       = errors.New("demasiados intentos fallidos")
	ErrSessionRevoked        = errors.New("la sesión ya no es válida")
)

// Códigos estables que viajan al cliente. No cambian aunque cambie el mensaje.
const (
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeDuplicateEmail        = "DUPLICATE_EMAIL"
	CodeDuplicateCNPJ         = "DUPLICATE_CNPJ"
	CodeWeakPassword          = "WEAK_PASSWORD"
	CodeNotFound              = "NOT_FOUND"
	CodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	CodeConflict              = "CONFLICT"
	CodeStoreUnavailable      = "STORE_UNAVAILABLE"
	CodeInvalidCNPJ           = "INVALID_CNPJ"
	CodeValidation            = "VALIDATION"
	CodeTooManyAttempts       = "TOO_MANY_ATTEMPTS"
	CodeSessionRevoked        = "SESSION_REVOKED"
	CodeInternal              = "INTERNAL"
)

// El orden importa: ErrConflict va antes que los duplicados porque una carrera
// de registro envuelve ambos y debe reportarse como CONFLICT.
var reasonCodes = []struct {
	err  error
	code string
}{
	{ErrStoreUnavailable, CodeStoreUnavailable},
	{ErrConflict, CodeConflict},
	{ErrInvalidCredentials, CodeInvalidCredentials},
	{ErrDuplicateEmail, CodeDuplicateEmail},
	{ErrDuplicateCNPJ, CodeDuplicateCNPJ},
	{ErrWeakPassword, CodeWeakPassword},
	{ErrNotFound, CodeNotFound},
	{ErrInvalidOrExpiredToken, CodeInvalidOrExpiredToken},
	{ErrInvalidCNPJ, CodeInvalidCNPJ},
	{ErrInvalidInput, CodeValidation},
	{ErrTooManyAttempts, CodeTooManyAttempts},
	{ErrSessionRevoked, CodeSessionRevoked},
}

// ReasonCode devuelve el código estable para err, o INTERNAL si no es un error de dominio.
func ReasonCode(err error) string {
	if err == nil {
		return ""
	}
	for _, rc := range reasonCodes {
		if errors.Is(err, rc.err) {
			return rc.code
		}
	}
	return CodeInternal
}

// IsRetryable informa si el llamador puede reintentar con backoff.
// Solo las fallas transitorias de infraestructura lo son.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
