package http

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/vigia-auth/internal/application/dto"
	"github.com/jhoicas/vigia-auth/internal/domain"
	"github.com/jhoicas/vigia-auth/pkg/jwt"
)

// Locals keys que deja AuthMiddleware en Fiber.
const (
	LocalUserID    = "user_id"
	LocalCompanyID = "company_id"
	LocalRole      = "role"
	LocalPurpose   = "token_purpose"
)

// SessionChecker confirma contra el store que el token no quedó revocado
// por un cambio de contraseña posterior. Lo implementa auth.Service.
type SessionChecker interface {
	CheckSession(ctx context.Context, userID string, passwordVersion int) error
}

// AuthMiddleware valida el Bearer Token JWT (firma HS256 y emisor) y extrae sus claims a c.Locals.
// Acepta tokens de sesión y de rotación; RequireSession restringe a los de sesión.
// Con sessions nil no se consulta el store.
func AuthMiddleware(jwtSecret, issuer string, sessions SessionChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, issuer, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		if sessions != nil {
			if err := sessions.CheckSession(c.UserContext(), claims.UserID, claims.PasswordVersion); err != nil {
				if errors.Is(err, domain.ErrSessionRevoked) {
					return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: domain.CodeSessionRevoked, Message: "la contraseña cambió; inicie sesión de nuevo"})
				}
				return errorJSON(c, err)
			}
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalCompanyID, claims.CompanyID)
		c.Locals(LocalRole, claims.Role)
		c.Locals(LocalPurpose, claims.Purpose)
		return c.Next()
	}
}

// RequireSession rechaza los tokens de rotación: solo sirven para cambiar la contraseña.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetPurpose(c) != jwt.PurposeSession {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "PASSWORD_ROTATION_REQUIRED", Message: "debe cambiar la contraseña temporal antes de continuar"})
		}
		return c.Next()
	}
}

// RequireRole permite el paso solo si el rol del token está en roles. Va después de AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no incluye rol"})
		}
		if _, ok := allowed[role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin permiso para este recurso"})
		}
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	return localString(c, LocalUserID)
}

// GetCompanyID devuelve el CompanyID del contexto (después del middleware de auth).
func GetCompanyID(c *fiber.Ctx) string {
	return localString(c, LocalCompanyID)
}

// GetRole devuelve el rol del token.
func GetRole(c *fiber.Ctx) string {
	return localString(c, LocalRole)
}

// GetPurpose devuelve el propósito del token (session o password_rotation).
func GetPurpose(c *fiber.Ctx) string {
	return localString(c, LocalPurpose)
}

func localString(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
