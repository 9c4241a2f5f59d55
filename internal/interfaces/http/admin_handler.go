package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/vigia-auth/internal/application/auth"
	"github.com/jhoicas/vigia-auth/internal/application/dto"
	"github.com/jhoicas/vigia-auth/pkg/logger"
)

// AdminHandler operaciones de administradores de empresa.
type AdminHandler struct {
	svc *auth.Service
	log *logger.Logger
}

// NewAdminHandler construye el handler.
func NewAdminHandler(svc *auth.Service, log *logger.Logger) *AdminHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AdminHandler{svc: svc, log: log}
}

// IssueTemporaryPassword godoc
// @Summary      Emitir contraseña temporal
// @Description  Solo para usuarios de la misma empresa. El próximo login exigirá rotarla.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.TemporaryPasswordRequest  true  "email"
// @Success      200   {object}  dto.TemporaryPasswordResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/admin/users/temporary-password [post]
func (h *AdminHandler) IssueTemporaryPassword(c *fiber.Ctx) error {
	var in dto.TemporaryPasswordRequest
	if ok, err := parseAndValidate(c, &in); !ok {
		return err
	}
	plain, err := h.svc.IssueTemporaryPasswordInCompany(c.UserContext(), GetCompanyID(c), in.Email)
	if err != nil {
		if statusFor(err) >= fiber.StatusInternalServerError {
			logger.Err(h.log.Error(), err).Msg("emisión de contraseña temporal")
		}
		return errorJSON(c, err)
	}
	h.log.Info().Str("admin_id", GetUserID(c)).Msg("contraseña temporal emitida por admin")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(dto.TemporaryPasswordResponse{Email: in.Email, TemporaryPassword: plain})
}
