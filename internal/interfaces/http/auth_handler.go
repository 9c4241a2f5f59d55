package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/vigia-auth/internal/application/auth"
	"github.com/jhoicas/vigia-auth/internal/application/dto"
	"github.com/jhoicas/vigia-auth/internal/domain"
	"github.com/jhoicas/vigia-auth/internal/infrastructure/metrics"
	"github.com/jhoicas/vigia-auth/pkg/logger"
)

// AuthHandler maneja login, cadastro, cambio y redefinición de contraseña.
type AuthHandler struct {
	svc     *auth.Service
	reset   *auth.ResetService
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewAuthHandler construye el handler de auth. log y m pueden ser nil.
func NewAuthHandler(svc *auth.Service, reset *auth.ResetService, log *logger.Logger, m *metrics.Metrics) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{svc: svc, reset: reset, log: log, metrics: m}
}

// Login godoc
// @Summary      Iniciar sesión
// @Description  Con contraseña temporal devuelve PasswordRotationRequired y un rotationToken que solo sirve para cambiarla.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  dto.LoginResponse
// @Failure      429   {object}  dto.LoginResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if ok, err := parseAndValidate(c, &in); !ok {
		return err
	}
	out, err := h.svc.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		logger.Err(h.log.Error(), err).Msg("login")
		return errorJSON(c, err)
	}

	switch o := out.(type) {
	case auth.Authenticated:
		h.metrics.ObserveLogin(o.Status(), "")
		return c.JSON(dto.LoginResponse{
			Status:    o.Status(),
			UserID:    o.UserID,
			CompanyID: o.CompanyID,
			IsAdmin:   o.IsAdmin,
			Token:     o.Session,
		})
	case auth.PasswordRotationRequired:
		h.metrics.ObserveLogin(o.Status(), "")
		return c.JSON(dto.LoginResponse{
			Status:        o.Status(),
			UserID:        o.UserID,
			RotationToken: o.RotationToken,
		})
	case auth.Rejected:
		reason := domain.ReasonCode(o.Reason)
		h.metrics.ObserveLogin(o.Status(), reason)
		return c.Status(statusFor(o.Reason)).JSON(dto.LoginResponse{Status: o.Status(), Reason: reason})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: domain.CodeInternal, Message: "resultado de login desconocido"})
	}
}

// ChangePassword godoc
// @Summary      Cambiar contraseña
// @Description  Acepta el token de sesión o el rotationToken del login; userId debe ser el del token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.ChangePasswordRequest  true  "userId, newPassword"
// @Success      200   {object}  dto.ResultResponse
// @Failure      400   {object}  dto.ResultResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ResultResponse
// @Router       /api/auth/password/change [post]
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var in dto.ChangePasswordRequest
	if ok, err := parseAndValidate(c, &in); !ok {
		return err
	}
	if in.UserID != GetUserID(c) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "solo puede cambiar su propia contraseña"})
	}
	if err := h.svc.ChangePassword(c.UserContext(), in.UserID, in.NewPassword); err != nil {
		if statusFor(err) >= fiber.StatusInternalServerError {
			logger.Err(h.log.Error(), err).Str("user_id", in.UserID).Msg("cambio de contraseña")
		}
		return resultJSON(c, err)
	}
	return c.JSON(dto.ResultResponse{Success: true, Message: "contraseña actualizada"})
}

// Register godoc
// @Summary      Cadastrar empresa y administrador
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterRequest  true  "datos del usuario y de la empresa"
// @Success      201   {object}  dto.RegisterResponse
// @Failure      400   {object}  dto.RegisterResponse
// @Failure      409   {object}  dto.RegisterResponse
// @Failure      503   {object}  dto.RegisterResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterRequest
	if ok, err := parseAndValidate(c, &in); !ok {
		return err
	}
	res, err := h.svc.Register(c.UserContext(), auth.RegisterInput{
		FullName:    in.FullName,
		Email:       in.Email,
		Password:    in.Password,
		WhatsApp:    in.WhatsApp,
		CompanyName: in.CompanyName,
		CNPJ:        in.CNPJ,
	})
	if err != nil {
		code := domain.ReasonCode(err)
		h.metrics.ObserveRegister(code)
		if statusFor(err) >= fiber.StatusInternalServerError {
			logger.Err(h.log.Error(), err).Msg("cadastro")
		}
		setRetryAfter(c, err)
		return c.Status(statusFor(err)).JSON(dto.RegisterResponse{Reason: code, Message: messageFor(err)})
	}
	h.metrics.ObserveRegister("OK")
	return c.Status(fiber.StatusCreated).JSON(dto.RegisterResponse{
		Success:   true,
		UserID:    res.UserID,
		CompanyID: res.CompanyID,
	})
}

// CNPJAvailability godoc
// @Summary      Consultar si un CNPJ está libre
// @Tags         auth
// @Produce      json
// @Param        cnpj  path  string  true  "CNPJ con o sin máscara"
// @Success      200   {object}  dto.CNPJAvailabilityResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/auth/cnpj/{cnpj} [get]
func (h *AuthHandler) CNPJAvailability(c *fiber.Ctx) error {
	raw := c.Params("cnpj")
	ok, err := h.svc.CNPJAvailable(c.UserContext(), raw)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(dto.CNPJAvailabilityResponse{CNPJ: raw, Available: ok})
}

// RequestReset godoc
// @Summary      Pedir redefinición de contraseña
// @Description  Responde accepted=true exista o no el email.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ResetRequest  true  "email"
// @Success      202   {object}  dto.ResetRequestResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/auth/password/reset/request [post]
func (h *AuthHandler) RequestReset(c *fiber.Ctx) error {
	var in dto.ResetRequest
	if ok, err := parseAndValidate(c, &in); !ok {
		return err
	}
	if err := h.reset.Issue(c.UserContext(), in.Email); err != nil {
		h.metrics.ObserveReset("request", domain.ReasonCode(err))
		logger.Err(h.log.Error(), err).Msg("pedido de redefinición")
		// Solo las fallas de infraestructura llegan aquí; no dependen del email.
		return errorJSON(c, err)
	}
	h.metrics.ObserveReset("request", "OK")
	return c.Status(fiber.StatusAccepted).JSON(dto.ResetRequestResponse{Accepted: true})
}

// ConsumeReset godoc
// @Summary      Redefinir contraseña con el token del email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ResetConsumeRequest  true  "token, newPassword"
// @Success      200   {object}  dto.ResultResponse
// @Failure      400   {object}  dto.ResultResponse
// @Failure      503   {object}  dto.ResultResponse
// @Router       /api/auth/password/reset/consume [post]
func (h *AuthHandler) ConsumeReset(c *fiber.Ctx) error {
	var in dto.ResetConsumeRequest
	if ok, err := parseAndValidate(c, &in); !ok {
		return err
	}
	if err := h.reset.Consume(c.UserContext(), in.Token, in.NewPassword); err != nil {
		h.metrics.ObserveReset("consume", domain.ReasonCode(err))
		if !errors.Is(err, domain.ErrInvalidOrExpiredToken) && !errors.Is(err, domain.ErrWeakPassword) {
			logger.Err(h.log.Error(), err).Msg("canje de token de redefinición")
		}
		return resultJSON(c, err)
	}
	h.metrics.ObserveReset("consume", "OK")
	return c.JSON(dto.ResultResponse{Success: true, Message: "contraseña redefinida"})
}

// Me godoc
// @Summary      Perfil de la sesión
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.MeResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	view, err := h.svc.Me(c.UserContext(), GetUserID(c))
	if err != nil {
		return errorJSON(c, err)
	}
	u := view.User
	out := dto.MeResponse{User: dto.UserResponse{
		ID:                u.ID,
		CompanyID:         u.CompanyID,
		Email:             u.Email,
		FullName:          u.FullName,
		WhatsApp:          u.WhatsApp,
		IsAdmin:           u.IsAdmin,
		TemporaryPassword: u.TemporaryPassword,
		CreatedAt:         u.CreatedAt,
	}}
	if co := view.Company; co != nil {
		out.Company = &dto.CompanyResponse{ID: co.ID, Name: co.Name, CNPJ: co.CNPJ, CreatedAt: co.CreatedAt}
	}
	return c.JSON(out)
}
