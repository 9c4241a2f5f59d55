package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/vigia-auth/internal/application/dto"
	"github.com/jhoicas/vigia-auth/internal/domain"
)

// retryAfterSeconds sugerido al cliente cuando el almacenamiento está caído.
const retryAfterSeconds = "5"

var validate = validator.New(validator.WithRequiredStructEnabled())

// statusFor traduce un error de dominio a status HTTP.
func statusFor(err error) int {
	switch domain.ReasonCode(err) {
	case domain.CodeInvalidCredentials, domain.CodeSessionRevoked:
		return fiber.StatusUnauthorized
	case domain.CodeDuplicateEmail, domain.CodeDuplicateCNPJ, domain.CodeConflict:
		return fiber.StatusConflict
	case domain.CodeWeakPassword, domain.CodeInvalidOrExpiredToken, domain.CodeInvalidCNPJ, domain.CodeValidation:
		return fiber.StatusBadRequest
	case domain.CodeNotFound:
		return fiber.StatusNotFound
	case domain.CodeTooManyAttempts:
		return fiber.StatusTooManyRequests
	case domain.CodeStoreUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// messageFor mensaje para el usuario. Los errores internos no exponen detalles.
func messageFor(err error) string {
	switch domain.ReasonCode(err) {
	case domain.CodeInvalidCredentials:
		return domain.ErrInvalidCredentials.Error()
	case domain.CodeConflict:
		return "otro cadastro con los mismos datos terminó primero; intente de nuevo"
	case domain.CodeStoreUnavailable:
		return domain.ErrStoreUnavailable.Error()
	case domain.CodeInternal:
		return "error interno"
	default:
		return err.Error()
	}
}

// setRetryAfter agrega Retry-After si el error es transitorio.
func setRetryAfter(c *fiber.Ctx, err error) {
	if domain.IsRetryable(err) {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
	}
}

// errorJSON responde con dto.ErrorResponse.
func errorJSON(c *fiber.Ctx, err error) error {
	setRetryAfter(c, err)
	return c.Status(statusFor(err)).JSON(dto.ErrorResponse{Code: domain.ReasonCode(err), Message: messageFor(err)})
}

// resultJSON responde con dto.ResultResponse{Success:false}.
func resultJSON(c *fiber.Ctx, err error) error {
	setRetryAfter(c, err)
	return c.Status(statusFor(err)).JSON(dto.ResultResponse{Reason: domain.ReasonCode(err), Message: messageFor(err)})
}

// parseAndValidate lee el body JSON y aplica las reglas validate de in.
// Si falla ya respondió 400 y devuelve false.
func parseAndValidate(c *fiber.Ctx, in any) (bool, error) {
	if err := c.BodyParser(in); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate.Struct(in); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: domain.CodeValidation, Message: validationMessage(err)})
	}
	return true, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "entrada inválida"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " es requerido"
	case "eqfield":
		return fe.Field() + " no coincide con " + fe.Param()
	case "max":
		return fe.Field() + " supera el largo máximo (" + fe.Param() + ")"
	default:
		return fe.Field() + " inválido"
	}
}
