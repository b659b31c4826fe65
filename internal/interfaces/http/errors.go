package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

// writeError traduce errores de dominio a HTTP. Lo desconocido se devuelve tal cual
// para que lo resuelva ErrorHandler.
func writeError(c *fiber.Ctx, err error) error {
	var quota *domain.QuotaExceededError
	if errors.As(err, &quota) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Code:         "QUOTA_EXCEEDED",
			Message:      "Límite diario del plan gratuito alcanzado. Pásate a Pro para facturas ilimitadas.",
			LimitReached: true,
			Limit:        quota.Limit,
			Count:        quota.Count,
		})
	}

	status, code := statusFor(err)
	if status == 0 {
		return err
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrMissingContactInfo):
		return fiber.StatusBadRequest, "MISSING_CONTACT_INFO"
	case errors.Is(err, domain.ErrInvalidSignature):
		return fiber.StatusBadRequest, "INVALID_SIGNATURE"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrDuplicateClient):
		return fiber.StatusConflict, "DUPLICATE_CLIENT"
	case errors.Is(err, domain.ErrDuplicateInvoiceNumber):
		return fiber.StatusConflict, "DUPLICATE_INVOICE_NUMBER"
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		return fiber.StatusConflict, "EMAIL_EXISTS"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrDeliveryFailed):
		return fiber.StatusBadGateway, "DELIVERY_FAILED"
	case errors.Is(err, domain.ErrGateway):
		return fiber.StatusBadGateway, "GATEWAY_ERROR"
	}
	return 0, ""
}

// ErrorHandler manejador de errores de Fiber: en producción oculta el detalle interno.
func ErrorHandler(production bool, log *logger.Logger) fiber.ErrorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(dto.ErrorResponse{Message: fe.Message})
		}
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("Error no controlado")
		msg := err.Error()
		if production {
			msg = "Error interno del servidor"
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: msg})
	}
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}
