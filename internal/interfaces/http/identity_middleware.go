package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

// actorResolver es el contrato mínimo que necesita el middleware para resolver el plan.
// Lo implementa *auth.AuthUseCase.
type actorResolver interface {
	ResolveActor(ctx context.Context, userID string) (entity.Actor, error)
}

// IdentityMiddleware carga {userId, tier} del store en cada petición. Debe usarse DESPUÉS
// de AuthMiddleware (necesita LocalUserID).
//
// Comportamiento:
//   - 401 Unauthorized → el usuario del token ya no existe.
//   - 503 Service Unavailable → fallo de infraestructura al consultar el store.
func IdentityMiddleware(resolver actorResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "user_id no encontrado en el token",
			})
		}

		actor, err := resolver.ResolveActor(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
					Code:    "UNAUTHORIZED",
					Message: "el usuario del token no existe",
				})
			}
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "IDENTITY_CHECK_FAILED",
				Message: "no se pudo verificar el usuario, intente más tarde",
			})
		}

		c.Locals(LocalActor, actor)
		return c.Next()
	}
}

// GetActor devuelve el actor del contexto (después de IdentityMiddleware).
func GetActor(c *fiber.Ctx) (entity.Actor, bool) {
	actor, ok := c.Locals(LocalActor).(entity.Actor)
	return actor, ok && actor.UserID != ""
}
