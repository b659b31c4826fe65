package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/pkg/jwt"
)

// Locals keys para UserID y Actor en Fiber.
const (
	LocalUserID = "user_id"
	LocalActor  = "actor"
)

// HeaderAuthToken cabecera que envía el frontend además de Authorization.
const HeaderAuthToken = "x-auth-token"

// AuthMiddleware valida el JWT (Bearer Token o x-auth-token) y guarda el UserID en c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, errResp := extractToken(c)
		if errResp != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(errResp)
		}
		userID, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) (string, *dto.ErrorResponse) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", &dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"}
		}
		token := strings.TrimSpace(parts[1])
		if token == "" {
			return "", &dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"}
		}
		return token, nil
	}
	if token := strings.TrimSpace(c.Get(HeaderAuthToken)); token != "" {
		return token, nil
	}
	return "", &dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "no hay token, autorización denegada"}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	v := c.Locals(LocalUserID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
