package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

// HeaderStripeSignature cabecera de firma de los webhooks.
const HeaderStripeSignature = "Stripe-Signature"

// SubscriptionHandler checkout del plan pro y webhook de la pasarela.
type SubscriptionHandler struct {
	uc  *billing.SubscriptionUseCase
	log *logger.Logger
}

// NewSubscriptionHandler construye el handler.
func NewSubscriptionHandler(uc *billing.SubscriptionUseCase, log *logger.Logger) *SubscriptionHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SubscriptionHandler{uc: uc, log: log}
}

// CreateCheckoutSession POST /api/subscription/create-checkout-session (protegido)
func (h *SubscriptionHandler) CreateCheckoutSession(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	url, err := h.uc.CreateCheckout(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.URLResponse{URL: url})
}

// Webhook godoc
// @Summary      Webhook de Stripe
// @Description  Público; la autenticidad se verifica con la cabecera Stripe-Signature.
// @Tags         subscription
// @Accept       json
// @Produce      json
// @Success      200  {object}  dto.WebhookAck
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/subscription/webhook [post]
func (h *SubscriptionHandler) Webhook(c *fiber.Ctx) error {
	err := h.uc.HandleWebhook(c.UserContext(), c.Body(), c.Get(HeaderStripeSignature))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) || errors.Is(err, domain.ErrInvalidInput) {
			h.log.Warn().Err(err).Msg("Webhook rechazado")
			return writeError(c, err)
		}
		return err
	}
	return c.JSON(dto.WebhookAck{Received: true})
}
