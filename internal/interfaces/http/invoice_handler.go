package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/application/dto"
)

// InvoiceHandler maneja las peticiones HTTP de facturas (protegido).
type InvoiceHandler struct {
	uc  *billing.InvoiceUseCase
	pdf *billing.PDFUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(uc *billing.InvoiceUseCase, pdf *billing.PDFUseCase) *InvoiceHandler {
	return &InvoiceHandler{uc: uc, pdf: pdf}
}

// Create godoc
// @Summary      Crear factura
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInvoiceRequest  true  "cliente, items, taxRate, dueDate"
// @Success      201   {object}  dto.InvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse  "límite del plan gratuito (limitReached)"
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/invoices [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	invoice, err := h.uc.Create(c.UserContext(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// List lista las facturas del usuario.
// GET /api/invoices
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.uc.List(c.UserContext(), actor.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}

// GetByID obtiene el detalle de una factura con su cliente.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	invoice, err := h.uc.Get(c.UserContext(), actor.UserID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(invoice)
}

// Update godoc
// @Summary      Editar factura
// @Description  Solo se aplican los campos del parche; los totales se recalculan en el servidor.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "id de la factura"
// @Param        body  body  dto.UpdateInvoiceRequest  true  "campos a cambiar"
// @Success      200   {object}  dto.InvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/invoices/{id} [put]
func (h *InvoiceHandler) Update(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.UpdateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	invoice, err := h.uc.Update(c.UserContext(), actor.UserID, c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(invoice)
}

// Delete DELETE /api/invoices/:id
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.uc.Delete(c.UserContext(), actor.UserID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Factura eliminada"})
}

// Send envía la factura por email.
// POST /api/invoices/:id/send
func (h *InvoiceHandler) Send(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.uc.Send(c.UserContext(), actor.UserID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Factura enviada por email"})
}

// SendSMS envía un recordatorio por SMS.
// POST /api/invoices/:id/send-sms
func (h *InvoiceHandler) SendSMS(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.uc.SendReminderSMS(c.UserContext(), actor.UserID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Recordatorio SMS enviado"})
}

// Pay abre el checkout de la factura y devuelve su URL.
// POST /api/invoices/:id/pay
func (h *InvoiceHandler) Pay(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	url, err := h.uc.InitiatePayment(c.UserContext(), actor.UserID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.URLResponse{URL: url})
}

// DownloadPDF godoc
// @Summary      Descargar PDF de la factura
// @Tags         invoices
// @Produce      application/pdf
// @Param        id   path  string  true  "id de la factura"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/pdf [get]
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	actor, ok := GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	pdfBytes, filename, err := h.pdf.DownloadInvoicePDF(c.UserContext(), actor.UserID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(pdfBytes)
}
