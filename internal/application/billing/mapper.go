package billing

import (
	"time"

	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

func toClientResponse(c *entity.Client) *dto.ClientResponse {
	if c == nil {
		return nil
	}
	out := &dto.ClientResponse{
		ID:      c.ID,
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
		Logo:    c.Logo,
	}
	if !c.CreatedAt.IsZero() {
		created := c.CreatedAt
		out.CreatedAt = &created
	}
	return out
}

func toLineItemDTOs(items []entity.LineItem) []dto.LineItemDTO {
	out := make([]dto.LineItemDTO, 0, len(items))
	for _, it := range items {
		amount := it.Amount()
		out = append(out, dto.LineItemDTO{
			Description: it.Description,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			Section:     it.Section,
			Amount:      &amount,
		})
	}
	return out
}

func toLineItems(items []dto.LineItemDTO) []entity.LineItem {
	out := make([]entity.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, entity.LineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			Section:     it.Section,
		})
	}
	return out
}

func toInvoiceResponse(inv *entity.Invoice, client *entity.Client, now time.Time) *dto.InvoiceResponse {
	return &dto.InvoiceResponse{
		ID:               inv.ID,
		InvoiceNumber:    inv.Number,
		ClientID:         inv.ClientID,
		Client:           toClientResponse(client),
		Items:            toLineItemDTOs(inv.Items),
		SubTotal:         inv.SubTotal,
		TaxRate:          inv.TaxRate,
		TaxAmount:        inv.TaxAmount,
		Total:            inv.Total,
		Currency:         inv.Currency,
		Status:           string(inv.Status),
		DisplayStatus:    string(inv.DisplayStatus(now)),
		IssueDate:        dto.Date{Time: inv.IssueDate},
		DueDate:          dto.Date{Time: inv.DueDate},
		Notes:            inv.Notes,
		PaymentReference: inv.PaymentReference,
		PaidAt:           inv.PaidAt,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
}
