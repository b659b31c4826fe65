package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItemDTO línea de factura. Amount solo va en respuestas.
type LineItemDTO struct {
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Rate        decimal.Decimal  `json:"rate"`
	Section     string           `json:"section,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

// CreateInvoiceRequest body para POST /api/invoices. Los totales nunca se leen del cliente.
type CreateInvoiceRequest struct {
	InvoiceNumber string           `json:"invoiceNumber"` // opcional; vacío = se genera
	Client        string           `json:"client"`
	Items         []LineItemDTO    `json:"items"`
	TaxRate       *decimal.Decimal `json:"taxRate,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	IssueDate     *Date            `json:"issueDate,omitempty"`
	DueDate       *Date            `json:"dueDate"`
	Notes         string           `json:"notes,omitempty"`
	Status        string           `json:"status,omitempty"`
}

// UpdateInvoiceRequest parche de PUT /api/invoices/:id. Solo estos campos llegan a persistencia;
// nil = no cambia.
type UpdateInvoiceRequest struct {
	InvoiceNumber *string          `json:"invoiceNumber,omitempty"`
	Client        *string          `json:"client,omitempty"`
	Items         *[]LineItemDTO   `json:"items,omitempty"`
	TaxRate       *decimal.Decimal `json:"taxRate,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	IssueDate     *Date            `json:"issueDate,omitempty"`
	DueDate       *Date            `json:"dueDate,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	Status        *string          `json:"status,omitempty"`
}

// InvoiceResponse factura en respuestas. Client es nil si el cliente fue eliminado;
// en listados solo lleva nombre y email.
type InvoiceResponse struct {
	ID               string          `json:"_id"`
	InvoiceNumber    string          `json:"invoiceNumber"`
	ClientID         string          `json:"clientId"`
	Client           *ClientResponse `json:"client"`
	Items            []LineItemDTO   `json:"items"`
	SubTotal         decimal.Decimal `json:"subTotal"`
	TaxRate          decimal.Decimal `json:"taxRate"`
	TaxAmount        decimal.Decimal `json:"taxAmount"`
	Total            decimal.Decimal `json:"total"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	DisplayStatus    string          `json:"displayStatus"` // Overdue derivado del vencimiento
	IssueDate        Date            `json:"issueDate"`
	DueDate          Date            `json:"dueDate"`
	Notes            string          `json:"notes,omitempty"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}
