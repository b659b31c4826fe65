package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus estado de la factura.
type InvoiceStatus string

// Estados de la factura. Overdue solo se deriva para mostrar; el núcleo nunca lo escribe.
const (
	InvoiceStatusDraft   InvoiceStatus = "Draft"
	InvoiceStatusSent    InvoiceStatus = "Sent"
	InvoiceStatusPaid    InvoiceStatus = "Paid"
	InvoiceStatusOverdue InvoiceStatus = "Overdue"
)

// Valid indica si el estado es uno de los conocidos.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// LineItem una línea facturable.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Section     string // opcional: "Service", "Product", ...
}

// Amount cantidad × tarifa.
func (li LineItem) Amount() decimal.Decimal {
	return li.Quantity.Mul(li.Rate)
}

// Invoice representa una factura. SubTotal, TaxAmount y Total siempre los calcula el servidor.
type Invoice struct {
	ID               string
	UserID           string
	ClientID         string
	Number           string // único global
	Items            []LineItem
	SubTotal         decimal.Decimal
	TaxRate          decimal.Decimal // porcentaje 0..100
	TaxAmount        decimal.Decimal
	Total            decimal.Decimal
	Currency         string // ISO 4217
	Status           InvoiceStatus
	IssueDate        time.Time
	DueDate          time.Time
	Notes            string
	PaymentReference string // sesión de checkout que la pagó
	PaidAt           *time.Time
	Version          int64 // revisión para concurrencia optimista
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DisplayStatus deriva Overdue a partir del vencimiento sin modificar el estado guardado.
func (i *Invoice) DisplayStatus(now time.Time) InvoiceStatus {
	if (i.Status == InvoiceStatusDraft || i.Status == InvoiceStatusSent) &&
		!i.DueDate.IsZero() && i.DueDate.Before(now) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

// Clone copia profunda (los stores no comparten slices con quien llama).
func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}
	out := *i
	out.Items = append([]LineItem(nil), i.Items...)
	if i.PaidAt != nil {
		t := *i.PaidAt
		out.PaidAt = &t
	}
	return &out
}

// InvoiceWithClient factura con su cliente poblado (resumen en listados, completo en detalle).
// Client es nil si el cliente fue eliminado.
type InvoiceWithClient struct {
	Invoice *Invoice
	Client  *Client
}
