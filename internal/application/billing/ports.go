package billing

import (
	"context"

	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

// InvoiceEmail mensaje de envío de una factura por email.
type InvoiceEmail struct {
	To         string
	ClientName string
	Invoice    *entity.Invoice
	Issuer     *entity.User // puede ser nil
	PDF        []byte       // adjunto opcional
}

// InvoiceMailer entrega facturas por email (SendGrid en producción).
type InvoiceMailer interface {
	SendInvoice(ctx context.Context, msg InvoiceEmail) error
}

// InvoiceTexter envía recordatorios de pago por SMS (Twilio en producción).
type InvoiceTexter interface {
	SendInvoiceReminder(ctx context.Context, to, clientName string, invoice *entity.Invoice) error
}

// InvoiceCheckout datos para abrir una sesión de pago de una factura.
type InvoiceCheckout struct {
	Invoice       *entity.Invoice
	CustomerEmail string
}

// InvoiceCheckoutGateway abre sesiones de pago alojadas por la pasarela. Devuelve la URL.
type InvoiceCheckoutGateway interface {
	CreateInvoiceCheckout(ctx context.Context, req InvoiceCheckout) (string, error)
}

// SubscriptionGateway crea clientes y sesiones de suscripción en la pasarela.
type SubscriptionGateway interface {
	CreateCustomer(ctx context.Context, user *entity.User) (customerID string, err error)
	CreateSubscriptionCheckout(ctx context.Context, customerID string) (url string, err error)
}

// PaymentEventParser verifica la firma del webhook y traduce el payload a un evento de dominio.
type PaymentEventParser interface {
	ParseEvent(payload []byte, signature string) (entity.PaymentEvent, error)
}

// ProcessedEventLedger recuerda los eventos ya aplicados.
type ProcessedEventLedger interface {
	Processed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// InvoicePDFGenerator genera la representación PDF de la factura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, invoice *entity.Invoice, client *entity.Client, issuer *entity.User) ([]byte, error)
}
