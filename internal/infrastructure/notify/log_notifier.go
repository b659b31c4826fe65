package notify

import (
	"context"

	appbilling "github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

var (
	_ appbilling.InvoiceMailer = (*LogNotifier)(nil)
	_ appbilling.InvoiceTexter = (*LogNotifier)(nil)
)

// LogNotifier solo registra los envíos. Se usa en desarrollo cuando faltan las API keys.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier construye el notificador de desarrollo.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &LogNotifier{log: log.WithComponent("notify_dev")}
}

func (n *LogNotifier) SendInvoice(_ context.Context, msg appbilling.InvoiceEmail) error {
	n.log.Info().Str("to", msg.To).Str("invoice_id", msg.Invoice.ID).Int("pdf_bytes", len(msg.PDF)).
		Msg("Email de factura (no enviado, modo desarrollo)")
	return nil
}

func (n *LogNotifier) SendInvoiceReminder(_ context.Context, to, clientName string, invoice *entity.Invoice) error {
	n.log.Info().Str("to", to).Str("invoice_id", invoice.ID).Str("body", reminderText(invoice, clientName)).
		Msg("SMS de recordatorio (no enviado, modo desarrollo)")
	return nil
}
