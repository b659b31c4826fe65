// Package notify entrega facturas por email (SendGrid) y recordatorios por SMS (Twilio).
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

const dueDateLayout = "Jan 2, 2006"

var invoiceEmailTemplate = template.Must(template.New("invoice_email").Parse(`<div style="font-family: Arial, sans-serif; color: #333;">
  <h2>Hello {{.ClientName}},</h2>
  <p>Here is your invoice <strong>#{{.Number}}</strong>.</p>
  <p><strong>Amount Due:</strong> {{.Currency}} {{.Total}}</p>
  <p><strong>Due Date:</strong> {{.DueDate}}</p>
  {{- if .Notes}}
  <p>{{.Notes}}</p>
  {{- end}}
  <br/>
  <p>Please make the payment by the due date.</p>
  <p>Thank you for your business!</p>
</div>`))

type invoiceEmailData struct {
	ClientName string
	Number     string
	Currency   string
	Total      string
	DueDate    string
	Notes      string
}

func emailSubject(inv *entity.Invoice, senderName string) string {
	return fmt.Sprintf("Invoice #%s from %s", inv.Number, senderName)
}

// emailHTML cuerpo HTML; html/template escapa nombre y notas del cliente.
func emailHTML(inv *entity.Invoice, clientName string) (string, error) {
	var buf bytes.Buffer
	err := invoiceEmailTemplate.Execute(&buf, invoiceEmailData{
		ClientName: clientName,
		Number:     inv.Number,
		Currency:   inv.Currency,
		Total:      inv.Total.StringFixed(2),
		DueDate:    formatDueDate(inv.DueDate),
		Notes:      inv.Notes,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func emailText(inv *entity.Invoice, clientName string) string {
	return fmt.Sprintf("Hello %s,\n\nHere is your invoice #%s.\nAmount Due: %s %s\nDue Date: %s\n\nThank you for your business!",
		clientName, inv.Number, inv.Currency, inv.Total.StringFixed(2), formatDueDate(inv.DueDate))
}

func reminderText(inv *entity.Invoice, clientName string) string {
	return fmt.Sprintf("Hello %s, Invoice #%s for %s %s is due on %s. Thank you!",
		clientName, inv.Number, inv.Currency, inv.Total.StringFixed(2), formatDueDate(inv.DueDate))
}

func formatDueDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dueDateLayout)
}
