package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	appbilling "github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

var _ appbilling.InvoiceMailer = (*SendGridMailer)(nil)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SendGridConfig remitente verificado y API key.
type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
}

// SendGridMailer implementa InvoiceMailer con la API v3 de SendGrid.
type SendGridMailer struct {
	client *sendgrid.Client
	cfg    SendGridConfig
	log    *logger.Logger
}

// NewSendGridMailer construye el mailer.
func NewSendGridMailer(cfg SendGridConfig, log *logger.Logger) *SendGridMailer {
	if log == nil {
		log = logger.Nop()
	}
	return &SendGridMailer{
		client: sendgrid.NewSendClient(cfg.APIKey),
		cfg:    cfg,
		log:    log.WithComponent("sendgrid"),
	}
}

// SendInvoice envía la factura; un status >= 300 de SendGrid es error.
func (m *SendGridMailer) SendInvoice(ctx context.Context, msg appbilling.InvoiceEmail) error {
	email, err := m.build(msg)
	if err != nil {
		return err
	}
	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	m.log.Info().Str("invoice_id", msg.Invoice.ID).Int("status", resp.StatusCode).Bool("attachment", len(msg.PDF) > 0).
		Msg("Email de factura aceptado por SendGrid")
	return nil
}

func (m *SendGridMailer) build(msg appbilling.InvoiceEmail) (*mail.SGMailV3, error) {
	html, err := emailHTML(msg.Invoice, msg.ClientName)
	if err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}
	senderName := m.cfg.FromName
	if msg.Issuer != nil && msg.Issuer.Name != "" {
		senderName = msg.Issuer.Name
	}
	from := mail.NewEmail(senderName, m.cfg.From)
	to := mail.NewEmail(msg.ClientName, msg.To)
	email := mail.NewSingleEmail(from, emailSubject(msg.Invoice, senderName), to, emailText(msg.Invoice, msg.ClientName), html)
	if msg.Issuer != nil && msg.Issuer.Email != "" {
		email.SetReplyTo(mail.NewEmail(msg.Issuer.Name, msg.Issuer.Email))
	}

	if len(msg.PDF) > 0 {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(msg.PDF))
		att.SetType("application/pdf")
		att.SetFilename(fmt.Sprintf("invoice_%s.pdf", unsafeFilenameChars.ReplaceAllString(msg.Invoice.Number, "_")))
		att.SetDisposition("attachment")
		email.AddAttachment(att)
	}
	return email, nil
}
