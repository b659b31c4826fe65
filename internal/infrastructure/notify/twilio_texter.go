package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	appbilling "github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

var _ appbilling.InvoiceTexter = (*TwilioTexter)(nil)

// TwilioConfig credenciales y número remitente.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// messageCreator subconjunto del cliente de Twilio que se usa.
type messageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// TwilioTexter implementa InvoiceTexter con la API de mensajes de Twilio.
type TwilioTexter struct {
	api  messageCreator
	from string
	log  *logger.Logger
}

// NewTwilioTexter construye el texter.
func NewTwilioTexter(cfg TwilioConfig, log *logger.Logger) *TwilioTexter {
	if log == nil {
		log = logger.Nop()
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioTexter{api: client.Api, from: cfg.FromNumber, log: log.WithComponent("twilio")}
}

// SendInvoiceReminder envía el SMS. El SDK no acepta context: la llamada corre en una
// goroutine y se abandona si ctx vence.
func (t *TwilioTexter) SendInvoiceReminder(ctx context.Context, to, clientName string, invoice *entity.Invoice) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(reminderText(invoice, clientName))

	type result struct {
		msg *twilioapi.ApiV2010Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := t.api.CreateMessage(params)
		done <- result{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("twilio: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("twilio: %w", r.err)
		}
		sid := ""
		if r.msg != nil && r.msg.Sid != nil {
			sid = *r.msg.Sid
		}
		t.log.Info().Str("invoice_id", invoice.ID).Str("sid", sid).Msg("SMS de recordatorio enviado")
		return nil
	}
}
