package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	appbilling "github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

var _ appbilling.PaymentEventParser = (*WebhookParser)(nil)

// WebhookParser verifica la cabecera Stripe-Signature y traduce el evento al dominio.
type WebhookParser struct {
	secret        string
	allowUnsigned bool
	log           *logger.Logger
}

// NewWebhookParser construye el parser. allowUnsigned solo aplica si secret está vacío
// (desarrollo local sin Stripe CLI); producción exige secret desde la configuración.
func NewWebhookParser(secret string, allowUnsigned bool, log *logger.Logger) *WebhookParser {
	if log == nil {
		log = logger.Nop()
	}
	return &WebhookParser{secret: secret, allowUnsigned: allowUnsigned, log: log.WithComponent("stripe_webhook")}
}

// ParseEvent verifica la firma y devuelve la variante de dominio del evento.
func (p *WebhookParser) ParseEvent(payload []byte, signature string) (entity.PaymentEvent, error) {
	var event stripego.Event
	switch {
	case p.secret != "":
		ev, err := webhook.ConstructEventWithOptions(payload, signature, p.secret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
		}
		event = ev
	case p.allowUnsigned:
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, domain.Invalid("payload de webhook ilegible: %v", err)
		}
		p.log.Warn().Str("event_id", event.ID).Msg("Webhook aceptado sin verificar firma (STRIPE_WEBHOOK_SECRET vacío)")
	default:
		return nil, fmt.Errorf("%w: STRIPE_WEBHOOK_SECRET no configurado", domain.ErrInvalidSignature)
	}
	return toPaymentEvent(event)
}

func toPaymentEvent(event stripego.Event) (entity.PaymentEvent, error) {
	eventType := string(event.Type)
	unhandled := entity.UnhandledPaymentEvent{ID: event.ID, Type: eventType}
	if event.Data == nil {
		return unhandled, nil
	}

	switch eventType {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var session stripego.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, domain.Invalid("checkout.session ilegible: %v", err)
		}
		return sessionEvent(event.ID, eventType, &session)

	case "customer.subscription.deleted":
		var sub stripego.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, domain.Invalid("subscription ilegible: %v", err)
		}
		if sub.ID == "" {
			return nil, errors.New("subscription sin id")
		}
		return entity.SubscriptionDeleted{ID: event.ID, SubscriptionID: sub.ID}, nil
	}
	return unhandled, nil
}

func sessionEvent(eventID, eventType string, session *stripego.CheckoutSession) (entity.PaymentEvent, error) {
	switch session.Mode {
	case stripego.CheckoutSessionModeSubscription:
		if session.Customer == nil || session.Subscription == nil {
			return nil, domain.Invalid("checkout de suscripción sin customer o subscription")
		}
		return entity.SubscriptionCheckoutCompleted{
			ID:                eventID,
			BillingCustomerID: session.Customer.ID,
			SubscriptionID:    session.Subscription.ID,
		}, nil

	case stripego.CheckoutSessionModePayment:
		invoiceID := session.Metadata[MetadataInvoiceID]
		if invoiceID == "" {
			invoiceID = session.ClientReferenceID
		}
		if invoiceID == "" {
			return entity.UnhandledPaymentEvent{ID: eventID, Type: eventType}, nil
		}
		return entity.InvoiceCheckoutCompleted{
			ID:        eventID,
			InvoiceID: invoiceID,
			SessionID: session.ID,
			Paid:      session.PaymentStatus == stripego.CheckoutSessionPaymentStatusPaid,
		}, nil
	}
	return entity.UnhandledPaymentEvent{ID: eventID, Type: eventType}, nil
}
