// Package stripe implementa la pasarela de pago sobre Stripe Checkout.
// Usa un client.API propio por instancia; nunca la clave global del SDK.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	appbilling "github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

var (
	_ appbilling.InvoiceCheckoutGateway = (*Gateway)(nil)
	_ appbilling.SubscriptionGateway    = (*Gateway)(nil)
)

// ErrProviderDown Stripe respondió 5xx.
var ErrProviderDown = errors.New("stripe no disponible")

// Config credenciales y URLs de retorno.
type Config struct {
	SecretKey  string
	ProPriceID string
	ClientURL  string // frontend; base de success_url y cancel_url
}

// Gateway crea clientes y sesiones de Checkout.
type Gateway struct {
	api *client.API
	cfg Config
	log *logger.Logger
}

// NewGateway inicializa el cliente de Stripe con la clave secreta.
func NewGateway(cfg Config, log *logger.Logger) *Gateway {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	if log == nil {
		log = logger.Nop()
	}
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")
	return &Gateway{api: sc, cfg: cfg, log: log.WithComponent("stripe")}
}

// CreateInvoiceCheckout abre una sesión en modo payment por el total de la factura.
func (g *Gateway) CreateInvoiceCheckout(ctx context.Context, req appbilling.InvoiceCheckout) (string, error) {
	params, err := invoiceCheckoutParams(req, g.cfg.ClientURL)
	if err != nil {
		return "", err
	}
	params.Context = ctx
	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", mapStripeError(err)
	}
	g.log.Info().Str("invoice_id", req.Invoice.ID).Str("session_id", session.ID).Msg("Sesión de pago de factura creada")
	return session.URL, nil
}

// CreateCustomer registra al usuario como cliente de Stripe.
func (g *Gateway) CreateCustomer(ctx context.Context, user *entity.User) (string, error) {
	params := &stripego.CustomerParams{
		Email: stripego.String(user.Email),
		Name:  stripego.String(user.Name),
	}
	params.AddMetadata("userId", user.ID)
	params.Context = ctx
	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", mapStripeError(err)
	}
	return customer.ID, nil
}

// CreateSubscriptionCheckout abre una sesión en modo subscription para el precio pro.
func (g *Gateway) CreateSubscriptionCheckout(ctx context.Context, customerID string) (string, error) {
	if g.cfg.ProPriceID == "" {
		return "", errors.New("STRIPE_PRO_PRICE_ID no configurado")
	}
	params := subscriptionCheckoutParams(customerID, g.cfg.ProPriceID, g.cfg.ClientURL)
	params.Context = ctx
	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", mapStripeError(err)
	}
	g.log.Info().Str("customer_id", customerID).Str("session_id", session.ID).Msg("Sesión de suscripción creada")
	return session.URL, nil
}

func subscriptionCheckoutParams(customerID, priceID, clientURL string) *stripego.CheckoutSessionParams {
	return &stripego.CheckoutSessionParams{
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		Mode:               stripego.String(string(stripego.CheckoutSessionModeSubscription)),
		Customer:           stripego.String(customerID),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{Price: stripego.String(priceID), Quantity: stripego.Int64(1)},
		},
		SuccessURL: stripego.String(clientURL + "/invoices?subscription=success"),
		CancelURL:  stripego.String(clientURL + "/subscription?canceled=true"),
	}
}

// mapStripeError traduce errores del SDK sin filtrar tipos de stripe-go hacia la aplicación.
func mapStripeError(err error) error {
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %s", ErrProviderDown, stripeErr.Msg)
		}
		return fmt.Errorf("stripe %s: %s", stripeErr.Type, stripeErr.Msg)
	}
	return fmt.Errorf("stripe: %w", err)
}
