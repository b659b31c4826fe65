package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/repository"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

// SubscriptionDeps dependencias del plan de suscripción y del webhook de pagos.
type SubscriptionDeps struct {
	Users          repository.UserRepository
	Invoices       repository.InvoiceRepository
	Gateway        SubscriptionGateway
	Events         PaymentEventParser
	Ledger         ProcessedEventLedger
	Log            *logger.Logger
	GatewayTimeout time.Duration
	Now            func() time.Time
}

// SubscriptionUseCase abre el checkout de pro y aplica los eventos de la pasarela.
type SubscriptionUseCase struct {
	users          repository.UserRepository
	invoices       repository.InvoiceRepository
	gateway        SubscriptionGateway
	events         PaymentEventParser
	ledger         ProcessedEventLedger
	log            *logger.Logger
	gatewayTimeout time.Duration
	now            func() time.Time
}

// NewSubscriptionUseCase construye el caso de uso.
func NewSubscriptionUseCase(d SubscriptionDeps) *SubscriptionUseCase {
	uc := &SubscriptionUseCase{
		users:          d.Users,
		invoices:       d.Invoices,
		gateway:        d.Gateway,
		events:         d.Events,
		ledger:         d.Ledger,
		log:            d.Log,
		gatewayTimeout: d.GatewayTimeout,
		now:            d.Now,
	}
	if uc.log == nil {
		uc.log = logger.Nop()
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	if uc.gatewayTimeout <= 0 {
		uc.gatewayTimeout = 15 * time.Second
	}
	return uc
}

// CreateCheckout crea el cliente en la pasarela la primera vez y abre la sesión de suscripción.
func (uc *SubscriptionUseCase) CreateCheckout(ctx context.Context, userID string) (string, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", domain.ErrUserNotFound
	}
	if user.Tier == entity.TierPro && user.SubscriptionID != "" {
		return "", fmt.Errorf("%w: ya tienes una suscripción activa", domain.ErrConflict)
	}

	gwCtx, cancel := context.WithTimeout(ctx, uc.gatewayTimeout)
	defer cancel()

	customerID := user.BillingCustomerID
	if customerID == "" {
		customerID, err = uc.gateway.CreateCustomer(gwCtx, user)
		if err != nil {
			uc.log.Error().Err(err).Str("user_id", userID).Msg("Fallo al crear el cliente en la pasarela")
			return "", fmt.Errorf("%w: %v", domain.ErrGateway, err)
		}
		if err := uc.users.SetBillingCustomerID(ctx, userID, customerID); err != nil {
			return "", err
		}
		uc.log.Info().Str("user_id", userID).Str("customer_id", customerID).Msg("Cliente de facturación creado")
	}

	url, err := uc.gateway.CreateSubscriptionCheckout(gwCtx, customerID)
	if err != nil {
		uc.log.Error().Err(err).Str("user_id", userID).Msg("Fallo al abrir el checkout de suscripción")
		return "", fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	return url, nil
}

// HandleWebhook verifica la firma del payload y aplica el evento.
func (uc *SubscriptionUseCase) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := uc.events.ParseEvent(payload, signature)
	if err != nil {
		return err
	}
	return uc.HandlePaymentEvent(ctx, event)
}

// HandlePaymentEvent aplica un evento ya verificado. Los eventos repetidos se ignoran;
// el id solo se registra cuando el evento se aplicó sin error, así un reintento de la
// pasarela vuelve a intentarlo.
func (uc *SubscriptionUseCase) HandlePaymentEvent(ctx context.Context, event entity.PaymentEvent) error {
	eventID := event.EventID()
	log := uc.log.With().Str("event_id", eventID).Logger()

	if uc.ledger != nil && eventID != "" {
		done, err := uc.ledger.Processed(ctx, eventID)
		if err != nil {
			log.Warn().Err(err).Msg("No se pudo consultar el registro de eventos, se procesa igual")
		} else if done {
			log.Debug().Msg("Evento ya procesado, se ignora")
			return nil
		}
	}

	var err error
	switch e := event.(type) {
	case entity.SubscriptionCheckoutCompleted:
		err = uc.activateSubscription(ctx, e)
	case entity.SubscriptionDeleted:
		err = uc.cancelSubscription(ctx, e)
	case entity.InvoiceCheckoutCompleted:
		err = uc.markInvoicePaid(ctx, e)
	case entity.UnhandledPaymentEvent:
		log.Info().Str("event_type", e.Type).Msg("Evento de pago sin manejador")
	default:
		log.Warn().Str("event_type", fmt.Sprintf("%T", event)).Msg("Variante de evento desconocida")
	}
	if err != nil {
		log.Error().Err(err).Msg("Fallo al aplicar el evento de pago")
		return err
	}

	if uc.ledger != nil && eventID != "" {
		if mErr := uc.ledger.MarkProcessed(ctx, eventID); mErr != nil {
			log.Warn().Err(mErr).Msg("No se pudo registrar el evento como procesado")
		}
	}
	return nil
}

func (uc *SubscriptionUseCase) activateSubscription(ctx context.Context, e entity.SubscriptionCheckoutCompleted) error {
	user, err := uc.users.GetByBillingCustomerID(ctx, e.BillingCustomerID)
	if err != nil {
		return err
	}
	if user == nil {
		uc.log.Warn().Str("event_id", e.ID).Str("customer_id", e.BillingCustomerID).
			Msg("Checkout de suscripción de un cliente desconocido")
		return nil
	}
	if err := uc.users.UpdateSubscription(ctx, user.ID, entity.TierPro, e.SubscriptionID); err != nil {
		return err
	}
	uc.log.Info().Str("user_id", user.ID).Str("subscription_id", e.SubscriptionID).Msg("Usuario actualizado a pro")
	return nil
}

func (uc *SubscriptionUseCase) cancelSubscription(ctx context.Context, e entity.SubscriptionDeleted) error {
	user, err := uc.users.GetBySubscriptionID(ctx, e.SubscriptionID)
	if err != nil {
		return err
	}
	if user == nil {
		uc.log.Warn().Str("event_id", e.ID).Str("subscription_id", e.SubscriptionID).
			Msg("Baja de una suscripción desconocida")
		return nil
	}
	if err := uc.users.UpdateSubscription(ctx, user.ID, entity.TierFree, ""); err != nil {
		return err
	}
	uc.log.Info().Str("user_id", user.ID).Msg("Suscripción cancelada, usuario vuelve a free")
	return nil
}

func (uc *SubscriptionUseCase) markInvoicePaid(ctx context.Context, e entity.InvoiceCheckoutCompleted) error {
	if !e.Paid {
		uc.log.Info().Str("event_id", e.ID).Str("invoice_id", e.InvoiceID).Msg("Pago de factura pendiente de liquidación")
		return nil
	}
	found, err := uc.invoices.MarkPaid(ctx, e.InvoiceID, e.SessionID, uc.now())
	if err != nil {
		return err
	}
	if !found {
		uc.log.Warn().Str("event_id", e.ID).Str("invoice_id", e.InvoiceID).Msg("Pago de una factura inexistente")
		return nil
	}
	uc.log.Info().Str("invoice_id", e.InvoiceID).Str("payment_reference", e.SessionID).Msg("Factura pagada")
	return nil
}

// SetTier cambio de plan manual (CLI de administración). Conserva la suscripción guardada.
func (uc *SubscriptionUseCase) SetTier(ctx context.Context, email string, tier entity.Tier) (*dto.UserResponse, error) {
	if !tier.Valid() {
		return nil, domain.Invalid("tier %q desconocido", tier)
	}
	user, err := uc.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if err := uc.users.UpdateSubscription(ctx, user.ID, tier, user.SubscriptionID); err != nil {
		return nil, err
	}
	uc.log.Info().Str("user_id", user.ID).Str("tier", string(tier)).Msg("Plan cambiado manualmente")
	user.Tier = tier
	return &dto.UserResponse{
		ID:                 user.ID,
		Name:               user.Name,
		Email:              user.Email,
		SubscriptionStatus: string(user.Tier),
		CreatedAt:          user.CreatedAt,
	}, nil
}
