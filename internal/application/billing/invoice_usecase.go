package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/money"
	"github.com/jhoicas/invoicely-api/internal/domain/plan"
	"github.com/jhoicas/invoicely-api/internal/domain/repository"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

// maxUpdateAttempts reintentos de la lectura-modificación-escritura ante ErrConflict.
const maxUpdateAttempts = 3

// InvoiceDeps dependencias del ciclo de vida de facturas. Now y GatewayTimeout son opcionales.
type InvoiceDeps struct {
	Invoices       repository.InvoiceRepository
	Clients        repository.ClientRepository
	Users          repository.UserRepository
	Policy         plan.Policy
	Mailer         InvoiceMailer
	Texter         InvoiceTexter
	Checkout       InvoiceCheckoutGateway
	PDF            InvoicePDFGenerator
	Log            *logger.Logger
	GatewayTimeout time.Duration
	Now            func() time.Time
}

// InvoiceUseCase crea, edita, envía y cobra facturas.
type InvoiceUseCase struct {
	invoices       repository.InvoiceRepository
	clients        repository.ClientRepository
	users          repository.UserRepository
	policy         plan.Policy
	mailer         InvoiceMailer
	texter         InvoiceTexter
	checkout       InvoiceCheckoutGateway
	pdf            InvoicePDFGenerator
	log            *logger.Logger
	gatewayTimeout time.Duration
	now            func() time.Time
	quotaLocks     userLocks
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(d InvoiceDeps) *InvoiceUseCase {
	uc := &InvoiceUseCase{
		invoices:       d.Invoices,
		clients:        d.Clients,
		users:          d.Users,
		policy:         d.Policy,
		mailer:         d.Mailer,
		texter:         d.Texter,
		checkout:       d.Checkout,
		pdf:            d.PDF,
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
	if uc.policy.FreeDailyInvoices <= 0 {
		uc.policy = plan.NewPolicy(0)
	}
	return uc
}

// Create crea una factura:
//  1. cuota diaria del plan gratuito (pro no cuenta),
//  2. el cliente debe ser del usuario,
//  3. totales calculados en el servidor,
//  4. persistencia; el número de factura es único global.
func (uc *InvoiceUseCase) Create(ctx context.Context, actor entity.Actor, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if actor.Tier != entity.TierPro {
		defer uc.quotaLocks.lock(actor.UserID)()
	}
	now := uc.now()

	if actor.Tier != entity.TierPro {
		count, err := uc.invoices.CountByUserSince(ctx, actor.UserID, plan.StartOfDay(now))
		if err != nil {
			return nil, fmt.Errorf("contar facturas de hoy: %w", err)
		}
		if err := uc.policy.Check(actor.Tier, count); err != nil {
			return nil, err
		}
	}

	clientID := strings.TrimSpace(in.Client)
	if clientID == "" {
		return nil, domain.Invalid("client es obligatorio")
	}
	client, err := uc.clients.GetByID(ctx, actor.UserID, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrClientNotFound
	}

	if in.DueDate == nil || in.DueDate.IsZero() {
		return nil, domain.Invalid("dueDate es obligatorio")
	}
	taxRate := decimal.Zero
	if in.TaxRate != nil {
		taxRate = *in.TaxRate
	}
	items := toLineItems(in.Items)
	totals, err := money.Compute(items, taxRate)
	if err != nil {
		return nil, err
	}
	currency, err := money.NormalizeCurrency(in.Currency)
	if err != nil {
		return nil, err
	}
	status := entity.InvoiceStatusDraft
	if in.Status != "" {
		status = entity.InvoiceStatus(in.Status)
		if !status.Valid() {
			return nil, domain.Invalid("status %q desconocido", in.Status)
		}
	}
	issueDate := now
	if in.IssueDate != nil && !in.IssueDate.IsZero() {
		issueDate = in.IssueDate.Time
	}
	number := strings.TrimSpace(in.InvoiceNumber)
	if number == "" {
		number = generateInvoiceNumber(now)
	}

	inv := &entity.Invoice{
		ID:        uuid.New().String(),
		UserID:    actor.UserID,
		ClientID:  client.ID,
		Number:    number,
		Items:     items,
		SubTotal:  totals.SubTotal,
		TaxRate:   taxRate,
		TaxAmount: totals.TaxAmount,
		Total:     totals.Total,
		Currency:  currency,
		Status:    status,
		IssueDate: issueDate,
		DueDate:   in.DueDate.Time,
		Notes:     in.Notes,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == entity.InvoiceStatusPaid {
		inv.PaidAt = &now
	}
	if err := uc.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	uc.log.Info().Str("user_id", actor.UserID).Str("invoice_id", inv.ID).Str("invoice_number", inv.Number).
		Msg("Factura creada")
	return toInvoiceResponse(inv, client, now), nil
}

// List lista las facturas del usuario con nombre y email del cliente.
func (uc *InvoiceUseCase) List(ctx context.Context, userID string) ([]*dto.InvoiceResponse, error) {
	list, err := uc.invoices.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	out := make([]*dto.InvoiceResponse, 0, len(list))
	for _, item := range list {
		out = append(out, toInvoiceResponse(item.Invoice, item.Client, now))
	}
	return out, nil
}

// Get obtiene una factura del usuario con el cliente completo.
func (uc *InvoiceUseCase) Get(ctx context.Context, userID, id string) (*dto.InvoiceResponse, error) {
	found, err := uc.getWithClient(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(found.Invoice, found.Client, uc.now()), nil
}

// Update aplica el parche. Si cambian items o taxRate se recalculan los totales con la tasa
// efectiva (la del parche o la guardada). Concurrencia optimista: ante ErrConflict se relee
// y se reintenta.
func (uc *InvoiceUseCase) Update(ctx context.Context, userID, id string, patch dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	var client *entity.Client
	if patch.Client != nil {
		c, err := uc.clients.GetByID(ctx, userID, strings.TrimSpace(*patch.Client))
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, domain.ErrClientNotFound
		}
		client = c
	}

	for attempt := 1; ; attempt++ {
		inv, err := uc.invoices.GetByID(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if inv == nil {
			return nil, domain.ErrNotFound
		}
		if err := uc.applyPatch(inv, patch, client); err != nil {
			return nil, err
		}
		err = uc.invoices.Update(ctx, inv)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= maxUpdateAttempts {
			return nil, err
		}
		uc.log.Debug().Str("invoice_id", id).Int("attempt", attempt).Msg("Conflicto de versión, reintentando")
	}
	return uc.Get(ctx, userID, id)
}

// applyPatch copia al invoice solo los campos permitidos del parche.
func (uc *InvoiceUseCase) applyPatch(inv *entity.Invoice, patch dto.UpdateInvoiceRequest, client *entity.Client) error {
	if patch.InvoiceNumber != nil {
		number := strings.TrimSpace(*patch.InvoiceNumber)
		if number == "" {
			return domain.Invalid("invoiceNumber no puede quedar vacío")
		}
		inv.Number = number
	}
	if client != nil {
		inv.ClientID = client.ID
	}
	if patch.Items != nil || patch.TaxRate != nil {
		items := inv.Items
		if patch.Items != nil {
			items = toLineItems(*patch.Items)
		}
		rate := inv.TaxRate
		if patch.TaxRate != nil {
			rate = *patch.TaxRate
		}
		totals, err := money.Compute(items, rate)
		if err != nil {
			return err
		}
		inv.Items = items
		inv.TaxRate = rate
		inv.SubTotal = totals.SubTotal
		inv.TaxAmount = totals.TaxAmount
		inv.Total = totals.Total
	}
	if patch.Currency != nil {
		currency, err := money.NormalizeCurrency(*patch.Currency)
		if err != nil {
			return err
		}
		inv.Currency = currency
	}
	if patch.IssueDate != nil && !patch.IssueDate.IsZero() {
		inv.IssueDate = patch.IssueDate.Time
	}
	if patch.DueDate != nil {
		if patch.DueDate.IsZero() {
			return domain.Invalid("dueDate no puede quedar vacío")
		}
		inv.DueDate = patch.DueDate.Time
	}
	if patch.Notes != nil {
		inv.Notes = *patch.Notes
	}
	if patch.Status != nil {
		status := entity.InvoiceStatus(*patch.Status)
		if !status.Valid() {
			return domain.Invalid("status %q desconocido", *patch.Status)
		}
		switch {
		case status == entity.InvoiceStatusPaid && inv.PaidAt == nil:
			// Marcado a mano (transferencia, efectivo): sin referencia de checkout.
			paidAt := uc.now()
			inv.PaidAt = &paidAt
		case status != entity.InvoiceStatusPaid:
			inv.PaidAt = nil
		}
		inv.Status = status
	}
	inv.UpdatedAt = uc.now()
	return nil
}

// Delete elimina la factura sin mirar su estado.
func (uc *InvoiceUseCase) Delete(ctx context.Context, userID, id string) error {
	if err := uc.invoices.Delete(ctx, userID, id); err != nil {
		return err
	}
	uc.log.Info().Str("user_id", userID).Str("invoice_id", id).Msg("Factura eliminada")
	return nil
}

// Send envía la factura por email (con el PDF adjunto) y, si estaba en Draft, la pasa a Sent.
// Si el envío falla el estado no cambia.
func (uc *InvoiceUseCase) Send(ctx context.Context, userID, id string) error {
	found, err := uc.getWithClient(ctx, userID, id)
	if err != nil {
		return err
	}
	if found.Client == nil || found.Client.Email == "" {
		return fmt.Errorf("%w: el cliente no tiene email", domain.ErrMissingContactInfo)
	}
	inv := found.Invoice

	issuer, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		uc.log.Warn().Err(err).Str("user_id", userID).Msg("No se pudo cargar el emisor para el email")
		issuer = nil
	}
	attachment, err := uc.pdf.GenerateInvoicePDF(ctx, inv, found.Client, issuer)
	if err != nil {
		uc.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("PDF no generado, se envía el email sin adjunto")
		attachment = nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, uc.gatewayTimeout)
	defer cancel()
	err = uc.mailer.SendInvoice(sendCtx, InvoiceEmail{
		To:         found.Client.Email,
		ClientName: found.Client.Name,
		Invoice:    inv,
		Issuer:     issuer,
		PDF:        attachment,
	})
	if err != nil {
		uc.log.Error().Err(err).Str("invoice_id", inv.ID).Msg("Fallo al enviar la factura por email")
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}

	changed, err := uc.invoices.TransitionStatus(ctx, userID, inv.ID,
		[]entity.InvoiceStatus{entity.InvoiceStatusDraft}, entity.InvoiceStatusSent)
	if err != nil {
		return err
	}
	uc.log.Info().Str("invoice_id", inv.ID).Bool("status_changed", changed).Msg("Factura enviada por email")
	return nil
}

// SendReminderSMS envía un recordatorio por SMS. No cambia el estado.
func (uc *InvoiceUseCase) SendReminderSMS(ctx context.Context, userID, id string) error {
	found, err := uc.getWithClient(ctx, userID, id)
	if err != nil {
		return err
	}
	if found.Client == nil || found.Client.Phone == "" {
		return fmt.Errorf("%w: el cliente no tiene teléfono", domain.ErrMissingContactInfo)
	}

	sendCtx, cancel := context.WithTimeout(ctx, uc.gatewayTimeout)
	defer cancel()
	if err := uc.texter.SendInvoiceReminder(sendCtx, found.Client.Phone, found.Client.Name, found.Invoice); err != nil {
		uc.log.Error().Err(err).Str("invoice_id", id).Msg("Fallo al enviar el SMS")
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	uc.log.Info().Str("invoice_id", id).Msg("Recordatorio SMS enviado")
	return nil
}

// InitiatePayment abre una sesión de pago y devuelve su URL. No cambia el estado local:
// la factura pasa a Paid cuando llega el evento de la pasarela.
func (uc *InvoiceUseCase) InitiatePayment(ctx context.Context, userID, id string) (string, error) {
	found, err := uc.getWithClient(ctx, userID, id)
	if err != nil {
		return "", err
	}
	inv := found.Invoice
	if inv.Status == entity.InvoiceStatusPaid {
		return "", fmt.Errorf("%w: la factura ya está pagada", domain.ErrConflict)
	}
	if !inv.Total.IsPositive() {
		return "", domain.Invalid("la factura no tiene importe a cobrar")
	}
	customerEmail := ""
	if found.Client != nil {
		customerEmail = found.Client.Email
	}

	payCtx, cancel := context.WithTimeout(ctx, uc.gatewayTimeout)
	defer cancel()
	url, err := uc.checkout.CreateInvoiceCheckout(payCtx, InvoiceCheckout{Invoice: inv, CustomerEmail: customerEmail})
	if err != nil {
		uc.log.Error().Err(err).Str("invoice_id", inv.ID).Msg("Fallo al crear la sesión de pago")
		return "", fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	return url, nil
}

func (uc *InvoiceUseCase) getWithClient(ctx context.Context, userID, id string) (*entity.InvoiceWithClient, error) {
	found, err := uc.invoices.GetWithClient(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if found == nil || found.Invoice == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

// generateInvoiceNumber INV-YYYYMMDD-XXXXXXXX.
func generateInvoiceNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), strings.ToUpper(suffix))
}
