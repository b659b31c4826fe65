package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/infrastructure/memory"
)

type subEnv struct {
	*env
	gateway *fakeSubscriptionGateway
	parser  *fakeParser
	ledger  *memory.EventLedger
	subs    *billing.SubscriptionUseCase
}

func newSubEnv() *subEnv {
	e := &subEnv{
		env:     newEnv(),
		gateway: &fakeSubscriptionGateway{},
		parser:  &fakeParser{},
		ledger:  memory.NewEventLedger(time.Hour),
	}
	e.subs = billing.NewSubscriptionUseCase(billing.SubscriptionDeps{
		Users:    e.store.Users(),
		Invoices: e.store.Invoices(),
		Gateway:  e.gateway,
		Events:   e.parser,
		Ledger:   e.ledger,
		Now:      func() time.Time { return fixedNow },
	})
	return e
}

func TestCreateCheckout_CreaClienteSoloUnaVez(t *testing.T) {
	e := newSubEnv()
	e.user("u1", entity.TierFree)
	ctx := context.Background()

	url, err := e.subs.CreateCheckout(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/sub/cus_test", url)

	_, err = e.subs.CreateCheckout(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, e.gateway.customers)
	assert.Equal(t, []string{"cus_test", "cus_test"}, e.gateway.sessions)

	u, err := e.store.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "cus_test", u.BillingCustomerID)
}

func TestCreateCheckout_YaSuscritoEsConflicto(t *testing.T) {
	e := newSubEnv()
	e.user("u1", entity.TierPro)
	require.NoError(t, e.store.Users().UpdateSubscription(context.Background(), "u1", entity.TierPro, "sub_1"))

	_, err := e.subs.CreateCheckout(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateCheckout_FalloDePasarela(t *testing.T) {
	e := newSubEnv()
	e.user("u1", entity.TierFree)
	e.gateway.err = errors.New("stripe 500")

	_, err := e.subs.CreateCheckout(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrGateway)
}

func TestHandlePaymentEvent_SuscripcionIdempotente(t *testing.T) {
	e := newSubEnv()
	e.user("u1", entity.TierFree)
	ctx := context.Background()
	require.NoError(t, e.store.Users().SetBillingCustomerID(ctx, "u1", "cus_1"))

	event := entity.SubscriptionCheckoutCompleted{ID: "evt_1", BillingCustomerID: "cus_1", SubscriptionID: "sub_1"}
	require.NoError(t, e.subs.HandlePaymentEvent(ctx, event))
	require.NoError(t, e.subs.HandlePaymentEvent(ctx, event), "la segunda entrega no falla")

	u, err := e.store.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.TierPro, u.Tier)
	assert.Equal(t, "sub_1", u.SubscriptionID)

	done, err := e.ledger.Processed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestHandlePaymentEvent_ReaplicarSinRegistroReafirmaEstado(t *testing.T) {
	e := newSubEnv()
	e.user("u1", entity.TierFree)
	ctx := context.Background()
	require.NoError(t, e.store.Users().SetBillingCustomerID(ctx, "u1", "cus_1"))

	uc := billing.NewSubscriptionUseCase(billing.SubscriptionDeps{Users: e.store.Users(), Invoices: e.store.Invoices()})
	event := entity.SubscriptionCheckoutCompleted{ID: "evt_1", BillingCustomerID: "cus_1", SubscriptionID: "sub_1"}
	require.NoError(t, uc.HandlePaymentEvent(ctx, event))
	require.NoError(t, uc.HandlePaymentEvent(ctx, event))

	u, _ := e.store.Users().GetByID(ctx, "u1")
	assert.Equal(t, entity.TierPro, u.Tier)
	assert.Equal(t, "sub_1", u.SubscriptionID)
}

func TestHandlePaymentEvent_BajaVuelveAFree(t *testing.T) {
	e := newSubEnv()
	e.user("u1", entity.TierFree)
	ctx := context.Background()
	require.NoError(t, e.store.Users().UpdateSubscription(ctx, "u1", entity.TierPro, "sub_1"))

	require.NoError(t, e.subs.HandlePaymentEvent(ctx, entity.SubscriptionDeleted{ID: "evt_2", SubscriptionID: "sub_1"}))

	u, _ := e.store.Users().GetByID(ctx, "u1")
	assert.Equal(t, entity.TierFree, u.Tier)
	assert.Empty(t, u.SubscriptionID)
}

func TestHandlePaymentEvent_FacturaPagada(t *testing.T) {
	e := newSubEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	ctx := context.Background()
	inv, err := e.invoices.Create(ctx, actor, invoiceRequest(c.ID))
	require.NoError(t, err)

	pending := entity.InvoiceCheckoutCompleted{ID: "evt_3", InvoiceID: inv.ID, SessionID: "cs_1", Paid: false}
	require.NoError(t, e.subs.HandlePaymentEvent(ctx, pending))
	got, _ := e.invoices.Get(ctx, "u1", inv.ID)
	assert.Equal(t, "Draft", got.Status, "un pago diferido aún no liquida")

	paid := entity.InvoiceCheckoutCompleted{ID: "evt_4", InvoiceID: inv.ID, SessionID: "cs_1", Paid: true}
	require.NoError(t, e.subs.HandlePaymentEvent(ctx, paid))
	got, _ = e.invoices.Get(ctx, "u1", inv.ID)
	assert.Equal(t, "Paid", got.Status)
	assert.Equal(t, "cs_1", got.PaymentReference)
	require.NotNil(t, got.PaidAt)

	again := entity.InvoiceCheckoutCompleted{ID: "evt_5", InvoiceID: inv.ID, SessionID: "cs_2", Paid: true}
	require.NoError(t, e.subs.HandlePaymentEvent(ctx, again))
	got, _ = e.invoices.Get(ctx, "u1", inv.ID)
	assert.Equal(t, "cs_1", got.PaymentReference, "el primer pago no se sobrescribe")
}

func TestHandlePaymentEvent_DesconocidosNoFallan(t *testing.T) {
	e := newSubEnv()
	ctx := context.Background()

	assert.NoError(t, e.subs.HandlePaymentEvent(ctx, entity.UnhandledPaymentEvent{ID: "evt_6", Type: "invoice.created"}))
	assert.NoError(t, e.subs.HandlePaymentEvent(ctx, entity.SubscriptionDeleted{ID: "evt_7", SubscriptionID: "sub_x"}))
	assert.NoError(t, e.subs.HandlePaymentEvent(ctx, entity.InvoiceCheckoutCompleted{ID: "evt_8", InvoiceID: "nope", Paid: true}))
}

func TestHandlePaymentEvent_RegistroCaidoSeProcesaIgual(t *testing.T) {
	e := newSubEnv()
	e.user("u1", entity.TierFree)
	ctx := context.Background()
	require.NoError(t, e.store.Users().SetBillingCustomerID(ctx, "u1", "cus_1"))

	ledger := &failingLedger{}
	uc := billing.NewSubscriptionUseCase(billing.SubscriptionDeps{Users: e.store.Users(), Invoices: e.store.Invoices(), Ledger: ledger})
	require.NoError(t, uc.HandlePaymentEvent(ctx, entity.SubscriptionCheckoutCompleted{ID: "evt_9", BillingCustomerID: "cus_1", SubscriptionID: "sub_9"}))

	u, _ := e.store.Users().GetByID(ctx, "u1")
	assert.Equal(t, entity.TierPro, u.Tier)
	assert.Equal(t, []string{"evt_9"}, ledger.marked)
}

func TestHandleWebhook_FirmaInvalida(t *testing.T) {
	e := newSubEnv()
	e.parser.err = domain.ErrInvalidSignature

	err := e.subs.HandleWebhook(context.Background(), []byte(`{}`), "t=1,v1=bad")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestHandleWebhook_AplicaEventoParseado(t *testing.T) {
	e := newSubEnv()
	e.user("u1", entity.TierFree)
	ctx := context.Background()
	require.NoError(t, e.store.Users().SetBillingCustomerID(ctx, "u1", "cus_1"))
	e.parser.event = entity.SubscriptionCheckoutCompleted{ID: "evt_10", BillingCustomerID: "cus_1", SubscriptionID: "sub_10"}

	require.NoError(t, e.subs.HandleWebhook(ctx, []byte(`{}`), "sig"))
	u, _ := e.store.Users().GetByID(ctx, "u1")
	assert.Equal(t, entity.TierPro, u.Tier)
}

func TestSetTier(t *testing.T) {
	e := newSubEnv()
	e.user("u1", entity.TierFree)
	ctx := context.Background()

	out, err := e.subs.SetTier(ctx, " U1@Example.com ", entity.TierPro)
	require.NoError(t, err)
	assert.Equal(t, "pro", out.SubscriptionStatus)

	_, err = e.subs.SetTier(ctx, "u1@example.com", entity.Tier("gold"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.subs.SetTier(ctx, "nadie@example.com", entity.TierPro)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
