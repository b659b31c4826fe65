package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v76"

	appbilling "github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/money"
)

const testSecret = "whsec_test"

func sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParseEvent_SuscripcionCompletada(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_1","object":"checkout.session","mode":"subscription","customer":"cus_1","subscription":"sub_1"}}}`)
	p := NewWebhookParser(testSecret, false, nil)

	ev, err := p.ParseEvent(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionCheckoutCompleted{ID: "evt_1", BillingCustomerID: "cus_1", SubscriptionID: "sub_1"}, ev)
}

func TestParseEvent_FirmaIncorrecta(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)
	p := NewWebhookParser(testSecret, false, nil)

	_, err := p.ParseEvent(payload, sign(payload, "otro_secret", time.Now()))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	_, err = p.ParseEvent(payload, "")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestParseEvent_SinSecretNiModoDesarrolloRechaza(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"x","data":{"object":{}}}`)
	_, err := NewWebhookParser("", false, nil).ParseEvent(payload, "")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestParseEvent_PagoDeFactura(t *testing.T) {
	payload := []byte(`{"id":"evt_2","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_2","object":"checkout.session","mode":"payment","payment_status":"paid",
		"client_reference_id":"inv_ref","metadata":{"invoiceId":"inv_1","invoiceNumber":"INV-1"}}}}`)

	ev, err := NewWebhookParser("", true, nil).ParseEvent(payload, "")
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceCheckoutCompleted{ID: "evt_2", InvoiceID: "inv_1", SessionID: "cs_2", Paid: true}, ev)
}

func TestParseEvent_PagoDiferidoUsaClientReference(t *testing.T) {
	payload := []byte(`{"id":"evt_3","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_3","object":"checkout.session","mode":"payment","payment_status":"unpaid",
		"client_reference_id":"inv_9"}}}`)

	ev, err := NewWebhookParser("", true, nil).ParseEvent(payload, "")
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceCheckoutCompleted{ID: "evt_3", InvoiceID: "inv_9", SessionID: "cs_3", Paid: false}, ev)
}

func TestParseEvent_SuscripcionEliminada(t *testing.T) {
	payload := []byte(`{"id":"evt_4","object":"event","type":"customer.subscription.deleted",
		"data":{"object":{"id":"sub_1","object":"subscription"}}}`)

	ev, err := NewWebhookParser(testSecret, false, nil).ParseEvent(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionDeleted{ID: "evt_4", SubscriptionID: "sub_1"}, ev)
}

func TestParseEvent_TipoDesconocidoEsUnhandled(t *testing.T) {
	payload := []byte(`{"id":"evt_5","object":"event","type":"invoice.payment_failed","data":{"object":{"id":"in_1"}}}`)

	ev, err := NewWebhookParser("", true, nil).ParseEvent(payload, "")
	require.NoError(t, err)
	assert.Equal(t, entity.UnhandledPaymentEvent{ID: "evt_5", Type: "invoice.payment_failed"}, ev)
}

// priced calcula los totales igual que el alta de facturas.
func priced(t *testing.T, inv *entity.Invoice) *entity.Invoice {
	t.Helper()
	totals, err := money.Compute(inv.Items, inv.TaxRate)
	require.NoError(t, err)
	inv.SubTotal, inv.TaxAmount, inv.Total = totals.SubTotal, totals.TaxAmount, totals.Total
	return inv
}

func sumLines(items []*stripego.CheckoutSessionLineItemParams) int64 {
	var sum int64
	for _, it := range items {
		sum += *it.PriceData.UnitAmount * *it.Quantity
	}
	return sum
}

func TestInvoiceLineItems_ImpuestoYFracciones(t *testing.T) {
	inv := priced(t, &entity.Invoice{
		ID: "inv_1", Number: "INV-1", Currency: "USD",
		Items: []entity.LineItem{
			{Description: "Diseño", Quantity: d("2"), Rate: d("50")},
			{Description: "Horas", Quantity: d("1.5"), Rate: d("33.33")},
			{Description: "Gratis", Quantity: d("0"), Rate: d("10")},
		},
		TaxRate: d("10"),
	})
	require.Equal(t, "164.9945", inv.Total.String())

	items, err := invoiceLineItems(inv)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "usd", *items[0].PriceData.Currency)
	assert.Equal(t, int64(5000), *items[0].PriceData.UnitAmount)
	assert.Equal(t, int64(2), *items[0].Quantity)

	assert.Equal(t, int64(5000), *items[1].PriceData.UnitAmount, "1.5 × 33.33 = 49.995 → 5000")
	assert.Equal(t, int64(1), *items[1].Quantity)
	assert.Contains(t, *items[1].PriceData.ProductData.Name, "Horas")

	assert.Equal(t, "Tax (10%)", *items[2].PriceData.ProductData.Name)
	assert.Equal(t, int64(1499), *items[2].PriceData.UnitAmount, "el impuesto absorbe el centavo de redondeo")
	assert.Equal(t, int64(16499), sumLines(items))
}

func TestInvoiceLineItems_SumaIgualAlTotal(t *testing.T) {
	cases := []struct {
		name    string
		items   []entity.LineItem
		taxRate string
	}{
		{"tarifa con tres decimales", []entity.LineItem{{Description: "a", Quantity: d("3"), Rate: d("0.335")}}, "10"},
		{"varias líneas redondeadas", []entity.LineItem{
			{Description: "a", Quantity: d("7"), Rate: d("0.125")},
			{Description: "b", Quantity: d("3"), Rate: d("1.115")},
			{Description: "c", Quantity: d("0.333"), Rate: d("9.99")},
		}, "7.25"},
		{"importes menores a un centavo", []entity.LineItem{
			{Description: "a", Quantity: d("1"), Rate: d("0.004")},
			{Description: "b", Quantity: d("1"), Rate: d("0.004")},
			{Description: "c", Quantity: d("1"), Rate: d("0.004")},
		}, "0"},
		{"sin impuesto y exacto", []entity.LineItem{{Description: "a", Quantity: d("4"), Rate: d("12.50")}}, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := priced(t, &entity.Invoice{ID: "inv_1", Number: "INV-1", Currency: "USD", Items: tc.items, TaxRate: d(tc.taxRate)})

			items, err := invoiceLineItems(inv)
			require.NoError(t, err)
			assert.Equal(t, minorUnits(inv.Total, 2), sumLines(items), "total %s", inv.Total)
			for _, it := range items {
				assert.Positive(t, *it.PriceData.UnitAmount)
			}
		})
	}
}

func TestInvoiceLineItems_MonedaSinDecimales(t *testing.T) {
	inv := priced(t, &entity.Invoice{
		ID: "inv_1", Number: "INV-1", Currency: "JPY",
		Items: []entity.LineItem{{Description: "Traducción", Quantity: d("1"), Rate: d("1500")}},
	})
	items, err := invoiceLineItems(inv)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1500), *items[0].PriceData.UnitAmount)
}

func TestInvoiceLineItems_SinImporteEsInvalido(t *testing.T) {
	_, err := invoiceLineItems(&entity.Invoice{Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInvoiceCheckoutParams_EnlazaLaFactura(t *testing.T) {
	inv := priced(t, &entity.Invoice{
		ID: "inv_1", Number: "INV-1", Currency: "EUR",
		Items: []entity.LineItem{{Description: "x", Quantity: d("1"), Rate: d("10")}},
	})
	params, err := invoiceCheckoutParams(appbilling.InvoiceCheckout{Invoice: inv, CustomerEmail: "c@example.com"}, "http://app")
	require.NoError(t, err)

	assert.Equal(t, "payment", *params.Mode)
	assert.Equal(t, "inv_1", *params.ClientReferenceID)
	assert.Equal(t, "c@example.com", *params.CustomerEmail)
	assert.Equal(t, "inv_1", params.Metadata[MetadataInvoiceID])
	assert.Equal(t, "INV-1", params.Metadata[MetadataInvoiceNumber])
	assert.Equal(t, "http://app/invoices", *params.CancelURL)
}

func TestSubscriptionCheckoutParams(t *testing.T) {
	params := subscriptionCheckoutParams("cus_1", "price_pro", "http://app")
	assert.Equal(t, "subscription", *params.Mode)
	assert.Equal(t, "cus_1", *params.Customer)
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, "price_pro", *params.LineItems[0].Price)
}
