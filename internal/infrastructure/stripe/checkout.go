package stripe

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	stripego "github.com/stripe/stripe-go/v76"
	"golang.org/x/text/currency"

	appbilling "github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

// Claves de metadata que enlazan la sesión con la factura.
const (
	MetadataInvoiceID     = "invoiceId"
	MetadataInvoiceNumber = "invoiceNumber"
)

func invoiceCheckoutParams(req appbilling.InvoiceCheckout, clientURL string) (*stripego.CheckoutSessionParams, error) {
	inv := req.Invoice
	lineItems, err := invoiceLineItems(inv)
	if err != nil {
		return nil, err
	}
	params := &stripego.CheckoutSessionParams{
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		Mode:               stripego.String(string(stripego.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		SuccessURL:         stripego.String(clientURL + "/invoices/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripego.String(clientURL + "/invoices"),
		ClientReferenceID:  stripego.String(inv.ID),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripego.String(req.CustomerEmail)
	}
	params.AddMetadata(MetadataInvoiceID, inv.ID)
	params.AddMetadata(MetadataInvoiceNumber, inv.Number)
	return params, nil
}

// invoiceLineItems una línea por item más una línea "Tax" si hay impuesto. La suma de las
// líneas siempre es minorUnits(inv.Total): el desvío por redondeo se ajusta en la última línea.
func invoiceLineItems(inv *entity.Invoice) ([]*stripego.CheckoutSessionLineItemParams, error) {
	unit, err := currency.ParseISO(inv.Currency)
	if err != nil {
		return nil, domain.Invalid("currency %q no es un código ISO 4217", inv.Currency)
	}
	scale, _ := currency.Standard.Rounding(unit)
	code := strings.ToLower(unit.String())

	target := minorUnits(inv.Total, scale)
	if target <= 0 {
		return nil, domain.Invalid("la factura no tiene importe a cobrar")
	}

	out := make([]*stripego.CheckoutSessionLineItemParams, 0, len(inv.Items)+1)
	var sum int64
	for _, item := range inv.Items {
		amount := item.Amount()
		if !amount.IsPositive() {
			continue
		}
		name := strings.TrimSpace(item.Description)
		if name == "" {
			name = "Factura " + inv.Number
		}
		unitAmount := minorUnits(item.Rate, scale)
		quantity := item.Quantity.IntPart()
		lineTotal := minorUnits(amount, scale)
		// Cantidad fraccionaria o tarifa con más decimales que la moneda: una sola unidad.
		if !item.Quantity.Equal(item.Quantity.Truncate(0)) || unitAmount*quantity != lineTotal {
			name = fmt.Sprintf("%s (%s × %s)", name, item.Quantity.String(), item.Rate.String())
			unitAmount = lineTotal
			quantity = 1
		}
		if unitAmount == 0 {
			continue
		}
		out = append(out, lineItem(code, name, unitAmount, quantity))
		sum += unitAmount * quantity
	}
	if inv.TaxAmount.IsPositive() {
		if tax := minorUnits(inv.TaxAmount, scale); tax > 0 {
			out = append(out, lineItem(code, fmt.Sprintf("Tax (%s%%)", inv.TaxRate.String()), tax, 1))
			sum += tax
		}
	}
	if len(out) == 0 {
		out = append(out, lineItem(code, "Factura "+inv.Number, target, 1))
		return out, nil
	}

	if diff := target - sum; diff != 0 {
		last := out[len(out)-1]
		lastTotal := *last.PriceData.UnitAmount * *last.Quantity + diff
		if lastTotal <= 0 {
			return nil, domain.Invalid("no se puede repartir el total de la factura en líneas de cobro")
		}
		last.PriceData.UnitAmount = stripego.Int64(lastTotal)
		last.Quantity = stripego.Int64(1)
	}
	return out, nil
}

func lineItem(currencyCode, name string, unitAmount, quantity int64) *stripego.CheckoutSessionLineItemParams {
	return &stripego.CheckoutSessionLineItemParams{
		PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
			Currency: stripego.String(currencyCode),
			ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripego.String(name),
			},
			UnitAmount: stripego.Int64(unitAmount),
		},
		Quantity: stripego.Int64(quantity),
	}
}

// minorUnits convierte a la unidad mínima de la moneda (centavos en USD, unidades en JPY).
func minorUnits(amount decimal.Decimal, scale int) int64 {
	return amount.Shift(int32(scale)).Round(0).IntPart()
}
