// Package money calcula los totales de una factura. Funciones puras: el alta y la
// edición usan exactamente el mismo cálculo para que lo guardado nunca difiera.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

// DefaultCurrency moneda cuando el cliente no envía ninguna.
const DefaultCurrency = "USD"

var maxTaxRate = decimal.NewFromInt(100)

// Totals resultado del cálculo.
type Totals struct {
	SubTotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// Compute subTotal = Σ cantidad×tarifa; taxAmount = subTotal×taxRate/100; total = subTotal+taxAmount.
// Sin redondeo: dividir entre 100 es un desplazamiento de la escala decimal.
func Compute(items []entity.LineItem, taxRatePercent decimal.Decimal) (Totals, error) {
	if err := ValidateTaxRate(taxRatePercent); err != nil {
		return Totals{}, err
	}
	if err := ValidateItems(items); err != nil {
		return Totals{}, err
	}
	subTotal := decimal.Zero
	for _, item := range items {
		subTotal = subTotal.Add(item.Amount())
	}
	taxAmount := subTotal.Mul(taxRatePercent).Shift(-2)
	return Totals{
		SubTotal:  subTotal,
		TaxAmount: taxAmount,
		Total:     subTotal.Add(taxAmount),
	}, nil
}

// ValidateItems rechaza cantidades o tarifas negativas.
func ValidateItems(items []entity.LineItem) error {
	for i, item := range items {
		if item.Quantity.IsNegative() {
			return domain.Invalid("items[%d].quantity no puede ser negativa", i)
		}
		if item.Rate.IsNegative() {
			return domain.Invalid("items[%d].rate no puede ser negativa", i)
		}
	}
	return nil
}

// ValidateTaxRate exige 0 <= taxRate <= 100.
func ValidateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(maxTaxRate) {
		return domain.Invalid("taxRate debe estar entre 0 y 100")
	}
	return nil
}

// NormalizeCurrency valida un código ISO 4217 y lo devuelve en mayúsculas.
// Vacío = DefaultCurrency.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", domain.Invalid("currency %q no es un código ISO 4217", code)
	}
	return unit.String(), nil
}
