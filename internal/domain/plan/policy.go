package plan

import (
	"time"

	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

// DefaultFreeDailyInvoices facturas por día permitidas en el plan gratuito.
const DefaultFreeDailyInvoices = 10

// Policy decide si un usuario puede crear otra factura hoy.
type Policy struct {
	FreeDailyInvoices int
}

// NewPolicy construye la política; un límite <= 0 usa DefaultFreeDailyInvoices.
func NewPolicy(freeDailyInvoices int) Policy {
	if freeDailyInvoices <= 0 {
		freeDailyInvoices = DefaultFreeDailyInvoices
	}
	return Policy{FreeDailyInvoices: freeDailyInvoices}
}

// CanCreateInvoice pro siempre; free solo si invoiceCountToday < límite.
func (p Policy) CanCreateInvoice(tier entity.Tier, invoiceCountToday int) bool {
	if tier == entity.TierPro {
		return true
	}
	return invoiceCountToday < p.FreeDailyInvoices
}

// Check igual que CanCreateInvoice pero devuelve *domain.QuotaExceededError al denegar.
func (p Policy) Check(tier entity.Tier, invoiceCountToday int) error {
	if p.CanCreateInvoice(tier, invoiceCountToday) {
		return nil
	}
	return &domain.QuotaExceededError{Limit: p.FreeDailyInvoices, Count: invoiceCountToday}
}

// StartOfDay medianoche (00:00:00) del día de now en la zona horaria del servidor.
// Es la única definición de "hoy" que usa la cuota.
func StartOfDay(now time.Time) time.Time {
	now = now.In(time.Local)
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
