// Package analytics contiene el resumen de facturación que alimenta el dashboard.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/plan"
	"github.com/jhoicas/invoicely-api/internal/domain/repository"
)

// DashboardUseCase genera el resumen del usuario: cuota de hoy, pendiente de cobro y cobrado del mes.
//
// Fuente de datos: InvoiceRepository (solo lectura).
type DashboardUseCase struct {
	invoiceRepo repository.InvoiceRepository
	policy      plan.Policy
	now         func() time.Time
}

// NewDashboardUseCase construye el caso de uso. now nil = time.Now.
func NewDashboardUseCase(invoiceRepo repository.InvoiceRepository, policy plan.Policy, now func() time.Time) *DashboardUseCase {
	if now == nil {
		now = time.Now
	}
	return &DashboardUseCase{invoiceRepo: invoiceRepo, policy: policy, now: now}
}

// GetSummary construye el DashboardSummaryDTO del usuario.
//
// Dos lecturas en paralelo:
//  1. CountByUserSince(hoy) → InvoicesToday (misma definición de "hoy" que la cuota)
//  2. ListByUser            → conteos por estado e importes por moneda
func (uc *DashboardUseCase) GetSummary(ctx context.Context, actor entity.Actor) (*dto.DashboardSummaryDTO, error) {
	now := uc.now()
	todayStart := plan.StartOfDay(now)
	monthStart := time.Date(todayStart.Year(), todayStart.Month(), 1, 0, 0, 0, 0, todayStart.Location())

	// ── Goroutines para paralelizar las lecturas ──────────────────────────────
	type countResult struct {
		n   int
		err error
	}
	type listResult struct {
		invoices []*entity.InvoiceWithClient
		err      error
	}

	countCh := make(chan countResult, 1)
	listCh := make(chan listResult, 1)

	go func() {
		n, err := uc.invoiceRepo.CountByUserSince(ctx, actor.UserID, todayStart)
		countCh <- countResult{n, err}
	}()
	go func() {
		list, err := uc.invoiceRepo.ListByUser(ctx, actor.UserID)
		listCh <- listResult{list, err}
	}()

	count := <-countCh
	list := <-listCh

	if count.err != nil {
		return nil, fmt.Errorf("dashboard: facturas de hoy: %w", count.err)
	}
	if list.err != nil {
		return nil, fmt.Errorf("dashboard: listar facturas: %w", list.err)
	}

	// ── Agregar por estado mostrado y por moneda ─────────────────────────────
	summary := &dto.DashboardSummaryDTO{
		Tier:          string(actor.Tier),
		InvoicesToday: count.n,
		Counts:        map[string]int{},
		Outstanding:   map[string]decimal.Decimal{},
		Overdue:       map[string]decimal.Decimal{},
		PaidThisMonth: map[string]decimal.Decimal{},
		DateLabel:     monthLabel(now),
	}
	if actor.Tier != entity.TierPro {
		limit := uc.policy.FreeDailyInvoices
		remaining := limit - count.n
		if remaining < 0 {
			remaining = 0
		}
		summary.DailyLimit = &limit
		summary.RemainingToday = &remaining
	}

	for _, row := range list.invoices {
		inv := row.Invoice
		if inv == nil {
			continue
		}
		status := inv.DisplayStatus(now)
		summary.Counts[string(status)]++

		switch status {
		case entity.InvoiceStatusSent:
			addTo(summary.Outstanding, inv.Currency, inv.Total)
		case entity.InvoiceStatusOverdue:
			addTo(summary.Outstanding, inv.Currency, inv.Total)
			addTo(summary.Overdue, inv.Currency, inv.Total)
		case entity.InvoiceStatusPaid:
			if inv.PaidAt != nil && !inv.PaidAt.Before(monthStart) {
				addTo(summary.PaidThisMonth, inv.Currency, inv.Total)
			}
		}
	}
	return summary, nil
}

func addTo(m map[string]decimal.Decimal, currency string, amount decimal.Decimal) {
	m[currency] = m[currency].Add(amount)
}

// monthLabel devuelve una etiqueta legible del mes, ej: "Febrero 2026".
func monthLabel(t time.Time) string {
	months := [...]string{
		"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
		"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
	}
	return fmt.Sprintf("%s %d", months[t.Month()-1], t.Year())
}
