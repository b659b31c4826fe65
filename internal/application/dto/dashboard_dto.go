package dto

import "github.com/shopspring/decimal"

// DashboardSummaryDTO respuesta de GET /api/dashboard/summary.
// Los importes van agrupados por moneda (ISO 4217) porque un usuario puede facturar en varias.
type DashboardSummaryDTO struct {
	Tier string `json:"tier"`

	// Cuota del día; DailyLimit y RemainingToday van a null en el plan pro.
	InvoicesToday  int  `json:"invoicesToday"`
	DailyLimit     *int `json:"dailyLimit"`
	RemainingToday *int `json:"remainingToday"`

	Counts        map[string]int             `json:"counts"`        // por estado mostrado (Overdue derivado)
	Outstanding   map[string]decimal.Decimal `json:"outstanding"`   // Sent + Overdue
	Overdue       map[string]decimal.Decimal `json:"overdue"`
	PaidThisMonth map[string]decimal.Decimal `json:"paidThisMonth"` // por fecha de pago

	DateLabel string `json:"dateLabel"` // ej: "Febrero 2026"
}
