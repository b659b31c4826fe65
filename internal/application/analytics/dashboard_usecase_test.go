package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invoicely-api/internal/application/analytics"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/plan"
	"github.com/jhoicas/invoicely-api/internal/infrastructure/memory"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

func seed(t *testing.T, repo *memory.InvoiceRepo, userID, number, currency, total string, status entity.InvoiceStatus, created, due time.Time, paidAt *time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &entity.Invoice{
		UserID:    userID,
		ClientID:  "c1",
		Number:    number,
		Total:     decimal.RequireFromString(total),
		Currency:  currency,
		Status:    status,
		IssueDate: created,
		DueDate:   due,
		PaidAt:    paidAt,
		CreatedAt: created,
	}))
}

func TestGetSummary_AgregaPorEstadoYMoneda(t *testing.T) {
	store := memory.NewStore()
	repo := store.Invoices()
	yesterday := fixedNow.AddDate(0, 0, -1)
	nextMonth := fixedNow.AddDate(0, 1, 0)
	paidThisMonth := fixedNow.AddDate(0, 0, -3)
	paidLastMonth := fixedNow.AddDate(0, -1, 0)

	seed(t, repo, "u1", "A-1", "USD", "100", entity.InvoiceStatusSent, fixedNow, nextMonth, nil)
	seed(t, repo, "u1", "A-2", "USD", "50", entity.InvoiceStatusSent, yesterday.AddDate(0, 0, -30), yesterday, nil)
	seed(t, repo, "u1", "A-3", "EUR", "70", entity.InvoiceStatusPaid, yesterday, nextMonth, &paidThisMonth)
	seed(t, repo, "u1", "A-4", "USD", "999", entity.InvoiceStatusPaid, paidLastMonth, nextMonth, &paidLastMonth)
	seed(t, repo, "u1", "A-5", "USD", "10", entity.InvoiceStatusDraft, fixedNow, nextMonth, nil)
	seed(t, repo, "u2", "B-1", "USD", "500", entity.InvoiceStatusSent, fixedNow, nextMonth, nil)

	uc := analytics.NewDashboardUseCase(repo, plan.NewPolicy(10), func() time.Time { return fixedNow })
	summary, err := uc.GetSummary(context.Background(), entity.Actor{UserID: "u1", Tier: entity.TierFree})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.InvoicesToday)
	require.NotNil(t, summary.DailyLimit)
	assert.Equal(t, 10, *summary.DailyLimit)
	assert.Equal(t, 8, *summary.RemainingToday)

	assert.Equal(t, map[string]int{"Sent": 1, "Overdue": 1, "Paid": 2, "Draft": 1}, summary.Counts)
	assert.True(t, summary.Outstanding["USD"].Equal(decimal.NewFromInt(150)), "outstanding = %s", summary.Outstanding["USD"])
	assert.True(t, summary.Overdue["USD"].Equal(decimal.NewFromInt(50)))
	assert.True(t, summary.PaidThisMonth["EUR"].Equal(decimal.NewFromInt(70)))
	_, hasUSD := summary.PaidThisMonth["USD"]
	assert.False(t, hasUSD, "lo pagado el mes anterior no cuenta")
	assert.Equal(t, "Marzo 2024", summary.DateLabel)
}

func TestGetSummary_ProSinLimite(t *testing.T) {
	store := memory.NewStore()
	uc := analytics.NewDashboardUseCase(store.Invoices(), plan.NewPolicy(10), func() time.Time { return fixedNow })

	summary, err := uc.GetSummary(context.Background(), entity.Actor{UserID: "u1", Tier: entity.TierPro})
	require.NoError(t, err)
	assert.Equal(t, "pro", summary.Tier)
	assert.Nil(t, summary.DailyLimit)
	assert.Nil(t, summary.RemainingToday)
	assert.Empty(t, summary.Counts)
}
