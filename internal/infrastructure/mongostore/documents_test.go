package mongostore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

func TestInvoiceDocument_IdaYVuelta(t *testing.T) {
	paid := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	inv := &entity.Invoice{
		ID:       "inv-1",
		UserID:   "u-1",
		ClientID: "c-1",
		Number:   "INV-001",
		Items: []entity.LineItem{
			{Description: "Consultoría", Quantity: decimal.RequireFromString("2.5"), Rate: decimal.RequireFromString("80.10")},
		},
		SubTotal:  decimal.RequireFromString("200.25"),
		TaxRate:   decimal.RequireFromString("12.5"),
		TaxAmount: decimal.RequireFromString("25.03125"),
		Total:     decimal.RequireFromString("225.28125"),
		Currency:  "EUR",
		Status:    entity.InvoiceStatusPaid,
		PaidAt:    &paid,
		Version:   3,
	}

	doc, err := newInvoiceDocument(inv)
	require.NoError(t, err)
	back, err := doc.toEntity()
	require.NoError(t, err)

	assert.True(t, back.TaxAmount.Equal(inv.TaxAmount), "taxAmount = %s", back.TaxAmount)
	assert.True(t, back.Total.Equal(inv.Total))
	assert.True(t, back.Items[0].Rate.Equal(inv.Items[0].Rate))
	assert.Equal(t, inv.Status, back.Status)
	assert.Equal(t, int64(3), back.Version)
	require.NotNil(t, back.PaidAt)
	assert.True(t, back.PaidAt.Equal(paid))
}

func TestUserDocument_ConservaReferenciasDePago(t *testing.T) {
	u := &entity.User{ID: "u-1", Email: "ana@example.com", Tier: entity.TierPro, BillingCustomerID: "cus_1", SubscriptionID: "sub_1"}
	back := newUserDocument(u).toEntity()
	assert.Equal(t, entity.TierPro, back.Tier)
	assert.Equal(t, "cus_1", back.BillingCustomerID)
	assert.Equal(t, "sub_1", back.SubscriptionID)
}
