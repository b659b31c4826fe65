package billing_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/plan"
)

func TestCreate_CalculaTotalesEnServidor(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")

	inv, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
	require.NoError(t, err)

	assert.True(t, inv.SubTotal.Equal(dec("125")))
	assert.True(t, inv.TaxAmount.Equal(dec("12.5")))
	assert.True(t, inv.Total.Equal(dec("137.5")))
	assert.Equal(t, "Draft", inv.Status)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, c.ID, inv.ClientID)
	require.NotNil(t, inv.Client)
	assert.Equal(t, "Acme", inv.Client.Name)
	assert.Regexp(t, regexp.MustCompile(`^INV-20240315-[0-9A-F]{8}$`), inv.InvoiceNumber)
}

func TestCreate_CuotaFree_DecimaPermitidaUndecimaRechazada(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := e.invoices.Create(ctx, actor, invoiceRequest(c.ID))
		require.NoError(t, err, "factura %d", i+1)
	}

	_, err := e.invoices.Create(ctx, actor, invoiceRequest(c.ID))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	var qe *domain.QuotaExceededError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 10, qe.Limit)
	assert.Equal(t, 10, qe.Count)

	list, err := e.invoices.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 10, "la factura rechazada no se persiste")
}

func TestCreate_CuotaFreeConCreacionesConcurrentes(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		_, err := e.invoices.Create(ctx, actor, invoiceRequest(c.ID))
		require.NoError(t, err)
	}

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, rejected int
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.invoices.Create(ctx, actor, invoiceRequest(c.ID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrQuotaExceeded):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok, "solo cabe la décima")
	assert.Equal(t, workers-1, rejected)
	list, err := e.invoices.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 10)
}

func TestCreate_ProSinLimite(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierPro)
	c := e.client("u1", "acme@example.com", "")

	for i := 0; i < 11; i++ {
		_, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
		require.NoError(t, err)
	}
}

func TestCreate_ClienteAjenoEsNotFound(t *testing.T) {
	e := newEnv()
	e.user("u1", entity.TierFree)
	intruder := e.user("u2", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")

	_, err := e.invoices.Create(context.Background(), intruder, invoiceRequest(c.ID))
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreate_Validaciones(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	ctx := context.Background()

	noDue := invoiceRequest(c.ID)
	noDue.DueDate = nil
	_, err := e.invoices.Create(ctx, actor, noDue)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	negative := invoiceRequest(c.ID)
	negative.Items[0].Quantity = dec("-1")
	_, err = e.invoices.Create(ctx, actor, negative)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	badStatus := invoiceRequest(c.ID)
	badStatus.Status = "Archived"
	_, err = e.invoices.Create(ctx, actor, badStatus)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	noClient := invoiceRequest("")
	_, err = e.invoices.Create(ctx, actor, noClient)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreate_NumeroDuplicado(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierPro)
	c := e.client("u1", "acme@example.com", "")
	req := invoiceRequest(c.ID)
	req.InvoiceNumber = "INV-001"

	_, err := e.invoices.Create(context.Background(), actor, req)
	require.NoError(t, err)
	_, err = e.invoices.Create(context.Background(), actor, req)
	assert.ErrorIs(t, err, domain.ErrDuplicateInvoiceNumber)
}

func TestGet_FacturaAjenaEsNotFound(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	e.user("u2", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	inv, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
	require.NoError(t, err)

	_, err = e.invoices.Get(context.Background(), "u2", inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = e.invoices.Delete(context.Background(), "u2", inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.invoices.Get(context.Background(), "u1", inv.ID)
	assert.NoError(t, err, "el intento ajeno no borra nada")
}

func TestUpdate_FacturaAjenaEsNotFound(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	e.user("u2", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	inv, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
	require.NoError(t, err)

	notes := "cambiado por otro"
	status := string(entity.InvoiceStatusPaid)
	items := []dto.LineItemDTO{{Description: "x", Quantity: dec("1"), Rate: dec("1")}}
	_, err = e.invoices.Update(context.Background(), "u2", inv.ID, dto.UpdateInvoiceRequest{Notes: &notes, Status: &status, Items: &items})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := e.invoices.Get(context.Background(), "u1", inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Notes, got.Notes)
	assert.Equal(t, inv.Status, got.Status)
	assert.True(t, got.Total.Equal(inv.Total))
	assert.Len(t, got.Items, len(inv.Items))
}

func TestUpdate_MarcarPagadaRegistraFecha(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	inv, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
	require.NoError(t, err)
	require.Nil(t, inv.PaidAt)

	paid := string(entity.InvoiceStatusPaid)
	out, err := e.invoices.Update(context.Background(), "u1", inv.ID, dto.UpdateInvoiceRequest{Status: &paid})
	require.NoError(t, err)
	require.NotNil(t, out.PaidAt)
	assert.True(t, out.PaidAt.Equal(fixedNow))
	assert.Empty(t, out.PaymentReference)

	sent := string(entity.InvoiceStatusSent)
	out, err = e.invoices.Update(context.Background(), "u1", inv.ID, dto.UpdateInvoiceRequest{Status: &sent})
	require.NoError(t, err)
	assert.Nil(t, out.PaidAt, "al salir de Paid deja de contar como cobrada")
}

func TestUpdate_RecalculaConTasaGuardada(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	inv, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
	require.NoError(t, err)

	items := []dto.LineItemDTO{{Description: "Consultoría", Quantity: dec("3"), Rate: dec("100")}}
	notes := "gracias"
	out, err := e.invoices.Update(context.Background(), "u1", inv.ID, dto.UpdateInvoiceRequest{Items: &items, Notes: &notes})
	require.NoError(t, err)

	assert.True(t, out.SubTotal.Equal(dec("300")))
	assert.True(t, out.TaxAmount.Equal(dec("30")), "usa la tasa guardada")
	assert.True(t, out.Total.Equal(dec("330")))
	assert.Equal(t, "gracias", out.Notes)
	assert.Equal(t, inv.InvoiceNumber, out.InvoiceNumber)
}

func TestUpdate_SoloTasaRecalcula(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	inv, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
	require.NoError(t, err)

	rate := dec("20")
	out, err := e.invoices.Update(context.Background(), "u1", inv.ID, dto.UpdateInvoiceRequest{TaxRate: &rate})
	require.NoError(t, err)
	assert.True(t, out.TaxAmount.Equal(dec("25")))
	assert.True(t, out.Total.Equal(dec("150")))
}

func TestUpdate_ReintentaAnteConflicto(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	created, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
	require.NoError(t, err)

	repo := &conflictingInvoices{InvoiceRepository: e.store.Invoices(), failures: 2}
	uc := billing.NewInvoiceUseCase(billing.InvoiceDeps{
		Invoices: repo, Clients: e.store.Clients(), Users: e.store.Users(), Policy: plan.NewPolicy(10),
	})
	notes := "reintento"
	out, err := uc.Update(context.Background(), "u1", created.ID, dto.UpdateInvoiceRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "reintento", out.Notes)
	assert.Equal(t, 3, repo.calls)

	repo = &conflictingInvoices{InvoiceRepository: e.store.Invoices(), failures: 5}
	uc = billing.NewInvoiceUseCase(billing.InvoiceDeps{
		Invoices: repo, Clients: e.store.Clients(), Users: e.store.Users(), Policy: plan.NewPolicy(10),
	})
	_, err = uc.Update(context.Background(), "u1", created.ID, dto.UpdateInvoiceRequest{Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 3, repo.calls)
}

func TestUpdate_ClienteAjenoRechazado(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	e.user("u2", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	other := e.client("u2", "otro@example.com", "")
	inv, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
	require.NoError(t, err)

	_, err = e.invoices.Update(context.Background(), "u1", inv.ID, dto.UpdateInvoiceRequest{Client: &other.ID})
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestSend_DraftPasaASentUnaVez(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	inv, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
	require.NoError(t, err)

	require.NoError(t, e.invoices.Send(context.Background(), "u1", inv.ID))
	got, err := e.invoices.Get(context.Background(), "u1", inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sent", got.Status)

	require.NoError(t, e.invoices.Send(context.Background(), "u1", inv.ID), "reenviar una factura Sent no falla")
	got, _ = e.invoices.Get(context.Background(), "u1", inv.ID)
	assert.Equal(t, "Sent", got.Status)

	require.Len(t, e.mailer.sent, 2)
	assert.Equal(t, "acme@example.com", e.mailer.sent[0].To)
	assert.Equal(t, "Acme", e.mailer.sent[0].ClientName)
	assert.NotEmpty(t, e.mailer.sent[0].PDF)
	require.NotNil(t, e.mailer.sent[0].Issuer)
	assert.Equal(t, "u1", e.mailer.sent[0].Issuer.ID)
}

func TestSend_FalloDeEntregaNoCambiaEstado(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	inv, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
	require.NoError(t, err)

	e.mailer.err = errors.New("smtp 503")
	err = e.invoices.Send(context.Background(), "u1", inv.ID)
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)

	got, _ := e.invoices.Get(context.Background(), "u1", inv.ID)
	assert.Equal(t, "Draft", got.Status)
}

func TestSend_SinPDFSeEnviaIgual(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	inv, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
	require.NoError(t, err)

	e.pdf.err = errors.New("fuente no encontrada")
	require.NoError(t, e.invoices.Send(context.Background(), "u1", inv.ID))
	require.Len(t, e.mailer.sent, 1)
	assert.Nil(t, e.mailer.sent[0].PDF)
}

func TestSend_ClienteEliminadoEsFaltaDeContacto(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	inv, err := e.invoices.Create(context.Background(), actor, invoiceRequest(c.ID))
	require.NoError(t, err)
	require.NoError(t, e.clients.Delete(context.Background(), "u1", c.ID))

	err = e.invoices.Send(context.Background(), "u1", inv.ID)
	assert.ErrorIs(t, err, domain.ErrMissingContactInfo)
	assert.Empty(t, e.mailer.sent)
}

func TestSendReminderSMS(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	withPhone := e.client("u1", "acme@example.com", "+15550001111")
	noPhone := e.client("u1", "beta@example.com", "")
	ctx := context.Background()

	inv, err := e.invoices.Create(ctx, actor, invoiceRequest(withPhone.ID))
	require.NoError(t, err)
	require.NoError(t, e.invoices.SendReminderSMS(ctx, "u1", inv.ID))
	assert.Equal(t, []string{"+15550001111"}, e.texter.to)
	got, _ := e.invoices.Get(ctx, "u1", inv.ID)
	assert.Equal(t, "Draft", got.Status, "el SMS no cambia el estado")

	inv2, err := e.invoices.Create(ctx, actor, invoiceRequest(noPhone.ID))
	require.NoError(t, err)
	assert.ErrorIs(t, e.invoices.SendReminderSMS(ctx, "u1", inv2.ID), domain.ErrMissingContactInfo)

	e.texter.err = errors.New("twilio 500")
	assert.ErrorIs(t, e.invoices.SendReminderSMS(ctx, "u1", inv.ID), domain.ErrDeliveryFailed)
}

func TestInitiatePayment(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	ctx := context.Background()
	inv, err := e.invoices.Create(ctx, actor, invoiceRequest(c.ID))
	require.NoError(t, err)

	url, err := e.invoices.InitiatePayment(ctx, "u1", inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/"+inv.ID, url)
	require.Len(t, e.checkout.requests, 1)
	assert.Equal(t, "acme@example.com", e.checkout.requests[0].CustomerEmail)

	got, _ := e.invoices.Get(ctx, "u1", inv.ID)
	assert.Equal(t, "Draft", got.Status, "abrir el checkout no cambia el estado")

	_, err = e.invoices.InitiatePayment(ctx, "u2", inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInitiatePayment_Errores(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	ctx := context.Background()

	empty := invoiceRequest(c.ID)
	empty.Items = nil
	inv, err := e.invoices.Create(ctx, actor, empty)
	require.NoError(t, err)
	_, err = e.invoices.InitiatePayment(ctx, "u1", inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	inv, err = e.invoices.Create(ctx, actor, invoiceRequest(c.ID))
	require.NoError(t, err)
	e.checkout.err = errors.New("stripe timeout")
	_, err = e.invoices.InitiatePayment(ctx, "u1", inv.ID)
	assert.ErrorIs(t, err, domain.ErrGateway)

	e.checkout.err = nil
	_, err = e.store.Invoices().MarkPaid(ctx, inv.ID, "cs_1", fixedNow)
	require.NoError(t, err)
	_, err = e.invoices.InitiatePayment(ctx, "u1", inv.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestList_DisplayStatusOverdue(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	req := invoiceRequest(c.ID)
	req.DueDate = &dto.Date{Time: fixedNow.AddDate(0, 0, -1)}
	_, err := e.invoices.Create(context.Background(), actor, req)
	require.NoError(t, err)

	list, err := e.invoices.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Draft", list[0].Status)
	assert.Equal(t, "Overdue", list[0].DisplayStatus)
	require.NotNil(t, list[0].Client)
	assert.Equal(t, "acme@example.com", list[0].Client.Email)
}

func TestDelete_PagadaSeEliminaIgual(t *testing.T) {
	e := newEnv()
	actor := e.user("u1", entity.TierFree)
	c := e.client("u1", "acme@example.com", "")
	ctx := context.Background()
	inv, err := e.invoices.Create(ctx, actor, invoiceRequest(c.ID))
	require.NoError(t, err)
	_, err = e.store.Invoices().MarkPaid(ctx, inv.ID, "cs_1", fixedNow)
	require.NoError(t, err)

	require.NoError(t, e.invoices.Delete(ctx, "u1", inv.ID))
	_, err = e.invoices.Get(ctx, "u1", inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
