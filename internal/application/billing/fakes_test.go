package billing_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/plan"
	"github.com/jhoicas/invoicely-api/internal/domain/repository"
	"github.com/jhoicas/invoicely-api/internal/infrastructure/memory"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

type fakeMailer struct {
	mu   sync.Mutex
	sent []billing.InvoiceEmail
	err  error
}

func (f *fakeMailer) SendInvoice(_ context.Context, msg billing.InvoiceEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeTexter struct {
	to  []string
	err error
}

func (f *fakeTexter) SendInvoiceReminder(_ context.Context, to, _ string, _ *entity.Invoice) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	return nil
}

type fakeCheckout struct {
	requests []billing.InvoiceCheckout
	err      error
}

func (f *fakeCheckout) CreateInvoiceCheckout(_ context.Context, req billing.InvoiceCheckout) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	return "https://checkout.example/" + req.Invoice.ID, nil
}

type fakePDF struct {
	err error
}

func (f *fakePDF) GenerateInvoicePDF(_ context.Context, inv *entity.Invoice, _ *entity.Client, _ *entity.User) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-" + inv.Number), nil
}

type fakeSubscriptionGateway struct {
	customers int
	sessions  []string
	err       error
}

func (f *fakeSubscriptionGateway) CreateCustomer(_ context.Context, _ *entity.User) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.customers++
	return "cus_test", nil
}

func (f *fakeSubscriptionGateway) CreateSubscriptionCheckout(_ context.Context, customerID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sessions = append(f.sessions, customerID)
	return "https://checkout.example/sub/" + customerID, nil
}

type fakeParser struct {
	event entity.PaymentEvent
	err   error
}

func (f *fakeParser) ParseEvent(_ []byte, _ string) (entity.PaymentEvent, error) {
	return f.event, f.err
}

// conflictingInvoices devuelve ErrConflict en los primeros Update.
type conflictingInvoices struct {
	repository.InvoiceRepository
	failures int
	calls    int
}

func (c *conflictingInvoices) Update(ctx context.Context, inv *entity.Invoice) error {
	c.calls++
	if c.calls <= c.failures {
		return domain.ErrConflict
	}
	return c.InvoiceRepository.Update(ctx, inv)
}

// failingLedger falla siempre al consultar.
type failingLedger struct{ marked []string }

func (f *failingLedger) Processed(context.Context, string) (bool, error) {
	return false, errors.New("redis caído")
}

func (f *failingLedger) MarkProcessed(_ context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

type env struct {
	store    *memory.Store
	mailer   *fakeMailer
	texter   *fakeTexter
	checkout *fakeCheckout
	pdf      *fakePDF
	invoices *billing.InvoiceUseCase
	clients  *billing.ClientUseCase
}

func newEnv() *env {
	e := &env{
		store:    memory.NewStore(),
		mailer:   &fakeMailer{},
		texter:   &fakeTexter{},
		checkout: &fakeCheckout{},
		pdf:      &fakePDF{},
	}
	e.invoices = billing.NewInvoiceUseCase(billing.InvoiceDeps{
		Invoices: e.store.Invoices(),
		Clients:  e.store.Clients(),
		Users:    e.store.Users(),
		Policy:   plan.NewPolicy(10),
		Mailer:   e.mailer,
		Texter:   e.texter,
		Checkout: e.checkout,
		PDF:      e.pdf,
		Now:      func() time.Time { return fixedNow },
	})
	e.clients = billing.NewClientUseCase(e.store.Clients())
	return e
}

func (e *env) user(id string, tier entity.Tier) entity.Actor {
	_ = e.store.Users().Create(context.Background(), &entity.User{
		ID: id, Name: "User " + id, Email: id + "@example.com", Tier: tier, CreatedAt: fixedNow,
	})
	return entity.Actor{UserID: id, Tier: tier}
}

func (e *env) client(userID, email, phone string) *dto.ClientResponse {
	c, err := e.clients.Create(context.Background(), userID, dto.ClientRequest{Name: "Acme", Email: email, Phone: phone})
	if err != nil {
		panic(err)
	}
	return c
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func invoiceRequest(clientID string) dto.CreateInvoiceRequest {
	rate := dec("10")
	return dto.CreateInvoiceRequest{
		Client: clientID,
		Items: []dto.LineItemDTO{
			{Description: "Diseño", Quantity: dec("2"), Rate: dec("50")},
			{Description: "Hosting", Quantity: dec("1"), Rate: dec("25")},
		},
		TaxRate: &rate,
		DueDate: &dto.Date{Time: fixedNow.AddDate(0, 0, 30)},
	}
}
