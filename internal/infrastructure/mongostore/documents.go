package mongostore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

type userDocument struct {
	ID                string    `bson:"_id"`
	Name              string    `bson:"name"`
	Email             string    `bson:"email"`
	PasswordHash      string    `bson:"password_hash"`
	Tier              string    `bson:"tier"`
	BillingCustomerID string    `bson:"billing_customer_id,omitempty"`
	SubscriptionID    string    `bson:"subscription_id,omitempty"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

func newUserDocument(u *entity.User) userDocument {
	return userDocument{
		ID: u.ID, Name: u.Name, Email: u.Email, PasswordHash: u.PasswordHash, Tier: string(u.Tier),
		BillingCustomerID: u.BillingCustomerID, SubscriptionID: u.SubscriptionID,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (d userDocument) toEntity() *entity.User {
	return &entity.User{
		ID: d.ID, Name: d.Name, Email: d.Email, PasswordHash: d.PasswordHash, Tier: entity.Tier(d.Tier),
		BillingCustomerID: d.BillingCustomerID, SubscriptionID: d.SubscriptionID,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type clientDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Phone     string    `bson:"phone"`
	Address   string    `bson:"address"`
	Logo      string    `bson:"logo"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func newClientDocument(c *entity.Client) clientDocument {
	return clientDocument{
		ID: c.ID, UserID: c.UserID, Name: c.Name, Email: c.Email, Phone: c.Phone,
		Address: c.Address, Logo: c.Logo, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

func (d clientDocument) toEntity() *entity.Client {
	return &entity.Client{
		ID: d.ID, UserID: d.UserID, Name: d.Name, Email: d.Email, Phone: d.Phone,
		Address: d.Address, Logo: d.Logo, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type itemDocument struct {
	Description string               `bson:"description"`
	Quantity    primitive.Decimal128 `bson:"quantity"`
	Rate        primitive.Decimal128 `bson:"rate"`
	Section     string               `bson:"section,omitempty"`
}

type invoiceDocument struct {
	ID               string               `bson:"_id"`
	UserID           string               `bson:"user_id"`
	ClientID         string               `bson:"client_id"`
	Number           string               `bson:"invoice_number"`
	Items            []itemDocument       `bson:"items"`
	SubTotal         primitive.Decimal128 `bson:"sub_total"`
	TaxRate          primitive.Decimal128 `bson:"tax_rate"`
	TaxAmount        primitive.Decimal128 `bson:"tax_amount"`
	Total            primitive.Decimal128 `bson:"total"`
	Currency         string               `bson:"currency"`
	Status           string               `bson:"status"`
	IssueDate        time.Time            `bson:"issue_date"`
	DueDate          time.Time            `bson:"due_date"`
	Notes            string               `bson:"notes"`
	PaymentReference string               `bson:"payment_reference,omitempty"`
	PaidAt           *time.Time           `bson:"paid_at,omitempty"`
	Version          int64                `bson:"version"`
	CreatedAt        time.Time            `bson:"created_at"`
	UpdatedAt        time.Time            `bson:"updated_at"`
}

func newInvoiceDocument(inv *entity.Invoice) (invoiceDocument, error) {
	doc := invoiceDocument{
		ID: inv.ID, UserID: inv.UserID, ClientID: inv.ClientID, Number: inv.Number,
		Currency: inv.Currency, Status: string(inv.Status), IssueDate: inv.IssueDate, DueDate: inv.DueDate,
		Notes: inv.Notes, PaymentReference: inv.PaymentReference, PaidAt: inv.PaidAt,
		Version: inv.Version, CreatedAt: inv.CreatedAt, UpdatedAt: inv.UpdatedAt,
		Items: make([]itemDocument, 0, len(inv.Items)),
	}
	var err error
	for _, it := range inv.Items {
		item := itemDocument{Description: it.Description, Section: it.Section}
		if item.Quantity, err = toDecimal128(it.Quantity); err != nil {
			return doc, err
		}
		if item.Rate, err = toDecimal128(it.Rate); err != nil {
			return doc, err
		}
		doc.Items = append(doc.Items, item)
	}
	if doc.SubTotal, err = toDecimal128(inv.SubTotal); err != nil {
		return doc, err
	}
	if doc.TaxRate, err = toDecimal128(inv.TaxRate); err != nil {
		return doc, err
	}
	if doc.TaxAmount, err = toDecimal128(inv.TaxAmount); err != nil {
		return doc, err
	}
	if doc.Total, err = toDecimal128(inv.Total); err != nil {
		return doc, err
	}
	return doc, nil
}

func (d invoiceDocument) toEntity() (*entity.Invoice, error) {
	inv := &entity.Invoice{
		ID: d.ID, UserID: d.UserID, ClientID: d.ClientID, Number: d.Number,
		Currency: d.Currency, Status: entity.InvoiceStatus(d.Status), IssueDate: d.IssueDate, DueDate: d.DueDate,
		Notes: d.Notes, PaymentReference: d.PaymentReference, PaidAt: d.PaidAt,
		Version: d.Version, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
		Items: make([]entity.LineItem, 0, len(d.Items)),
	}
	var err error
	for _, it := range d.Items {
		item := entity.LineItem{Description: it.Description, Section: it.Section}
		if item.Quantity, err = fromDecimal128(it.Quantity); err != nil {
			return nil, err
		}
		if item.Rate, err = fromDecimal128(it.Rate); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, item)
	}
	if inv.SubTotal, err = fromDecimal128(d.SubTotal); err != nil {
		return nil, err
	}
	if inv.TaxRate, err = fromDecimal128(d.TaxRate); err != nil {
		return nil, err
	}
	if inv.TaxAmount, err = fromDecimal128(d.TaxAmount); err != nil {
		return nil, err
	}
	if inv.Total, err = fromDecimal128(d.Total); err != nil {
		return nil, err
	}
	return inv, nil
}

// toDecimal128 conserva el valor exacto (34 dígitos significativos).
func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("decimal %s fuera de rango: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decimal128 %s inválido: %w", v.String(), err)
	}
	return d, nil
}
