package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

const invoiceColumns = `
	i.id, i.user_id, i.client_id, i.invoice_number, i.items,
	i.sub_total, i.tax_rate, i.tax_amount, i.total, i.currency, i.status,
	i.issue_date, i.due_date, i.notes, i.payment_reference, i.paid_at, i.version,
	i.created_at, i.updated_at`

// itemRecord forma de una línea dentro de la columna JSONB items.
type itemRecord struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Section     string          `json:"section,omitempty"`
}

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la factura con sus líneas.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Version == 0 {
		inv.Version = 1
	}
	items, err := encodeItems(inv.Items)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO invoices (id, user_id, client_id, invoice_number, items, sub_total, tax_rate, tax_amount, total,
		                      currency, status, issue_date, due_date, notes, payment_reference, paid_at, version,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err = r.q.Exec(ctx, query,
		inv.ID, inv.UserID, inv.ClientID, inv.Number, items,
		inv.SubTotal, inv.TaxRate, inv.TaxAmount, inv.Total, inv.Currency, string(inv.Status),
		inv.IssueDate, inv.DueDate, inv.Notes, inv.PaymentReference, inv.PaidAt, inv.Version,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateInvoiceNumber
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID obtiene una factura del usuario.
func (r *InvoiceRepo) GetByID(ctx context.Context, userID, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices i WHERE i.user_id = $1 AND i.id = $2`
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetWithClient obtiene la factura con el cliente completo. LEFT JOIN: el cliente pudo ser eliminado.
func (r *InvoiceRepo) GetWithClient(ctx context.Context, userID, id string) (*entity.InvoiceWithClient, error) {
	query := `
		SELECT ` + invoiceColumns + `,
		       c.id, c.name, c.email, c.phone, c.address, c.logo, c.created_at, c.updated_at
		FROM invoices i
		LEFT JOIN clients c ON c.id = i.client_id AND c.user_id = i.user_id
		WHERE i.user_id = $1 AND i.id = $2`
	var (
		cID, cName, cEmail, cPhone, cAddress, cLogo *string
		cCreated, cUpdated                          *time.Time
	)
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, userID, id),
		&cID, &cName, &cEmail, &cPhone, &cAddress, &cLogo, &cCreated, &cUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice with client: %w", err)
	}
	out := &entity.InvoiceWithClient{Invoice: inv}
	if cID != nil {
		out.Client = &entity.Client{
			ID:      *cID,
			UserID:  inv.UserID,
			Name:    derefString(cName),
			Email:   derefString(cEmail),
			Phone:   derefString(cPhone),
			Address: derefString(cAddress),
			Logo:    derefString(cLogo),
		}
		if cCreated != nil {
			out.Client.CreatedAt = *cCreated
		}
		if cUpdated != nil {
			out.Client.UpdatedAt = *cUpdated
		}
	}
	return out, nil
}

// ListByUser lista facturas del usuario con nombre y email del cliente.
func (r *InvoiceRepo) ListByUser(ctx context.Context, userID string) ([]*entity.InvoiceWithClient, error) {
	query := `
		SELECT ` + invoiceColumns + `, c.id, c.name, c.email
		FROM invoices i
		LEFT JOIN clients c ON c.id = i.client_id AND c.user_id = i.user_id
		WHERE i.user_id = $1
		ORDER BY i.created_at DESC`
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.InvoiceWithClient, 0)
	for rows.Next() {
		var cID, cName, cEmail *string
		inv, err := scanInvoice(rows, &cID, &cName, &cEmail)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		item := &entity.InvoiceWithClient{Invoice: inv}
		if cID != nil {
			item.Client = &entity.Client{ID: *cID, Name: derefString(cName), Email: derefString(cEmail)}
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// CountByUserSince cuenta facturas creadas desde since (inclusive).
func (r *InvoiceRepo) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE user_id = $1 AND created_at >= $2`, userID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return n, nil
}

// Update guarda la factura solo si version no cambió desde la lectura.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	items, err := encodeItems(inv.Items)
	if err != nil {
		return err
	}
	query := `
		UPDATE invoices
		SET client_id = $4, invoice_number = $5, items = $6, sub_total = $7, tax_rate = $8,
		    tax_amount = $9, total = $10, currency = $11, status = $12, issue_date = $13,
		    due_date = $14, notes = $15, updated_at = $16, paid_at = $17, version = version + 1
		WHERE id = $1 AND user_id = $2 AND version = $3`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.UserID, inv.Version,
		inv.ClientID, inv.Number, items, inv.SubTotal, inv.TaxRate,
		inv.TaxAmount, inv.Total, inv.Currency, string(inv.Status), inv.IssueDate,
		inv.DueDate, inv.Notes, inv.UpdatedAt, inv.PaidAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateInvoiceNumber
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		exists, err := r.exists(ctx, inv.UserID, inv.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	inv.Version++
	return nil
}

// TransitionStatus cambia el estado en un solo UPDATE condicionado al estado actual.
func (r *InvoiceRepo) TransitionStatus(ctx context.Context, userID, id string, from []entity.InvoiceStatus, to entity.InvoiceStatus) (bool, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE invoices SET status = $3, updated_at = $4, version = version + 1
		WHERE id = $1 AND user_id = $2 AND status = ANY($5)`,
		id, userID, string(to), time.Now(), allowed,
	)
	if err != nil {
		return false, fmt.Errorf("transition invoice status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	exists, err := r.exists(ctx, userID, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrNotFound
	}
	return false, nil
}

// MarkPaid marca la factura como pagada. Sin filtro de usuario: lo dispara la pasarela.
func (r *InvoiceRepo) MarkPaid(ctx context.Context, id, paymentReference string, paidAt time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE invoices
		SET status = 'Paid', payment_reference = $2, paid_at = $3, updated_at = $3, version = version + 1
		WHERE id = $1 AND status <> 'Paid'`,
		id, paymentReference, paidAt,
	)
	if err != nil {
		return false, fmt.Errorf("mark invoice paid: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	var found bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1)`, id).Scan(&found); err != nil {
		return false, fmt.Errorf("mark invoice paid: %w", err)
	}
	return found, nil
}

// Delete elimina una factura del usuario.
func (r *InvoiceRepo) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InvoiceRepo) exists(ctx context.Context, userID, id string) (bool, error) {
	var found bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1 AND user_id = $2)`, id, userID,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check invoice: %w", err)
	}
	return found, nil
}

// scanInvoice lee las columnas de invoiceColumns seguidas de extra (columnas del JOIN).
func scanInvoice(row pgx.Row, extra ...any) (*entity.Invoice, error) {
	var (
		inv    entity.Invoice
		items  []byte
		status string
	)
	dest := []any{
		&inv.ID, &inv.UserID, &inv.ClientID, &inv.Number, &items,
		&inv.SubTotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total, &inv.Currency, &status,
		&inv.IssueDate, &inv.DueDate, &inv.Notes, &inv.PaymentReference, &inv.PaidAt, &inv.Version,
		&inv.CreatedAt, &inv.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	inv.Status = entity.InvoiceStatus(status)
	decoded, err := decodeItems(items)
	if err != nil {
		return nil, err
	}
	inv.Items = decoded
	return &inv, nil
}

func encodeItems(items []entity.LineItem) ([]byte, error) {
	records := make([]itemRecord, len(items))
	for i, it := range items {
		records[i] = itemRecord{Description: it.Description, Quantity: it.Quantity, Rate: it.Rate, Section: it.Section}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	return b, nil
}

func decodeItems(raw []byte) ([]entity.LineItem, error) {
	if len(raw) == 0 {
		return []entity.LineItem{}, nil
	}
	var records []itemRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	items := make([]entity.LineItem, len(records))
	for i, rec := range records {
		items[i] = entity.LineItem{Description: rec.Description, Quantity: rec.Quantity, Rate: rec.Rate, Section: rec.Section}
	}
	return items, nil
}
