package repository

import (
	"context"
	"time"

	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice.
// Las operaciones de usuario van filtradas por userID; MarkPaid no, porque lo dispara la pasarela.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error // domain.ErrDuplicateInvoiceNumber
	GetByID(ctx context.Context, userID, id string) (*entity.Invoice, error)
	// GetWithClient devuelve la factura con el cliente completo (nil si fue eliminado).
	GetWithClient(ctx context.Context, userID, id string) (*entity.InvoiceWithClient, error)
	// ListByUser devuelve facturas con resumen del cliente (nombre y email), más recientes primero.
	ListByUser(ctx context.Context, userID string) ([]*entity.InvoiceWithClient, error)
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error)
	// Update es condicional a invoice.Version: domain.ErrConflict si otro escritor ganó,
	// domain.ErrNotFound si ya no existe. Incrementa Version al guardar.
	Update(ctx context.Context, invoice *entity.Invoice) error
	// TransitionStatus cambia el estado solo si el actual está en from. Devuelve si hubo cambio.
	TransitionStatus(ctx context.Context, userID, id string, from []entity.InvoiceStatus, to entity.InvoiceStatus) (bool, error)
	// MarkPaid marca la factura como pagada (idempotente). Devuelve false si no existe.
	MarkPaid(ctx context.Context, id, paymentReference string, paidAt time.Time) (bool, error)
	Delete(ctx context.Context, userID, id string) error // domain.ErrNotFound
}
