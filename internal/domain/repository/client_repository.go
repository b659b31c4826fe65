package repository

import (
	"context"

	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

// ClientRepository define el puerto de persistencia para Client.
// Toda operación recibe el userID dueño como filtro obligatorio: un cliente ajeno
// es indistinguible de uno inexistente.
type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error // domain.ErrDuplicateClient
	GetByID(ctx context.Context, userID, id string) (*entity.Client, error)
	GetByEmail(ctx context.Context, userID, email string) (*entity.Client, error)
	// ListByUser ordena por fecha de creación descendente.
	ListByUser(ctx context.Context, userID string) ([]*entity.Client, error)
	// Update usa client.UserID como filtro; domain.ErrNotFound si no coincide.
	Update(ctx context.Context, client *entity.Client) error
	Delete(ctx context.Context, userID, id string) error // domain.ErrNotFound
}
