package repository

import (
	"context"

	"github.com/jhoicas/invoicely-api/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
// Los Get* devuelven (nil, nil) si no existe.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error // domain.ErrEmailAlreadyExists
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByBillingCustomerID(ctx context.Context, customerID string) (*entity.User, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*entity.User, error)
	// SetBillingCustomerID guarda la referencia del cliente en la pasarela.
	SetBillingCustomerID(ctx context.Context, userID, customerID string) error
	// UpdateSubscription escribe plan y suscripción en una sola operación (last-write-wins).
	UpdateSubscription(ctx context.Context, userID string, tier entity.Tier, subscriptionID string) error
}
