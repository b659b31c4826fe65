package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

const userColumns = `id, name, email, password_hash, tier, billing_customer_id, subscription_id, created_at, updated_at`

// UserRepo implementación del puerto UserRepository sobre PostgreSQL.
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador de persistencia para usuarios.
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

// Create persiste un nuevo usuario.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Tier),
		nullIfEmpty(user.BillingCustomerID), nullIfEmpty(user.SubscriptionID),
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID obtiene un usuario por ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// GetByEmail obtiene un usuario por email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

// GetByBillingCustomerID obtiene el usuario asociado a un cliente de la pasarela.
func (r *UserRepo) GetByBillingCustomerID(ctx context.Context, customerID string) (*entity.User, error) {
	if customerID == "" {
		return nil, nil
	}
	return r.findOne(ctx, `WHERE billing_customer_id = $1`, customerID)
}

// GetBySubscriptionID obtiene el usuario dueño de una suscripción.
func (r *UserRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*entity.User, error) {
	if subscriptionID == "" {
		return nil, nil
	}
	return r.findOne(ctx, `WHERE subscription_id = $1`, subscriptionID)
}

// SetBillingCustomerID guarda la referencia del cliente en la pasarela.
func (r *UserRepo) SetBillingCustomerID(ctx context.Context, userID, customerID string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET billing_customer_id = $2, updated_at = $3 WHERE id = $1`,
		userID, nullIfEmpty(customerID), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("set billing customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdateSubscription escribe plan y suscripción en un solo UPDATE.
func (r *UserRepo) UpdateSubscription(ctx context.Context, userID string, tier entity.Tier, subscriptionID string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET tier = $2, subscription_id = $3, updated_at = $4 WHERE id = $1`,
		userID, string(tier), nullIfEmpty(subscriptionID), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) findOne(ctx context.Context, where string, args ...any) (*entity.User, error) {
	var (
		u                        entity.User
		tier                     string
		customerID, subscription *string
	)
	err := r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, args...).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &tier, &customerID, &subscription,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Tier = entity.Tier(tier)
	u.BillingCustomerID = derefString(customerID)
	u.SubscriptionID = derefString(subscription)
	return &u, nil
}
