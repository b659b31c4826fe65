package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/repository"
)

var _ repository.ClientRepository = (*ClientRepo)(nil)

const clientColumns = `id, user_id, name, email, phone, address, logo, created_at, updated_at`

// ClientRepo implementación de ClientRepository (usable con pool o tx).
type ClientRepo struct {
	q Querier
}

// NewClientRepository construye el adaptador. Pasar pool o tx (Querier).
func NewClientRepository(q Querier) *ClientRepo {
	return &ClientRepo{q: q}
}

// Create persiste un nuevo cliente.
func (r *ClientRepo) Create(ctx context.Context, c *entity.Client) error {
	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Address, c.Logo, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateClient
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetByID obtiene un cliente del usuario.
func (r *ClientRepo) GetByID(ctx context.Context, userID, id string) (*entity.Client, error) {
	return r.findOne(ctx, `WHERE user_id = $1 AND id = $2`, userID, id)
}

// GetByEmail obtiene un cliente del usuario por email.
func (r *ClientRepo) GetByEmail(ctx context.Context, userID, email string) (*entity.Client, error) {
	return r.findOne(ctx, `WHERE user_id = $1 AND lower(email) = lower($2)`, userID, email)
}

// ListByUser lista los clientes del usuario, más recientes primero.
func (r *ClientRepo) ListByUser(ctx context.Context, userID string) ([]*entity.Client, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Client, 0)
	for rows.Next() {
		var c entity.Client
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Logo, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// Update actualiza un cliente; el filtro por user_id impide tocar clientes ajenos.
func (r *ClientRepo) Update(ctx context.Context, c *entity.Client) error {
	query := `
		UPDATE clients SET name = $3, email = $4, phone = $5, address = $6, logo = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2`
	tag, err := r.q.Exec(ctx, query,
		c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Address, c.Logo, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateClient
		}
		return fmt.Errorf("update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina un cliente del usuario. Sus facturas se conservan.
func (r *ClientRepo) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM clients WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ClientRepo) findOne(ctx context.Context, where string, args ...any) (*entity.Client, error) {
	var c entity.Client
	err := r.q.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients `+where, args...).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Logo, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}
