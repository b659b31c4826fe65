package billing

import (
	"context"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/repository"
)

// ClientUseCase casos de uso para los clientes del freelancer.
type ClientUseCase struct {
	repo repository.ClientRepository
}

// NewClientUseCase construye el caso de uso.
func NewClientUseCase(repo repository.ClientRepository) *ClientUseCase {
	return &ClientUseCase{repo: repo}
}

// Create crea un nuevo cliente. El email es único por usuario.
func (uc *ClientUseCase) Create(ctx context.Context, userID string, in dto.ClientRequest) (*dto.ClientResponse, error) {
	in = normalizeClient(in)
	if err := validateClient(in); err != nil {
		return nil, err
	}
	existing, err := uc.repo.GetByEmail(ctx, userID, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateClient
	}
	now := time.Now()
	client := &entity.Client{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
		Logo:      in.Logo,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, client); err != nil {
		return nil, err
	}
	return toClientResponse(client), nil
}

// List lista los clientes del usuario, más recientes primero.
func (uc *ClientUseCase) List(ctx context.Context, userID string) ([]*dto.ClientResponse, error) {
	list, err := uc.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.ClientResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toClientResponse(c))
	}
	return out, nil
}

// Get obtiene un cliente del usuario. Ajeno o inexistente: domain.ErrNotFound.
func (uc *ClientUseCase) Get(ctx context.Context, userID, id string) (*dto.ClientResponse, error) {
	c, err := uc.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return toClientResponse(c), nil
}

// Update reemplaza los datos del cliente.
func (uc *ClientUseCase) Update(ctx context.Context, userID, id string, in dto.ClientRequest) (*dto.ClientResponse, error) {
	in = normalizeClient(in)
	if err := validateClient(in); err != nil {
		return nil, err
	}
	current, err := uc.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}
	current.Name = in.Name
	current.Email = in.Email
	current.Phone = in.Phone
	current.Address = in.Address
	current.Logo = in.Logo
	current.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, current); err != nil {
		return nil, err
	}
	return toClientResponse(current), nil
}

// Delete elimina el cliente. Sus facturas se conservan con el cliente sin poblar.
func (uc *ClientUseCase) Delete(ctx context.Context, userID, id string) error {
	return uc.repo.Delete(ctx, userID, id)
}

func normalizeClient(in dto.ClientRequest) dto.ClientRequest {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.Logo = strings.TrimSpace(in.Logo)
	return in
}

func validateClient(in dto.ClientRequest) error {
	if in.Name == "" {
		return domain.Invalid("name es obligatorio")
	}
	if !govalidator.IsEmail(in.Email) {
		return domain.Invalid("email inválido")
	}
	if in.Logo != "" && !govalidator.IsURL(in.Logo) {
		return domain.Invalid("logo debe ser una URL")
	}
	return nil
}
