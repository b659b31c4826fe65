// Package memory implementa los repositorios en memoria del proceso.
// Se usa con STORE_DRIVER=memory en desarrollo y como backend de los tests de casos de uso.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/repository"
)

var (
	_ repository.UserRepository    = (*UserRepo)(nil)
	_ repository.ClientRepository  = (*ClientRepo)(nil)
	_ repository.InvoiceRepository = (*InvoiceRepo)(nil)
)

// Store datos compartidos por los tres repositorios (necesario para poblar clientes).
// Un único mutex hace atómica cada operación, igual que un documento en el store real.
type Store struct {
	mu       sync.RWMutex
	users    map[string]entity.User
	clients  map[string]entity.Client
	invoices map[string]*entity.Invoice
}

// NewStore construye un store vacío.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]entity.User),
		clients:  make(map[string]entity.Client),
		invoices: make(map[string]*entity.Invoice),
	}
}

// Users devuelve el repositorio de usuarios.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Clients devuelve el repositorio de clientes.
func (s *Store) Clients() *ClientRepo { return &ClientRepo{s: s} }

// Invoices devuelve el repositorio de facturas.
func (s *Store) Invoices() *InvoiceRepo { return &InvoiceRepo{s: s} }

// ── Users ─────────────────────────────────────────────────────────────────────

// UserRepo implementación en memoria de UserRepository.
type UserRepo struct{ s *Store }

// Create persiste un usuario nuevo.
func (r *UserRepo) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrEmailAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	r.s.users[user.ID] = *user
	return nil
}

// GetByID obtiene un usuario por ID.
func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id }), nil
}

// GetByEmail obtiene un usuario por email (sin distinguir mayúsculas).
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

// GetByBillingCustomerID obtiene un usuario por su cliente en la pasarela.
func (r *UserRepo) GetByBillingCustomerID(_ context.Context, customerID string) (*entity.User, error) {
	if customerID == "" {
		return nil, nil
	}
	return r.find(func(u entity.User) bool { return u.BillingCustomerID == customerID }), nil
}

// GetBySubscriptionID obtiene un usuario por su suscripción.
func (r *UserRepo) GetBySubscriptionID(_ context.Context, subscriptionID string) (*entity.User, error) {
	if subscriptionID == "" {
		return nil, nil
	}
	return r.find(func(u entity.User) bool { return u.SubscriptionID == subscriptionID }), nil
}

// SetBillingCustomerID guarda la referencia del cliente en la pasarela.
func (r *UserRepo) SetBillingCustomerID(_ context.Context, userID, customerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.BillingCustomerID = customerID
	u.UpdatedAt = time.Now()
	r.s.users[userID] = u
	return nil
}

// UpdateSubscription escribe plan y suscripción.
func (r *UserRepo) UpdateSubscription(_ context.Context, userID string, tier entity.Tier, subscriptionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Tier = tier
	u.SubscriptionID = subscriptionID
	u.UpdatedAt = time.Now()
	r.s.users[userID] = u
	return nil
}

func (r *UserRepo) find(match func(entity.User) bool) *entity.User {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			out := u
			return &out
		}
	}
	return nil
}

// ── Clients ───────────────────────────────────────────────────────────────────

// ClientRepo implementación en memoria de ClientRepository.
type ClientRepo struct{ s *Store }

// Create persiste un cliente; el email es único por usuario.
func (r *ClientRepo) Create(_ context.Context, client *entity.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.emailTaken(client.UserID, client.Email, "") {
		return domain.ErrDuplicateClient
	}
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	r.s.clients[client.ID] = *client
	return nil
}

// GetByID obtiene un cliente del usuario.
func (r *ClientRepo) GetByID(_ context.Context, userID, id string) (*entity.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.clients[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	return &c, nil
}

// GetByEmail obtiene un cliente del usuario por email.
func (r *ClientRepo) GetByEmail(_ context.Context, userID, email string) (*entity.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.clients {
		if c.UserID == userID && strings.EqualFold(c.Email, email) {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

// ListByUser lista los clientes del usuario, más recientes primero.
func (r *ClientRepo) ListByUser(_ context.Context, userID string) ([]*entity.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.Client, 0)
	for _, c := range r.s.clients {
		if c.UserID == userID {
			out := c
			list = append(list, &out)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

// Update actualiza un cliente del usuario.
func (r *ClientRepo) Update(_ context.Context, client *entity.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.clients[client.ID]
	if !ok || current.UserID != client.UserID {
		return domain.ErrNotFound
	}
	if r.emailTaken(client.UserID, client.Email, client.ID) {
		return domain.ErrDuplicateClient
	}
	client.CreatedAt = current.CreatedAt
	r.s.clients[client.ID] = *client
	return nil
}

// Delete elimina un cliente del usuario.
func (r *ClientRepo) Delete(_ context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clients[id]
	if !ok || c.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.s.clients, id)
	return nil
}

// emailTaken requiere el lock tomado.
func (r *ClientRepo) emailTaken(userID, email, exceptID string) bool {
	for _, c := range r.s.clients {
		if c.UserID == userID && c.ID != exceptID && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

// ── Invoices ──────────────────────────────────────────────────────────────────

// InvoiceRepo implementación en memoria de InvoiceRepository.
type InvoiceRepo struct{ s *Store }

// Create persiste una factura; el número es único global.
func (r *InvoiceRepo) Create(_ context.Context, invoice *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.numberTaken(invoice.Number, "") {
		return domain.ErrDuplicateInvoiceNumber
	}
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	if invoice.Version == 0 {
		invoice.Version = 1
	}
	r.s.invoices[invoice.ID] = invoice.Clone()
	return nil
}

// GetByID obtiene una factura del usuario.
func (r *InvoiceRepo) GetByID(_ context.Context, userID, id string) (*entity.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.invoices[id]
	if !ok || inv.UserID != userID {
		return nil, nil
	}
	return inv.Clone(), nil
}

// GetWithClient obtiene una factura del usuario con el cliente completo.
func (r *InvoiceRepo) GetWithClient(_ context.Context, userID, id string) (*entity.InvoiceWithClient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.invoices[id]
	if !ok || inv.UserID != userID {
		return nil, nil
	}
	out := &entity.InvoiceWithClient{Invoice: inv.Clone()}
	if c, ok := r.s.clients[inv.ClientID]; ok && c.UserID == userID {
		out.Client = &c
	}
	return out, nil
}

// ListByUser lista facturas del usuario con nombre y email del cliente, más recientes primero.
func (r *InvoiceRepo) ListByUser(_ context.Context, userID string) ([]*entity.InvoiceWithClient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.InvoiceWithClient, 0)
	for _, inv := range r.s.invoices {
		if inv.UserID != userID {
			continue
		}
		item := &entity.InvoiceWithClient{Invoice: inv.Clone()}
		if c, ok := r.s.clients[inv.ClientID]; ok && c.UserID == userID {
			item.Client = &entity.Client{ID: c.ID, Name: c.Name, Email: c.Email}
		}
		list = append(list, item)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Invoice.CreatedAt.After(list[j].Invoice.CreatedAt)
	})
	return list, nil
}

// CountByUserSince cuenta facturas creadas por el usuario desde since (inclusive).
func (r *InvoiceRepo) CountByUserSince(_ context.Context, userID string, since time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, inv := range r.s.invoices {
		if inv.UserID == userID && !inv.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// Update guarda la factura si nadie la modificó desde que se leyó.
func (r *InvoiceRepo) Update(_ context.Context, invoice *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.invoices[invoice.ID]
	if !ok || current.UserID != invoice.UserID {
		return domain.ErrNotFound
	}
	if current.Version != invoice.Version {
		return domain.ErrConflict
	}
	if r.numberTaken(invoice.Number, invoice.ID) {
		return domain.ErrDuplicateInvoiceNumber
	}
	invoice.Version++
	invoice.CreatedAt = current.CreatedAt
	r.s.invoices[invoice.ID] = invoice.Clone()
	return nil
}

// TransitionStatus cambia el estado solo si el actual está en from.
func (r *InvoiceRepo) TransitionStatus(_ context.Context, userID, id string, from []entity.InvoiceStatus, to entity.InvoiceStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok || inv.UserID != userID {
		return false, domain.ErrNotFound
	}
	if !containsStatus(from, inv.Status) {
		return false, nil
	}
	inv.Status = to
	inv.Version++
	inv.UpdatedAt = time.Now()
	return true, nil
}

// MarkPaid marca la factura como pagada.
func (r *InvoiceRepo) MarkPaid(_ context.Context, id, paymentReference string, paidAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return false, nil
	}
	if inv.Status == entity.InvoiceStatusPaid {
		return true, nil
	}
	inv.Status = entity.InvoiceStatusPaid
	inv.PaymentReference = paymentReference
	t := paidAt
	inv.PaidAt = &t
	inv.Version++
	inv.UpdatedAt = time.Now()
	return true, nil
}

// Delete elimina una factura del usuario.
func (r *InvoiceRepo) Delete(_ context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok || inv.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.s.invoices, id)
	return nil
}

// numberTaken requiere el lock tomado.
func (r *InvoiceRepo) numberTaken(number, exceptID string) bool {
	for _, inv := range r.s.invoices {
		if inv.Number == number && inv.ID != exceptID {
			return true
		}
	}
	return false
}

func containsStatus(list []entity.InvoiceStatus, s entity.InvoiceStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
