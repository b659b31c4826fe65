package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/repository"
)

var (
	_ repository.UserRepository    = (*UserRepo)(nil)
	_ repository.ClientRepository  = (*ClientRepo)(nil)
	_ repository.InvoiceRepository = (*InvoiceRepo)(nil)
)

// ── Users ─────────────────────────────────────────────────────────────────────

// UserRepo implementación de UserRepository sobre la colección users.
type UserRepo struct {
	coll *mongo.Collection
}

// Create persiste un usuario nuevo.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if _, err := r.coll.InsertOne(ctx, newUserDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID obtiene un usuario por ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail obtiene un usuario por email (se guarda en minúsculas).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByBillingCustomerID obtiene el usuario de un cliente de la pasarela.
func (r *UserRepo) GetByBillingCustomerID(ctx context.Context, customerID string) (*entity.User, error) {
	if customerID == "" {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"billing_customer_id": customerID})
}

// GetBySubscriptionID obtiene el usuario dueño de la suscripción.
func (r *UserRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*entity.User, error) {
	if subscriptionID == "" {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"subscription_id": subscriptionID})
}

// SetBillingCustomerID guarda la referencia del cliente en la pasarela.
func (r *UserRepo) SetBillingCustomerID(ctx context.Context, userID, customerID string) error {
	return r.set(ctx, userID, bson.M{"billing_customer_id": customerID})
}

// UpdateSubscription escribe plan y suscripción en un único documento.
func (r *UserRepo) UpdateSubscription(ctx context.Context, userID string, tier entity.Tier, subscriptionID string) error {
	return r.set(ctx, userID, bson.M{"tier": string(tier), "subscription_id": subscriptionID})
}

func (r *UserRepo) set(ctx context.Context, userID string, fields bson.M) error {
	fields["updated_at"] = time.Now()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return doc.toEntity(), nil
}

// ── Clients ───────────────────────────────────────────────────────────────────

// ClientRepo implementación de ClientRepository sobre la colección clients.
type ClientRepo struct {
	coll *mongo.Collection
}

// Create persiste un cliente nuevo.
func (r *ClientRepo) Create(ctx context.Context, client *entity.Client) error {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	if _, err := r.coll.InsertOne(ctx, newClientDocument(client)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateClient
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetByID obtiene un cliente del usuario.
func (r *ClientRepo) GetByID(ctx context.Context, userID, id string) (*entity.Client, error) {
	return r.findOne(ctx, bson.M{"_id": id, "user_id": userID})
}

// GetByEmail obtiene un cliente del usuario por email.
func (r *ClientRepo) GetByEmail(ctx context.Context, userID, email string) (*entity.Client, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "email": email})
}

// ListByUser lista los clientes del usuario, más recientes primero.
func (r *ClientRepo) ListByUser(ctx context.Context, userID string) ([]*entity.Client, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer cursor.Close(ctx)

	list := make([]*entity.Client, 0)
	for cursor.Next(ctx) {
		var doc clientDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode client: %w", err)
		}
		list = append(list, doc.toEntity())
	}
	return list, cursor.Err()
}

// Update reemplaza los campos editables de un cliente del usuario.
func (r *ClientRepo) Update(ctx context.Context, client *entity.Client) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": client.ID, "user_id": client.UserID},
		bson.M{"$set": bson.M{
			"name": client.Name, "email": client.Email, "phone": client.Phone,
			"address": client.Address, "logo": client.Logo, "updated_at": client.UpdatedAt,
		}},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateClient
		}
		return fmt.Errorf("update client: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina un cliente del usuario.
func (r *ClientRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ClientRepo) findOne(ctx context.Context, filter bson.M) (*entity.Client, error) {
	var doc clientDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return doc.toEntity(), nil
}

// ── Invoices ──────────────────────────────────────────────────────────────────

// InvoiceRepo implementación de InvoiceRepository sobre la colección invoices.
type InvoiceRepo struct {
	coll    *mongo.Collection
	clients *mongo.Collection
}

// Create persiste una factura nueva.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Version == 0 {
		inv.Version = 1
	}
	doc, err := newInvoiceDocument(inv)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateInvoiceNumber
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID obtiene una factura del usuario.
func (r *InvoiceRepo) GetByID(ctx context.Context, userID, id string) (*entity.Invoice, error) {
	var doc invoiceDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return doc.toEntity()
}

// GetWithClient obtiene la factura y luego su cliente (nil si fue eliminado).
func (r *InvoiceRepo) GetWithClient(ctx context.Context, userID, id string) (*entity.InvoiceWithClient, error) {
	inv, err := r.GetByID(ctx, userID, id)
	if err != nil || inv == nil {
		return nil, err
	}
	out := &entity.InvoiceWithClient{Invoice: inv}
	var doc clientDocument
	err = r.clients.FindOne(ctx, bson.M{"_id": inv.ClientID, "user_id": userID}).Decode(&doc)
	switch {
	case err == nil:
		out.Client = doc.toEntity()
	case errors.Is(err, mongo.ErrNoDocuments):
	default:
		return nil, fmt.Errorf("get invoice client: %w", err)
	}
	return out, nil
}

// ListByUser lista facturas del usuario con el resumen del cliente (dos consultas: facturas y clientes).
func (r *InvoiceRepo) ListByUser(ctx context.Context, userID string) ([]*entity.InvoiceWithClient, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer cursor.Close(ctx)

	list := make([]*entity.InvoiceWithClient, 0)
	clientIDs := make([]string, 0)
	seen := make(map[string]bool)
	for cursor.Next(ctx) {
		var doc invoiceDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		inv, err := doc.toEntity()
		if err != nil {
			return nil, err
		}
		list = append(list, &entity.InvoiceWithClient{Invoice: inv})
		if !seen[inv.ClientID] {
			seen[inv.ClientID] = true
			clientIDs = append(clientIDs, inv.ClientID)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	if len(clientIDs) == 0 {
		return list, nil
	}

	summaries, err := r.clientSummaries(ctx, userID, clientIDs)
	if err != nil {
		return nil, err
	}
	for _, item := range list {
		item.Client = summaries[item.Invoice.ClientID]
	}
	return list, nil
}

func (r *InvoiceRepo) clientSummaries(ctx context.Context, userID string, ids []string) (map[string]*entity.Client, error) {
	cursor, err := r.clients.Find(ctx,
		bson.M{"user_id": userID, "_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "email": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("list invoice clients: %w", err)
	}
	defer cursor.Close(ctx)

	out := make(map[string]*entity.Client, len(ids))
	for cursor.Next(ctx) {
		var doc clientDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode client: %w", err)
		}
		out[doc.ID] = &entity.Client{ID: doc.ID, Name: doc.Name, Email: doc.Email}
	}
	return out, cursor.Err()
}

// CountByUserSince cuenta facturas creadas desde since (inclusive).
func (r *InvoiceRepo) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"user_id": userID, "created_at": bson.M{"$gte": since}})
	if err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return int(n), nil
}

// Update reemplaza la factura si la versión guardada coincide con la leída.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	doc, err := newInvoiceDocument(inv)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": inv.ID, "user_id": inv.UserID, "version": inv.Version},
		bson.M{
			"$set": bson.M{
				"client_id": doc.ClientID, "invoice_number": doc.Number, "items": doc.Items,
				"sub_total": doc.SubTotal, "tax_rate": doc.TaxRate, "tax_amount": doc.TaxAmount,
				"total": doc.Total, "currency": doc.Currency, "status": doc.Status,
				"issue_date": doc.IssueDate, "due_date": doc.DueDate, "notes": doc.Notes,
				"updated_at": doc.UpdatedAt, "paid_at": doc.PaidAt,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateInvoiceNumber
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	if res.MatchedCount == 0 {
		exists, err := r.exists(ctx, bson.M{"_id": inv.ID, "user_id": inv.UserID})
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

// TransitionStatus cambia el estado con un único update condicionado al estado actual.
func (r *InvoiceRepo) TransitionStatus(ctx context.Context, userID, id string, from []entity.InvoiceStatus, to entity.InvoiceStatus) (bool, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID, "status": bson.M{"$in": allowed}},
		bson.M{"$set": bson.M{"status": string(to), "updated_at": time.Now()}, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return false, fmt.Errorf("transition invoice status: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	exists, err := r.exists(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrNotFound
	}
	return false, nil
}

// MarkPaid marca la factura como pagada si aún no lo está.
func (r *InvoiceRepo) MarkPaid(ctx context.Context, id, paymentReference string, paidAt time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": string(entity.InvoiceStatusPaid)}},
		bson.M{
			"$set": bson.M{
				"status": string(entity.InvoiceStatusPaid), "payment_reference": paymentReference,
				"paid_at": paidAt, "updated_at": paidAt,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, fmt.Errorf("mark invoice paid: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	return r.exists(ctx, bson.M{"_id": id})
}

// Delete elimina una factura del usuario.
func (r *InvoiceRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InvoiceRepo) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check invoice: %w", err)
	}
	return n > 0, nil
}
