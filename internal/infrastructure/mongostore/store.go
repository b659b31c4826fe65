// Package mongostore implementa los repositorios sobre MongoDB (STORE_DRIVER=mongo).
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jhoicas/invoicely-api/pkg/config"
)

const (
	usersCollection    = "users"
	clientsCollection  = "clients"
	invoicesCollection = "invoices"
)

// Store agrupa el cliente y la base de datos; cada repo toma su colección de aquí.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect abre la conexión, hace ping y crea los índices.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("conectar MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	s := &Store{client: client, db: client.Database(cfg.Database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Close cierra la conexión.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Users devuelve el repositorio de usuarios.
func (s *Store) Users() *UserRepo { return &UserRepo{coll: s.db.Collection(usersCollection)} }

// Clients devuelve el repositorio de clientes.
func (s *Store) Clients() *ClientRepo { return &ClientRepo{coll: s.db.Collection(clientsCollection)} }

// Invoices devuelve el repositorio de facturas.
func (s *Store) Invoices() *InvoiceRepo {
	return &InvoiceRepo{
		coll:    s.db.Collection(invoicesCollection),
		clients: s.db.Collection(clientsCollection),
	}
}

// ensureIndexes crea los índices únicos que sostienen las reglas de unicidad.
func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "billing_customer_id", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "subscription_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		clientsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		invoicesCollection: {
			{Keys: bson.D{{Key: "invoice_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("crear índices de %s: %w", name, err)
		}
	}
	return nil
}
