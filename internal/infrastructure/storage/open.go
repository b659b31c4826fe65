// Package storage abre el motor de persistencia configurado en STORE_DRIVER.
package storage

import (
	"context"
	"fmt"

	"github.com/jhoicas/invoicely-api/internal/domain/repository"
	"github.com/jhoicas/invoicely-api/internal/infrastructure/memory"
	"github.com/jhoicas/invoicely-api/internal/infrastructure/mongostore"
	"github.com/jhoicas/invoicely-api/internal/infrastructure/postgres"
	"github.com/jhoicas/invoicely-api/pkg/config"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

// Repositories repositorios de un mismo motor.
type Repositories struct {
	Users    repository.UserRepository
	Clients  repository.ClientRepository
	Invoices repository.InvoiceRepository

	close func()
}

// Close libera la conexión subyacente. Seguro de llamar varias veces.
func (r *Repositories) Close() {
	if r.close != nil {
		r.close()
		r.close = nil
	}
}

// Open conecta al driver indicado. En postgres aplica además las migraciones pendientes.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Repositories, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres, "":
		pool, err := postgres.NewPool(ctx, cfg.DB, log)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if err := postgres.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migraciones: %w", err)
		}
		return &Repositories{
			Users:    postgres.NewUserRepository(pool),
			Clients:  postgres.NewClientRepository(pool),
			Invoices: postgres.NewInvoiceRepository(pool),
			close:    pool.Close,
		}, nil

	case config.StoreDriverMongo:
		store, err := mongostore.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("conexión a MongoDB: %w", err)
		}
		return &Repositories{
			Users:    store.Users(),
			Clients:  store.Clients(),
			Invoices: store.Invoices(),
			close: func() {
				if err := store.Close(context.Background()); err != nil {
					log.Warn().Err(err).Msg("cerrar MongoDB")
				}
			},
		}, nil

	case config.StoreDriverMemory:
		log.Warn().Msg("STORE_DRIVER=memory: los datos se pierden al reiniciar")
		store := memory.NewStore()
		return &Repositories{Users: store.Users(), Clients: store.Clients(), Invoices: store.Invoices()}, nil
	}
	return nil, fmt.Errorf("STORE_DRIVER desconocido: %q", cfg.Store.Driver)
}
