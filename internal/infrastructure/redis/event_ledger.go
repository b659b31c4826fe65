// Package redis guarda los IDs de eventos de webhook ya procesados.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jhoicas/invoicely-api/pkg/config"
)

// DefaultEventTTL cubre la ventana de reintentos de la pasarela (3 días).
const DefaultEventTTL = 72 * time.Hour

const keyPrefix = "webhook:event:"

// EventLedger registro de eventos procesados sobre Redis, compartido entre réplicas.
type EventLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient crea el cliente y verifica la conexión.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("conectar Redis: %w", err)
	}
	return client, nil
}

// NewEventLedger construye el registro; ttl <= 0 usa DefaultEventTTL.
func NewEventLedger(client *redis.Client, ttl time.Duration) *EventLedger {
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &EventLedger{client: client, ttl: ttl}
}

// Processed indica si el evento ya se aplicó.
func (l *EventLedger) Processed(ctx context.Context, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("consultar evento %s: %w", eventID, err)
	}
	return n > 0, nil
}

// MarkProcessed registra el evento; si ya existía no cambia nada.
func (l *EventLedger) MarkProcessed(ctx context.Context, eventID string) error {
	if err := l.client.SetNX(ctx, keyPrefix+eventID, time.Now().Unix(), l.ttl).Err(); err != nil {
		return fmt.Errorf("registrar evento %s: %w", eventID, err)
	}
	return nil
}
