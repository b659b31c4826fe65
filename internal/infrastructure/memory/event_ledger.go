package memory

import (
	"context"
	"sync"
	"time"
)

// EventLedger registro en memoria de eventos de webhook procesados.
// Solo sirve con una réplica; con REDIS_ADDR se usa el de Redis.
type EventLedger struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

// NewEventLedger construye el registro. ttl <= 0 = sin expiración.
func NewEventLedger(ttl time.Duration) *EventLedger {
	return &EventLedger{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

// Processed indica si el evento ya se aplicó y no expiró.
func (l *EventLedger) Processed(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.seen[eventID]
	if !ok {
		return false, nil
	}
	if l.ttl > 0 && l.now().Sub(at) > l.ttl {
		delete(l.seen, eventID)
		return false, nil
	}
	return true, nil
}

// MarkProcessed registra el evento.
func (l *EventLedger) MarkProcessed(_ context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[eventID]; !ok {
		l.seen[eventID] = l.now()
	}
	return nil
}
