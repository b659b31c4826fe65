package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrUserNotFound           = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists     = errors.New("el email ya está registrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicateClient        = errors.New("ya existe un cliente con ese email")
	ErrDuplicateInvoiceNumber = errors.New("el número de factura ya existe")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrConflict               = errors.New("conflicto con el estado actual")
	ErrQuotaExceeded          = errors.New("límite del plan gratuito alcanzado")
	ErrMissingContactInfo     = errors.New("faltan datos de contacto del cliente")
	ErrDeliveryFailed         = errors.New("no se pudo entregar la notificación")
	ErrGateway                = errors.New("error de la pasarela de pago")
	ErrInvalidSignature       = errors.New("firma de webhook inválida")
)

// ErrClientNotFound el cliente indicado en la factura no existe o es de otro usuario.
// errors.Is(ErrClientNotFound, ErrNotFound) es verdadero.
var ErrClientNotFound = fmt.Errorf("cliente no encontrado: %w", ErrNotFound)

// QuotaExceededError lleva el límite y el conteo actual para que el cliente los muestre.
// errors.Is(err, ErrQuotaExceeded) es verdadero.
type QuotaExceededError struct {
	Limit int
	Count int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s (%d facturas/día, creadas hoy: %d)", ErrQuotaExceeded.Error(), e.Limit, e.Count)
}

// Is permite errors.Is(err, ErrQuotaExceeded).
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// Invalid envuelve ErrInvalidInput con el motivo concreto.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
