package entity

import "time"

// Tier plan de suscripción del usuario.
type Tier string

// Planes válidos.
const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Valid indica si el plan es uno de los conocidos.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro
}

// User representa un freelancer registrado (dueño de clientes y facturas).
type User struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string // bcrypt hash, nunca plano en dominio después de persistir
	Tier              Tier
	BillingCustomerID string // cliente en la pasarela de pago (cus_...)
	SubscriptionID    string // suscripción activa en la pasarela (sub_...)
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Actor identidad autenticada que llega a los casos de uso: usuario y plan vigente.
type Actor struct {
	UserID string
	Tier   Tier
}
