package entity

// PaymentEvent evento asíncrono de la pasarela de pago, ya verificado.
// Conjunto cerrado: solo los tipos de este archivo lo implementan.
type PaymentEvent interface {
	EventID() string
	paymentEvent()
}

// SubscriptionCheckoutCompleted checkout en modo suscripción completado: el usuario pasa a pro.
type SubscriptionCheckoutCompleted struct {
	ID                string
	BillingCustomerID string
	SubscriptionID    string
}

// InvoiceCheckoutCompleted checkout en modo pago de una factura concreta.
// Paid es falso cuando el medio de pago liquida de forma diferida.
type InvoiceCheckoutCompleted struct {
	ID        string
	InvoiceID string
	SessionID string
	Paid      bool
}

// SubscriptionDeleted la suscripción terminó: el usuario vuelve a free.
type SubscriptionDeleted struct {
	ID             string
	SubscriptionID string
}

// UnhandledPaymentEvent cualquier tipo que el núcleo no procesa; se registra, no se descarta en silencio.
type UnhandledPaymentEvent struct {
	ID   string
	Type string
}

func (e SubscriptionCheckoutCompleted) EventID() string { return e.ID }
func (e InvoiceCheckoutCompleted) EventID() string      { return e.ID }
func (e SubscriptionDeleted) EventID() string           { return e.ID }
func (e UnhandledPaymentEvent) EventID() string         { return e.ID }

func (SubscriptionCheckoutCompleted) paymentEvent() {}
func (InvoiceCheckoutCompleted) paymentEvent()      {}
func (SubscriptionDeleted) paymentEvent()           {}
func (UnhandledPaymentEvent) paymentEvent()         {}
