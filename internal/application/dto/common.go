package dto

// ErrorResponse cuerpo de error HTTP. LimitReached (con Limit y Count) solo acompaña
// al rechazo por cuota del plan gratuito.
type ErrorResponse struct {
	Code         string `json:"code,omitempty"`
	Message      string `json:"message"`
	LimitReached bool   `json:"limitReached,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Count        int    `json:"count,omitempty"`
}

// MessageResponse confirmación simple.
type MessageResponse struct {
	Message string `json:"message"`
}

// URLResponse URL de una sesión de pago alojada.
type URLResponse struct {
	URL string `json:"url"`
}

// WebhookAck respuesta a la pasarela tras recibir un evento.
type WebhookAck struct {
	Received bool `json:"received"`
}
