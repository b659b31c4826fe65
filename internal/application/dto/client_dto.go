package dto

import "time"

// ClientRequest body para POST/PUT /api/clients.
type ClientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Logo    string `json:"logo,omitempty"`
}

// ClientResponse cliente en respuestas.
type ClientResponse struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Logo      string    `json:"logo,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"` // ausente en el resumen de listados
}
