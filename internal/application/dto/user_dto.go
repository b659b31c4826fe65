package dto

import "time"

// RegisterRequest entrada para registro.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest entrada para login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse salida de un usuario (sin password). SubscriptionStatus es el plan: free | pro.
type UserResponse struct {
	ID                 string    `json:"_id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	SubscriptionStatus string    `json:"subscriptionStatus"`
	CreatedAt          time.Time `json:"createdAt"`
}

// TokenResponse salida de registro/login.
type TokenResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
