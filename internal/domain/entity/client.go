package entity

import "time"

// Client representa un cliente del freelancer. Pertenece a un único User.
type Client struct {
	ID        string
	UserID    string
	Name      string
	Email     string // único por usuario, en minúsculas
	Phone     string
	Address   string
	Logo      string // URL
	CreatedAt time.Time
	UpdatedAt time.Time
}
