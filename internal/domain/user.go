package domain

import (
	"time"
)

// User represents a registered distributor account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	CompanyName  string    `json:"company_name"`
	Phone        string    `json:"phone,omitempty"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AuthResult holds the token and profile returned by signup and login.
type AuthResult struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	User      *User  `json:"user,omitempty"`
}
