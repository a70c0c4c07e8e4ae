package auth

import "github.com/sarana-io/lending-backend/internal/users"

// RegisterRequest carries a signup submission.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest carries a login submission.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse returns the minted token and the authenticated user.
type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	User        users.Summary `json:"user"`
}
