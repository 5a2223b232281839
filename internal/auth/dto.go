package auth

import (
	"github.com/classpulse/classpulse-backend/internal/users"
	"github.com/google/uuid"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the token pair and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// RefreshRequest carries the expired access token plus its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse returns the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// GoogleSignInRequest carries the raw Google ID token from the mobile client.
type GoogleSignInRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// GoogleSignInResponse is a union: either a full login (account exists) or a
// signup ticket the client must spend before the reuse window closes.
type GoogleSignInResponse struct {
	NeedsSignup  bool           `json:"needs_signup"`
	SignupTicket string         `json:"signup_ticket,omitempty"`
	ExpiresInMs  int64          `json:"expires_in_ms,omitempty"`
	Email        string         `json:"email,omitempty"`
	Name         string         `json:"name,omitempty"`
	AccessToken  string         `json:"access_token,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	User         *users.UserDTO `json:"user,omitempty"`
}

// GoogleSignupRequest completes account creation for a first-time Google user.
type GoogleSignupRequest struct {
	SignupTicket string    `json:"signup_ticket" validate:"required"`
	FirstName    string    `json:"first_name" validate:"required"`
	LastName     string    `json:"last_name" validate:"required"`
	Phone        *string   `json:"phone,omitempty"`
	SchoolID     uuid.UUID `json:"school_id" validate:"required"`
}
