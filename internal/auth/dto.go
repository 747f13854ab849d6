package auth

import (
	"github.com/graybeam/storefront-backend/internal/cart"
	"github.com/graybeam/storefront-backend/internal/users"
)

// RegisterRequest captures the payload for a new customer account.
type RegisterRequest struct {
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	GuestCartToken string `json:"guest_cart_token,omitempty"`
}

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required"`
	GuestCartToken string `json:"guest_cart_token,omitempty"`
}

// UpdateProfileRequest carries the self-service edits to an account's
// profile. Omitted fields are left untouched.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
}

// RefreshRequest carries the expired access token and its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse contains the tokens and user produced by a successful
// register or login. Cart is present when a guest cart was folded in.
type AuthResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
	Cart         *cart.CartDTO  `json:"cart,omitempty"`
}

// TokenPairResponse contains a rotated access/refresh pair.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
