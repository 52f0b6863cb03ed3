package dto

import (
	"time"

	"github.com/spec-kit/account-service/internal/domain"
)

// SignupRequest payload for new accounts.
type SignupRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Email     string  `json:"email"`
	Username  *string `json:"username"`
	Password  string  `json:"password"`
	Password2 string  `json:"password2"`
}

// LoginRequest payload for login; the email field also accepts a phone
// number, matching the lookup fallback.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenRefreshRequest payload.
type TokenRefreshRequest struct {
	Refresh string `json:"refresh"`
}

// TokenRequest payload for verify/revoke.
type TokenRequest struct {
	Token string `json:"token"`
}

// PasswordChangeRequest payload.
type PasswordChangeRequest struct {
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// DeleteAccountRequest payload.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// UserResponse is the public projection of an account: the password hash
// and privilege flags never appear here.
type UserResponse struct {
	ID        string    `json:"id"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	FullName  string    `json:"full_name"`
	Phone     *string   `json:"phone"`
	Email     string    `json:"email"`
	Username  *string   `json:"username"`
	Status    bool      `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthResponse standard response for token-bearing endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenPairResponse carries the refresh/access split plus the account.
type TokenPairResponse struct {
	Refresh string       `json:"refresh"`
	Access  string       `json:"access"`
	User    UserResponse `json:"user"`
}

// PagedUsersResponse is one page of active accounts.
type PagedUsersResponse struct {
	Count   int            `json:"count"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
	Results []UserResponse `json:"results"`
}

// PublicUser builds the public projection for a user.
func PublicUser(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		FullName:  user.FullName(),
		Phone:     user.Phone,
		Email:     user.Email,
		Username:  user.Username,
		Status:    user.Status,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
