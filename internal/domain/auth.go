package domain

import "time"

// TokenType tags access vs refresh tokens inside the payload.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// IssuedToken carries a signed token string with its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenPair is the refresh/access split returned by the pair endpoint.
type TokenPair struct {
	Refresh IssuedToken
	Access  IssuedToken
}
