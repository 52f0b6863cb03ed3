package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/account-service/internal/domain"
)

// Token validation failures. Parse maps every library error onto one of
// these so callers can distinguish a forged token from a stale or
// unparseable one.
var (
	ErrTokenMalformed        = errors.New("token is malformed")
	ErrTokenInvalidSignature = errors.New("token signature is invalid")
	ErrTokenExpired          = errors.New("token is expired")
)

// TokenManager handles issuing and validating JWT tokens. Tokens are
// stateless: the HMAC secret is the entire trust boundary.
type TokenManager struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
}

// NewTokenManager builds a new manager. Lifetimes are given in hours.
func NewTokenManager(secret string, lifetimeHours, refreshLifetimeHours int) *TokenManager {
	if lifetimeHours <= 0 {
		lifetimeHours = 5
	}
	if refreshLifetimeHours <= 0 {
		refreshLifetimeHours = 24
	}
	return &TokenManager{
		secret:     []byte(secret),
		ttl:        time.Duration(lifetimeHours) * time.Hour,
		refreshTTL: time.Duration(refreshLifetimeHours) * time.Hour,
	}
}

// Claims describes the JWT payload. Subject carries the user's email; the
// custom claims repeat contact details so consumers can render the caller
// without a store round trip. Refresh tokens carry only the registered
// claims plus TokenType.
type Claims struct {
	Email     string           `json:"email,omitempty"`
	Phone     string           `json:"phone,omitempty"`
	Name      string           `json:"name,omitempty"`
	TokenType domain.TokenType `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// Issue builds and signs a login token for the user.
func (tm *TokenManager) Issue(user *domain.User) (domain.IssuedToken, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Email:     user.Email,
		Phone:     user.PhoneValue(),
		Name:      user.FullName(),
		TokenType: domain.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return tm.sign(claims, expiresAt)
}

// IssuePair returns a long-lived refresh token and a short-lived access
// token for the same subject.
func (tm *TokenManager) IssuePair(user *domain.User) (domain.TokenPair, error) {
	now := time.Now()
	refreshExp := now.Add(tm.refreshTTL)
	refreshClaims := &Claims{
		TokenType: domain.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	refresh, err := tm.sign(refreshClaims, refreshExp)
	if err != nil {
		return domain.TokenPair{}, err
	}

	access, err := tm.Issue(user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{Refresh: refresh, Access: access}, nil
}

// Parse validates the signature and expiry and returns claims. Expired
// tokens never reach the caller as valid payloads.
func (tm *TokenManager) Parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenInvalidSignature
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalidSignature
	}
	return claims, nil
}

// RemainingLife reports how long until the claims expire; zero when the
// expiry is absent or already past.
func (tm *TokenManager) RemainingLife(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (tm *TokenManager) sign(claims *Claims, expiresAt time.Time) (domain.IssuedToken, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return domain.IssuedToken{}, err
	}
	return domain.IssuedToken{Token: tokenString, ExpiresAt: expiresAt}, nil
}

// ExtractBearer strips the Bearer scheme word and surrounding whitespace
// from a raw Authorization header value. It does not validate the result.
func ExtractBearer(headerValue string) string {
	trimmed := strings.TrimSpace(headerValue)
	if len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "bearer") {
		trimmed = trimmed[6:]
	}
	return strings.TrimSpace(trimmed)
}
