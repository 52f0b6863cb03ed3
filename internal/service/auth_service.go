package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// SignupInput carries the fields accepted at registration. Password2 must
// repeat Password; the policy gate runs before anything is hashed.
type SignupInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Email     string
	Username  *string
	Password  string
	Password2 string
	IsStaff   bool
}

// AuthService coordinates registration, login and token flows. The bare
// token endpoint and the pair endpoint both funnel through Login; the
// handlers only pick the response shape.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	denylist   *auth.Denylist
	dispatcher events.Dispatcher
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborator requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Denylist          *auth.Denylist
	Dispatcher        events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenLifetimeHours, cfg.Auth.RefreshLifetimeHours),
		denylist:   deps.Denylist,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Signup creates a new account. The same gate applies to staff creation;
// IsStaff only flips the flag.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	if input.Password != input.Password2 {
		return nil, apperrors.NewValidationError("password fields didn't match", map[string]any{
			"password2": "password don't match",
		})
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, policyToValidationError(err)
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
	} else if err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}
	if input.Username != nil && *input.Username != "" {
		if _, err := s.users.GetByUsername(ctx, *input.Username); err == nil {
			return nil, apperrors.NewConflict("username already taken", map[string]any{"username": *input.Username})
		} else if err != pgx.ErrNoRows {
			return nil, apperrors.MapError(err)
		}
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hash,
		Status:       true,
		IsStaff:      input.IsStaff,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email:    user.Email,
		Username: user.UsernameValue(),
	})
	return user, nil
}

// Login authenticates by email first, falling back to phone. Failures are
// deliberately undifferentiated.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, identifier)
	if err == pgx.ErrNoRows {
		user, err = s.users.GetByPhone(ctx, identifier)
	}
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.MapError(err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewInvalidCredentials()
	}
	return user, nil
}

// IssueToken signs a bare login token for the user.
func (s *AuthService) IssueToken(user *domain.User) (domain.IssuedToken, error) {
	token, err := s.tokenMgr.Issue(user)
	if err != nil {
		return domain.IssuedToken{}, apperrors.NewInternalError(err)
	}
	return token, nil
}

// IssuePair signs a refresh/access pair for the user.
func (s *AuthService) IssuePair(user *domain.User) (domain.TokenPair, error) {
	pair, err := s.tokenMgr.IssuePair(user)
	if err != nil {
		return domain.TokenPair{}, apperrors.NewInternalError(err)
	}
	return pair, nil
}

// Refresh exchanges a live refresh token for a fresh access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.IssuedToken, error) {
	claims, err := s.checkToken(ctx, refreshToken)
	if err != nil {
		return domain.IssuedToken{}, err
	}
	if claims.TokenType != domain.TokenTypeRefresh {
		return domain.IssuedToken{}, apperrors.NewUnauthorized("refresh token required")
	}

	user, err := s.users.FindByIdentifier(ctx, claims.Subject)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.IssuedToken{}, apperrors.NewUnauthorized("user not found")
		}
		return domain.IssuedToken{}, apperrors.MapError(err)
	}
	return s.IssueToken(user)
}

// Verify validates signature, expiry and revocation state of a token.
func (s *AuthService) Verify(ctx context.Context, tokenStr string) (*auth.Claims, error) {
	return s.checkToken(ctx, tokenStr)
}

// Revoke denylists the token for its remaining lifetime.
func (s *AuthService) Revoke(ctx context.Context, tokenStr string) error {
	claims, err := s.checkToken(ctx, tokenStr)
	if err != nil {
		return err
	}
	if claims.ID == "" {
		return apperrors.NewValidationError("token has no id claim", nil)
	}
	if err := s.denylist.Revoke(ctx, claims.ID, s.tokenMgr.RemainingLife(claims)); err != nil {
		if err == auth.ErrRevocationUnavailable {
			return apperrors.NewValidationError("token revocation not configured", nil)
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ChangePassword rehashes the target account's password. The caller must
// be the target user or staff; the new password passes the policy gate.
func (s *AuthService) ChangePassword(ctx context.Context, username, password, password2 string, requester *domain.User) (*domain.User, error) {
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", map[string]any{"username": username})
		}
		return nil, apperrors.MapError(err)
	}

	if requester == nil || (requester.ID != target.ID && !requester.IsStaff) {
		return nil, apperrors.NewUnauthorized("cannot change another user's password")
	}

	if password != password2 {
		return nil, apperrors.NewValidationError("password fields didn't match", map[string]any{
			"password": "Password fields didn't match.",
		})
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, policyToValidationError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	target.PasswordHash = hash
	if err := s.users.Update(ctx, target); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventPasswordChanged, target.ID, events.PasswordChangedPayload{Email: target.Email})
	return target, nil
}

// DeleteAccount soft-deletes the target after verifying the requester's
// password. The record stays resolvable by identifier afterwards.
func (s *AuthService) DeleteAccount(ctx context.Context, username, password string, requester *domain.User) (*domain.User, error) {
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", map[string]any{"username": username})
		}
		return nil, apperrors.MapError(err)
	}

	if requester == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if err := auth.ComparePassword(requester.PasswordHash, password); err != nil {
		return nil, apperrors.NewValidationError("password is not correct", map[string]any{
			"password": "Old password is not correct",
		})
	}
	if requester.ID != target.ID && !requester.IsStaff {
		return nil, apperrors.NewUnauthorized("cannot delete another user's account")
	}

	if err := s.users.SoftDelete(ctx, target.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	target.Status = false

	s.publish(ctx, events.EventAccountDeleted, target.ID, events.AccountDeletedPayload{
		Email:    target.Email,
		Username: target.UsernameValue(),
	})
	return target, nil
}

// ListActiveUsers returns one page of accounts with status=true.
func (s *AuthService) ListActiveUsers(ctx context.Context, limit, page int) ([]domain.User, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	users, err := s.users.ListActive(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	total, err := s.users.CountActive(ctx)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return users, total, nil
}

// RequestPasswordReset persists a reset token for the account email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.MapError(err)
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, apperrors.MapError(err)
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password
// through the same policy gate as creation.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewValidationError("invalid reset token", nil)
		}
		return apperrors.MapError(err)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("reset token expired or used", nil)
	}

	if err := auth.ValidatePassword(newPassword); err != nil {
		return policyToValidationError(err)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return apperrors.MapError(err)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		return apperrors.MapError(err)
	}

	s.publish(ctx, events.EventPasswordReset, user.ID, events.PasswordChangedPayload{Email: user.Email})
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// checkToken parses and denylist-checks a token, mapping failures onto the
// error taxonomy.
func (s *AuthService) checkToken(ctx context.Context, tokenStr string) (*auth.Claims, error) {
	claims, err := s.tokenMgr.Parse(tokenStr)
	if err != nil {
		switch err {
		case auth.ErrTokenMalformed:
			return nil, apperrors.NewMalformedToken()
		case auth.ErrTokenExpired:
			return nil, apperrors.NewUnauthorized("token expired")
		default:
			return nil, apperrors.NewUnauthorized("invalid signature")
		}
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if revoked {
		return nil, apperrors.NewUnauthorized("token revoked")
	}
	return claims, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func policyToValidationError(err error) error {
	if policyErr, ok := err.(*auth.PolicyError); ok {
		return apperrors.NewValidationError("password does not meet policy", map[string]any{
			"password": policyErr.Messages(),
		})
	}
	return apperrors.NewValidationError("password does not meet policy", nil)
}
