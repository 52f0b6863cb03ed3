package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// UsersHandler exposes signup, login, token and account endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Signup handles POST /auth/signup.
func (h *UsersHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, err := h.auth.Signup(c.UserContext(), service.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		Password2: req.Password2,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.PublicUser(user))
}

// Login handles POST /auth/login and responds with a bare token.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	user, err := h.login(c)
	if err != nil {
		return err
	}
	token, err := h.auth.IssueToken(user)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{Token: token.Token, ExpiresAt: token.ExpiresAt})
}

// TokenPair handles POST /auth/token and responds with a refresh/access
// pair plus the public projection.
func (h *UsersHandler) TokenPair(c *fiber.Ctx) error {
	user, err := h.login(c)
	if err != nil {
		return err
	}
	pair, err := h.auth.IssuePair(user)
	if err != nil {
		return err
	}
	return c.JSON(dto.TokenPairResponse{
		Refresh: pair.Refresh.Token,
		Access:  pair.Access.Token,
		User:    dto.PublicUser(user),
	})
}

// Refresh handles POST /auth/token/refresh.
func (h *UsersHandler) Refresh(c *fiber.Ctx) error {
	var req dto.TokenRefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Refresh == "" {
		return apperrors.NewValidationError("refresh token required", nil)
	}

	access, err := h.auth.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"access": access.Token, "expires_at": access.ExpiresAt})
}

// Verify handles POST /auth/token/verify.
func (h *UsersHandler) Verify(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	claims, err := h.auth.Verify(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"valid": true, "subject": claims.Subject, "expires_at": claims.ExpiresAt})
}

// Revoke handles POST /auth/token/revoke.
func (h *UsersHandler) Revoke(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	if err := h.auth.Revoke(c.UserContext(), req.Token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "revoked"})
}

// ChangePassword handles PUT /users/:username/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.auth.ChangePassword(c.UserContext(), c.Params("username"), req.Password, req.Password2, principal.User)
	if err != nil {
		return err
	}
	return c.JSON(dto.PublicUser(user))
}

// DeleteAccount handles DELETE /users/:username.
func (h *UsersHandler) DeleteAccount(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.auth.DeleteAccount(c.UserContext(), c.Params("username"), req.Password, principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": user.Status})
}

// ListActive handles GET /users; limit controls the page size.
func (h *UsersHandler) ListActive(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	page := c.QueryInt("page", 1)

	users, total, err := h.auth.ListActiveUsers(c.UserContext(), limit, page)
	if err != nil {
		return err
	}

	results := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		results = append(results, dto.PublicUser(&users[i]))
	}
	return c.JSON(dto.PagedUsersResponse{
		Count:   total,
		Page:    page,
		Limit:   limit,
		Results: results,
	})
}

// RequestPasswordReset handles POST /auth/password/reset/request.
func (h *UsersHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	token, err := h.auth.RequestPasswordReset(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"reset_token": token.Token,
		"expires_at":  token.ExpiresAt,
	})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *UsersHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("token and new password required", nil)
	}

	if err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "password_reset"})
}

// login parses credentials and authenticates; the two token endpoints
// share it and differ only in response shape.
func (h *UsersHandler) login(c *fiber.Ctx) (*domain.User, error) {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}
	return h.auth.Login(c.UserContext(), req.Email, req.Password)
}
