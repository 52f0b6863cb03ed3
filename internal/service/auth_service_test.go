package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// fakeUserRepository is an in-memory repository.UserRepository.
type fakeUserRepository struct {
	users map[string]*domain.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepository) Create(_ context.Context, user *domain.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepository) Update(_ context.Context, user *domain.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := f.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return f.findWhere(func(u *domain.User) bool { return u.Email == email })
}

func (f *fakeUserRepository) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	return f.findWhere(func(u *domain.User) bool { return u.Phone != nil && *u.Phone == phone })
}

func (f *fakeUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return f.findWhere(func(u *domain.User) bool { return u.Username != nil && *u.Username == username })
}

func (f *fakeUserRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	if user, err := f.GetByEmail(ctx, identifier); err == nil {
		return user, nil
	}
	if user, err := f.GetByPhone(ctx, identifier); err == nil {
		return user, nil
	}
	return f.GetByUsername(ctx, identifier)
}

func (f *fakeUserRepository) SoftDelete(_ context.Context, id string) error {
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Status = false
	return nil
}

func (f *fakeUserRepository) ListActive(_ context.Context, limit, offset int) ([]domain.User, error) {
	var active []domain.User
	for _, user := range f.users {
		if user.Status {
			active = append(active, *user)
		}
	}
	if offset >= len(active) {
		return nil, nil
	}
	active = active[offset:]
	if len(active) > limit {
		active = active[:limit]
	}
	return active, nil
}

func (f *fakeUserRepository) CountActive(_ context.Context) (int, error) {
	count := 0
	for _, user := range f.users {
		if user.Status {
			count++
		}
	}
	return count, nil
}

func (f *fakeUserRepository) findWhere(match func(*domain.User) bool) (*domain.User, error) {
	for _, user := range f.users {
		if match(user) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// fakeResetRepository is an in-memory repository.PasswordResetRepository.
type fakeResetRepository struct {
	tokens map[string]*repository.PasswordResetToken
	nextID int
}

func newFakeResetRepository() *fakeResetRepository {
	return &fakeResetRepository{tokens: make(map[string]*repository.PasswordResetToken)}
}

func (f *fakeResetRepository) Create(_ context.Context, token *repository.PasswordResetToken) error {
	f.nextID++
	token.ID = string(rune('a' + f.nextID))
	token.CreatedAt = time.Now()
	clone := *token
	f.tokens[token.Token] = &clone
	return nil
}

func (f *fakeResetRepository) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	if token, ok := f.tokens[tokenStr]; ok {
		clone := *token
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeResetRepository) MarkUsed(_ context.Context, id string) error {
	now := time.Now()
	for _, token := range f.tokens {
		if token.ID == id {
			token.UsedAt = &now
		}
	}
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			TokenLifetimeHours:      5,
			RefreshLifetimeHours:    24,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}
}

func newTestService(t *testing.T) (*AuthService, *fakeUserRepository) {
	t.Helper()
	users := newFakeUserRepository()
	svc := NewAuthService(testConfig(), AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: newFakeResetRepository(),
		Dispatcher:        events.NewInMemoryDispatcher(nil),
	})
	return svc, users
}

func signupInput() SignupInput {
	username := "jdoe"
	phone := "+15550001111"
	return SignupInput{
		Email:     "t@x.com",
		Username:  &username,
		Phone:     &phone,
		Password:  "Abcdef1@",
		Password2: "Abcdef1@",
	}
}

func TestSignup_Success(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)
	require.Equal(t, "t@x.com", user.Email)
	require.True(t, user.Status)
	require.NotEmpty(t, user.ID)
	require.NotEqual(t, "Abcdef1@", user.PasswordHash)

	stored, err := users.GetByEmail(ctx, "t@x.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, stored.ID)
}

func TestSignup_PasswordMismatch(t *testing.T) {
	svc, users := newTestService(t)

	input := signupInput()
	input.Password2 = "Different1@"
	_, err := svc.Signup(context.Background(), input)
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	require.Contains(t, domainErr.Details, "password2")
	require.Empty(t, users.users, "no record may be written on mismatch")
}

func TestSignup_PolicyFailure(t *testing.T) {
	svc, users := newTestService(t)

	input := signupInput()
	input.Password = "F1@"
	input.Password2 = "F1@"
	_, err := svc.Signup(context.Background(), input)
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	require.Contains(t, domainErr.Details, "password")
	require.Empty(t, users.users, "no record may be written when policy fails")
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	input := signupInput()
	username := "other"
	input.Username = &username
	input.Phone = nil
	_, err = svc.Signup(ctx, input)
	require.Error(t, err)
	require.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestLogin_EmailAndPhone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	byEmail, err := svc.Login(ctx, "t@x.com", "Abcdef1@")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	byPhone, err := svc.Login(ctx, "+15550001111", "Abcdef1@")
	require.NoError(t, err)
	require.Equal(t, created.ID, byPhone.ID)
}

func TestLogin_GenericFailure(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	// unknown identifier and wrong password fail identically
	_, errUnknown := svc.Login(ctx, "nobody@x.com", "Abcdef1@")
	_, errWrongPassword := svc.Login(ctx, "t@x.com", "Wrong1@aa")

	require.Error(t, errUnknown)
	require.Error(t, errWrongPassword)
	require.Equal(t, apperrors.ToDomainError(errUnknown).Code, apperrors.ToDomainError(errWrongPassword).Code)
	require.Equal(t, apperrors.ToDomainError(errUnknown).Message, apperrors.ToDomainError(errWrongPassword).Message)
	require.Equal(t, "INVALID_CREDENTIALS", apperrors.ToDomainError(errUnknown).Code)
}

func TestLogin_TokenRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	user, err := svc.Login(ctx, "t@x.com", "Abcdef1@")
	require.NoError(t, err)

	issued, err := svc.IssueToken(user)
	require.NoError(t, err)

	claims, err := svc.TokenManager().Parse(issued.Token)
	require.NoError(t, err)
	require.Equal(t, user.Email, claims.Subject)
	require.Equal(t, user.Email, claims.Email)
}

func TestRefresh(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	pair, err := svc.IssuePair(user)
	require.NoError(t, err)

	access, err := svc.Refresh(ctx, pair.Refresh.Token)
	require.NoError(t, err)

	claims, err := svc.TokenManager().Parse(access.Token)
	require.NoError(t, err)
	require.Equal(t, user.Email, claims.Subject)

	// an access token is not accepted in place of a refresh token
	_, err = svc.Refresh(ctx, pair.Access.Token)
	require.Error(t, err)
	require.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
}

func TestVerify_RejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Verify(ctx, "not.a.jwt")
	require.Error(t, err)
	require.Equal(t, "MALFORMED_TOKEN", apperrors.ToDomainError(err).Code)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	_, err = svc.ChangePassword(ctx, "jdoe", "Newpass1@", "Newpass1@", user)
	require.NoError(t, err)

	// old password no longer works, new one does
	_, err = svc.Login(ctx, "t@x.com", "Abcdef1@")
	require.Error(t, err)
	_, err = svc.Login(ctx, "t@x.com", "Newpass1@")
	require.NoError(t, err)

	// new password passes through the same policy gate
	_, err = svc.ChangePassword(ctx, "jdoe", "short", "short", user)
	require.Error(t, err)
	require.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	// mismatched confirmation is rejected before hashing
	_, err = svc.ChangePassword(ctx, "jdoe", "Newpass1@", "Other1@aa", user)
	require.Error(t, err)
	require.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	// unknown username is a 404
	_, err = svc.ChangePassword(ctx, "ghost", "Newpass1@", "Newpass1@", user)
	require.Error(t, err)
	require.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestChangePassword_ForbiddenForOtherUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	other := signupInput()
	email := "other@x.com"
	username := "other"
	other.Email = email
	other.Username = &username
	other.Phone = nil
	requester, err := svc.Signup(ctx, other)
	require.NoError(t, err)

	_, err = svc.ChangePassword(ctx, "jdoe", "Newpass1@", "Newpass1@", requester)
	require.Error(t, err)
	require.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)

	// staff may change any account's password
	requester.IsStaff = true
	_, err = svc.ChangePassword(ctx, "jdoe", "Newpass1@", "Newpass1@", requester)
	require.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	// wrong password refuses deletion
	_, err = svc.DeleteAccount(ctx, "jdoe", "Wrong1@aa", user)
	require.Error(t, err)

	deleted, err := svc.DeleteAccount(ctx, "jdoe", "Abcdef1@", user)
	require.NoError(t, err)
	require.False(t, deleted.Status)

	// gone from the active listing
	active, total, err := svc.ListActiveUsers(ctx, 50, 1)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, active)

	// still resolvable by identifier
	found, err := users.FindByIdentifier(ctx, "t@x.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)
	require.False(t, found.Status)
}

func TestListActiveUsers_Pagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		input := signupInput()
		input.Email = email
		input.Username = nil
		input.Phone = nil
		_, err := svc.Signup(ctx, input)
		require.NoError(t, err)
	}

	page, total, err := svc.ListActiveUsers(ctx, 2, 1)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, page, 2)

	rest, _, err := svc.ListActiveUsers(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
}

func TestPasswordReset(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(ctx, "t@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)

	// policy gate applies to the replacement password
	err = svc.ConfirmPasswordReset(ctx, token.Token, "weak")
	require.Error(t, err)

	err = svc.ConfirmPasswordReset(ctx, token.Token, "Newpass1@")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "t@x.com", "Newpass1@")
	require.NoError(t, err)

	// single use
	err = svc.ConfirmPasswordReset(ctx, token.Token, "Another1@")
	require.Error(t, err)
}
