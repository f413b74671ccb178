package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/slick-storefront/internal/auth"
	"github.com/example/slick-storefront/internal/domain/user"
	"github.com/example/slick-storefront/internal/infrastructure/store/mocks"
	"github.com/example/slick-storefront/internal/logger"
	"github.com/example/slick-storefront/internal/session"
)

func newTestService() (*user.Service, *mocks.MockUserRepository) {
	repo := mocks.NewMockUserRepository()
	return user.NewService(repo, logger.Discard()), repo
}

// ============================================
// Signup Tests
// ============================================

func TestSignup_CreatesAccountAndLogsIn(t *testing.T) {
	svc, repo := newTestService()
	sess := session.NewStore()
	ctx := context.Background()

	u, err := svc.Signup(ctx, sess, "  An Nguyễn ", " An@Example.COM ", "supersecret")

	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "an@example.com", u.Email)
	assert.Equal(t, "An Nguyễn", u.Name)
	assert.NotEqual(t, "supersecret", u.PasswordHash)
	assert.True(t, auth.CheckPassword("supersecret", u.PasswordHash))
	require.Len(t, repo.CreateCalls, 1)

	id, ok := sess.Current()
	require.True(t, ok)
	assert.Equal(t, session.Identity{ID: u.ID, Email: "an@example.com", DisplayName: "An Nguyễn"}, id)
}

func TestSignup_Validation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, nil, "An", "   ", "supersecret")
	assert.ErrorIs(t, err, user.ErrInvalidEmail)

	_, err = svc.Signup(ctx, nil, " ", "an@example.com", "supersecret")
	assert.ErrorIs(t, err, user.ErrInvalidName)

	_, err = svc.Signup(ctx, nil, "An", "an@example.com", "short")
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)

	assert.Empty(t, repo.CreateCalls)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	sess := session.NewStore()
	ctx := context.Background()

	_, err := svc.Signup(ctx, nil, "An", "an@example.com", "supersecret")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, sess, "Other", "AN@example.com", "anothersecret")

	assert.ErrorIs(t, err, user.ErrEmailTaken)
	_, ok := sess.Current()
	assert.False(t, ok)
}

func TestSignup_BackendFailure(t *testing.T) {
	svc, repo := newTestService()
	repo.CreateErr = errors.New("connection refused")

	_, err := svc.Signup(context.Background(), nil, "An", "an@example.com", "supersecret")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// ============================================
// Login / Logout Tests
// ============================================

func TestLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Signup(ctx, nil, "An", "an@example.com", "supersecret")
	require.NoError(t, err)

	sess := session.NewStore()
	u, err := svc.Login(ctx, sess, "AN@example.com", "supersecret")

	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	id, ok := sess.Current()
	require.True(t, ok)
	assert.Equal(t, created.ID, id.ID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Signup(ctx, nil, "An", "an@example.com", "supersecret")
	require.NoError(t, err)

	sess := session.NewStore()

	_, err = svc.Login(ctx, sess, "an@example.com", "wrongpassword")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = svc.Login(ctx, sess, "nobody@example.com", "supersecret")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, ok := sess.Current()
	assert.False(t, ok)
}

func TestLogin_BackendFailureIsNotInvalidCredentials(t *testing.T) {
	svc, repo := newTestService()
	repo.GetErr = errors.New("timeout")

	_, err := svc.Login(context.Background(), nil, "an@example.com", "supersecret")

	require.Error(t, err)
	assert.NotErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestLogout_ClearsSessionAndNotifies(t *testing.T) {
	svc, _ := newTestService()
	sess := session.NewStore()
	ctx := context.Background()
	sess.Set(ctx, session.Identity{ID: "u1"})

	var loggedOut bool
	sess.Subscribe(func(_ context.Context, id *session.Identity) { loggedOut = id == nil })

	svc.Logout(ctx, sess)

	_, ok := sess.Current()
	assert.False(t, ok)
	assert.True(t, loggedOut)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.vn", user.NormalizeEmail("  A@B.VN\t"))
}
