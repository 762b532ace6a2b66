package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odysseum/internal/database"
	"odysseum/internal/logger"
	"odysseum/internal/pkg/jwt"
)

func setupTestService(t *testing.T) (*Service, *jwt.Service) {
	t.Helper()
	db, err := database.Connect(":memory:", logger.Discard())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))

	tokens := jwt.New("test-secret", time.Hour)
	return NewService(NewUserRepository(db), tokens, logger.Discard()), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tokens := setupTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterRequest{Email: "Owner@Example.com", Password: "password1", Name: "Owner", Role: "business"})
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", res.User.Email)
	assert.Equal(t, RoleBusiness, res.User.Role)

	claims, err := tokens.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	login, err := svc.Login(ctx, LoginRequest{Email: "owner@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "password1", Name: "A"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "password2", Name: "B"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestRegister_RejectsAdminRole(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "a@example.com", Password: "password1", Name: "A", Role: "admin"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "password1", Name: "A"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "a@example.com", Password: "nope-nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
