package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"luch-agregator/logger"
	"luch-agregator/models"
	"luch-agregator/repository"
)

type fakeUsers struct {
	byName map[string]*models.User
	err    error
}

func (u *fakeUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if u.err != nil {
		return nil, u.err
	}
	user, ok := u.byName[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (u *fakeUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	for _, user := range u.byName {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (u *fakeUsers) Create(ctx context.Context, user *models.User) error {
	if u.byName == nil {
		u.byName = map[string]*models.User{}
	}
	user.ID = int64(len(u.byName) + 1)
	u.byName[user.Username] = user
	return nil
}

func TestAuthService_Authenticate(t *testing.T) {
	users := &fakeUsers{}
	auth := NewAuthService(users, logger.Nop())
	ctx := context.Background()

	created, err := auth.CreateUser(ctx, "manager", "secret", true)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret")))

	user, err := auth.Authenticate(ctx, "manager", "secret")
	require.NoError(t, err)
	assert.True(t, user.IsStaff)

	_, err = auth.Authenticate(ctx, "manager", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Authenticate(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	created.IsActive = false
	_, err = auth.Authenticate(ctx, "manager", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RepositoryFailure(t *testing.T) {
	auth := NewAuthService(&fakeUsers{err: errBoom}, logger.Nop())
	_, err := auth.Authenticate(context.Background(), "manager", "secret")
	require.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
