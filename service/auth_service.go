package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"luch-agregator/logger"
	"luch-agregator/models"
	"luch-agregator/repository"
)

// ErrInvalidCredentials covers unknown users, wrong passwords and inactive accounts alike
var ErrInvalidCredentials = errors.New("invalid username or password")

// AuthService checks staff credentials
type AuthService struct {
	users repository.UserRepositoryInterface
	log   *logger.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(users repository.UserRepositoryInterface, log *logger.Logger) *AuthService {
	return &AuthService{users: users, log: log.With("component", "AuthService")}
}

// Authenticate returns the active user matching username and password
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		s.log.Warn("⚠️  Login for unknown user", "username", username)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("⚠️  Wrong password", "username", username)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.log.Warn("⚠️  Login for inactive user", "username", username)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// CreateUser stores a new user with a bcrypt hash of password
func (s *AuthService) CreateUser(ctx context.Context, username, password string, isStaff bool) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: username, PasswordHash: hash, IsStaff: isStaff, IsActive: true}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("✓ User created", "username", username, "is_staff", isStaff)
	return user, nil
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
