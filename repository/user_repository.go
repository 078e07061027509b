package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"luch-agregator/logger"
	"luch-agregator/models"
)

// ErrUserNotFound is returned when no user matches the lookup
var ErrUserNotFound = errors.New("user not found")

// UserRepository handles database operations for staff users
type UserRepository struct {
	db  *sql.DB
	log *logger.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB, log *logger.Logger) *UserRepository {
	return &UserRepository{db: db, log: log.With("component", "UserRepository")}
}

// Ensure UserRepository implements UserRepositoryInterface
var _ UserRepositoryInterface = (*UserRepository)(nil)

const userColumns = `id, username, password_hash, is_staff, is_active`

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// Create inserts a user with an already hashed password
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, is_staff, is_active) VALUES ($1, $2, $3, $4) RETURNING id`,
		user.Username, user.PasswordHash, user.IsStaff, user.IsActive,
	).Scan(&user.ID)
	if err != nil {
		r.log.Error("❌ Error creating user", "username", user.Username, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	r.log.Info("✓ User created", "id", user.ID, "username", user.Username)
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsStaff, &u.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		r.log.Error("❌ Error querying user", "error", err)
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}
