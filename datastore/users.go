package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coreybb/storybook/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts user. A taken email yields ErrDuplicate.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO users (id, created_at, email, username, token_hash)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.CreatedAt, user.Email, user.Username, user.TokenHash)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user with email %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return r.getUser(ctx, "id", userID)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "email", email)
}

// GetUserByTokenHash resolves an API token hash to its user.
func (r *UserRepository) GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	return r.getUser(ctx, "token_hash", tokenHash)
}

// getUser looks a user up by one of the unique columns above.
func (r *UserRepository) getUser(ctx context.Context, column, value string) (*models.User, error) {
	query := `
		SELECT id, created_at, email, username, token_hash
		FROM users
		WHERE ` + column + ` = $1
	`
	var user models.User
	row := r.db.QueryRowContext(ctx, query, value)
	err := row.Scan(&user.ID, &user.CreatedAt, &user.Email, &user.Username, &user.TokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return &user, nil
}
