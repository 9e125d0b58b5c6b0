package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/cloud-asset-api/internal/model"
)

// UserRepo persists credentials in the MySQL `users` table.  Username
// uniqueness is enforced by the table's unique key.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Insert stores a new credential.  A duplicate username yields
// ErrDuplicateUsername.
func (r *UserRepo) Insert(ctx context.Context, username, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash) VALUES (?, ?)",
		username, passwordHash)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByUsername fetches a credential by exact username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (model.Credential, error) {
	var c model.Credential
	err := r.DB.QueryRowContext(ctx,
		"SELECT username, password_hash, created_at FROM users WHERE username = ? LIMIT 1",
		username).Scan(&c.Username, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Credential{}, ErrUserNotFound
		}
		return model.Credential{}, fmt.Errorf("find user: %w", err)
	}
	return c, nil
}
