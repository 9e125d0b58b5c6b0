package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied idempotently at startup.  usernames use a binary
// collation so that uniqueness is exact and case-sensitive.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		username      VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS assets (
		id         CHAR(36) NOT NULL PRIMARY KEY,
		name       VARCHAR(200) NOT NULL,
		owner      VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		type       VARCHAR(50) NOT NULL,
		region     VARCHAR(50) NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		KEY idx_assets_owner (owner, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables and the unique username index if they do not
// exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
