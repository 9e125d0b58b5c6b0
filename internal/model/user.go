package model

import "time"

// Credential represents a row in the `users` table: the username and the
// bcrypt hash of the user's password.  The plaintext password is never
// stored.  Credentials are created once at registration and read on every
// login; this service never updates or deletes them.
//
// Fields:
//
//	Username     - unique login name, immutable once created.
//	PasswordHash - bcrypt hash of the (truncated) password.
//	CreatedAt    - timestamp of registration.
type Credential struct {
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
}
