// Package service holds the authentication and authorization core (the
// identity validator and the owner-only policy) and the asset service that
// applies them.  It returns typed errors; mapping them to HTTP responses is
// the handler layer's job.
package service

import "errors"

var (
	// ErrInvalidUsername: the username contains characters outside
	// letters, digits and _ . @ -.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrWeakPassword: the password fails the complexity rule.
	ErrWeakPassword = errors.New("weak password")
	// ErrUsernameTaken: a credential with that username already exists.
	ErrUsernameTaken = errors.New("username taken")
	// ErrInvalidCredentials covers unknown users, wrong passwords and
	// malformed usernames at login alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated covers every bearer token failure.
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrInvalidAsset   = errors.New("invalid asset")
	ErrInvalidAssetID = errors.New("invalid asset id")
)
