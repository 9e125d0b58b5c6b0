// Package repository contains the data access layer: MySQL-backed stores
// for credentials and assets plus in-memory equivalents used in CI mode and
// tests.  The sentinel errors below let higher layers tell failure kinds
// apart without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrUserNotFound is returned when no credential exists for a username.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateUsername is returned when inserting a username that already
// exists.  The check is enforced by the store itself, never by a prior read.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrAssetNotFound is returned when an asset does not exist or is not
// owned by the caller.  The two cases are deliberately indistinguishable.
var ErrAssetNotFound = errors.New("asset not found")

// mysqlDuplicateEntry is MySQL's ER_DUP_ENTRY error number.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
