package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.@-]+$`)

// PasswordSymbols is the set of symbols a password must draw at least one
// character from.
const PasswordSymbols = "@$!%*?&"

const minPasswordLen = 8

// MaxUsernameLen matches the width of users.username.
const MaxUsernameLen = 255

// Messages safe to show to clients for validation failures.
const (
	UsernameRuleMessage = "Username can only include letters, numbers, and _ . @ - characters."
	PasswordRuleMessage = "Password must be at least 8 characters long, include one uppercase letter, " +
		"one lowercase letter, one number, and one special character (" + PasswordSymbols + ")."
)

// ValidateUsername returns ErrInvalidUsername unless username is non-empty,
// at most MaxUsernameLen long and made only of ASCII letters, digits and
// _ . @ -.
func ValidateUsername(username string) error {
	if len(username) > MaxUsernameLen || !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidatePassword returns ErrWeakPassword unless password has at least 8
// characters, no line breaks, and at least one lowercase letter, uppercase
// letter, digit and symbol from PasswordSymbols.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen || strings.ContainsAny(password, "\r\n") {
		return ErrWeakPassword
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return ErrWeakPassword
	}
	return nil
}
