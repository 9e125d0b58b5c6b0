package utils // package utils provides the password hashing and token helpers used by the auth core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failures.  Callers outside the auth core should not
// distinguish between them.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenCodec signs and verifies stateless HMAC access tokens.  The secret
// and algorithm are fixed at construction; a token is valid only for a codec
// built with the same pair.
type TokenCodec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

// TokenOption customizes a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock replaces time.Now as the codec's time source.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec builds a codec for the given secret and HMAC algorithm name
// (HS256, HS384 or HS512).
func NewTokenCodec(secret, algorithm string, opts ...TokenOption) (*TokenCodec, error) {
	// An empty key would let anyone forge tokens.
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	// Only the HMAC family is accepted; asymmetric algorithms need keys
	// this codec does not manage.
	method, ok := jwt.GetSigningMethod(strings.ToUpper(algorithm)).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	c := &TokenCodec{secret: []byte(secret), method: method, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token asserting subject that expires ttl from now.  The JWT
// carries the standard sub, iat and exp claims.
func (c *TokenCodec) Issue(subject string, ttl time.Duration) (AccessToken, error) {
	if subject == "" {
		return AccessToken{}, errors.New("token subject must not be empty")
	}
	// Compute the expiry relative to the injected clock.
	now := c.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	// Sign with the configured algorithm and secret.
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: claims.ExpiresAt.Time.UTC()}, nil
}

// Verify checks the signature, algorithm and expiry of raw and returns its
// subject.  Expired tokens yield ErrExpiredToken; every other failure
// yields ErrInvalidToken.
func (c *TokenCodec) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			// Reject anything that is not HMAC before handing out the key.
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{c.method.Alg()}), // pin the exact algorithm
		jwt.WithExpirationRequired(),                   // tokens without exp never verify
		jwt.WithTimeFunc(c.now),                        // same clock as Issue
	)
	if err != nil {
		// Keep expiry distinguishable for logging; everything else is
		// just invalid.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	// A token without a subject identifies nobody.
	if !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
