package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestCodec(t *testing.T, opts ...TokenOption) *TokenCodec {
	t.Helper()
	opts = append([]TokenOption{WithClock(fixedClock)}, opts...)
	c, err := NewTokenCodec("super-secret", "HS256", opts...)
	require.NoError(t, err)
	return c
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	c := newTestCodec(t)

	tok, err := c.Issue("alice", 60*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(time.Hour), tok.Exp)
	assert.Equal(t, 2, strings.Count(tok.Token, "."))

	sub, err := c.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestTokenCodec_Expired(t *testing.T) {
	c := newTestCodec(t)

	tok, err := c.Issue("alice", -1*time.Second)
	require.NoError(t, err)

	_, err = c.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenCodec_ExpiresWhenClockAdvances(t *testing.T) {
	now := fixedNow
	c := newTestCodec(t, WithClock(func() time.Time { return now }))

	tok, err := c.Issue("alice", time.Minute)
	require.NoError(t, err)

	now = now.Add(59 * time.Second)
	_, err = c.Verify(tok.Token)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = c.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenCodec_TamperedSignature(t *testing.T) {
	c := newTestCodec(t)
	tok, err := c.Issue("alice", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(tok.Token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = c.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_TamperedPayload(t *testing.T) {
	c := newTestCodec(t)
	alice, err := c.Issue("alice", time.Hour)
	require.NoError(t, err)
	bob, err := c.Issue("bob", time.Hour)
	require.NoError(t, err)

	a := strings.Split(alice.Token, ".")
	b := strings.Split(bob.Token, ".")
	forged := a[0] + "." + b[1] + "." + a[2]

	_, err = c.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	c := newTestCodec(t)
	other, err := NewTokenCodec("another-secret", "HS256", WithClock(fixedClock))
	require.NoError(t, err)

	tok, err := other.Issue("alice", time.Hour)
	require.NoError(t, err)

	_, err = c.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_WrongAlgorithm(t *testing.T) {
	c := newTestCodec(t)
	hs512, err := NewTokenCodec("super-secret", "HS512", WithClock(fixedClock))
	require.NoError(t, err)

	tok, err := hs512.Issue("alice", time.Hour)
	require.NoError(t, err)

	_, err = c.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_UnsignedToken(t *testing.T) {
	c := newTestCodec(t)
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = c.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_MissingClaims(t *testing.T) {
	c := newTestCodec(t)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour)),
	}).SignedString([]byte("super-secret"))
	require.NoError(t, err)
	_, err = c.Verify(noSub)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "alice",
	}).SignedString([]byte("super-secret"))
	require.NoError(t, err)
	_, err = c.Verify(noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_Malformed(t *testing.T) {
	c := newTestCodec(t)
	for _, raw := range []string{"", "not.a.jwt", "abc", "a.b.c.d"} {
		_, err := c.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", raw)
	}
}

func TestNewTokenCodec_Validation(t *testing.T) {
	_, err := NewTokenCodec("", "HS256")
	assert.Error(t, err)

	_, err = NewTokenCodec("secret", "RS256")
	assert.Error(t, err)

	_, err = NewTokenCodec("secret", "none")
	assert.Error(t, err)

	c, err := NewTokenCodec("secret", "hs384")
	require.NoError(t, err)
	assert.Equal(t, "HS384", c.method.Alg())
}

func TestTokenCodec_IssueRequiresSubject(t *testing.T) {
	c := newTestCodec(t)
	_, err := c.Issue("", time.Hour)
	assert.Error(t, err)
}
