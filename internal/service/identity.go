package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cloud-asset-api/internal/config"
	"github.com/iliyamo/cloud-asset-api/internal/metrics"
	"github.com/iliyamo/cloud-asset-api/internal/model"
	"github.com/iliyamo/cloud-asset-api/internal/queue"
	"github.com/iliyamo/cloud-asset-api/internal/repository"
	"github.com/iliyamo/cloud-asset-api/internal/utils"
)

// CredentialStore persists username to password-hash mappings.  Insert
// must enforce username uniqueness atomically and report a clash as
// repository.ErrDuplicateUsername; FindByUsername reports an absent user as
// repository.ErrUserNotFound.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (model.Credential, error)
	Insert(ctx context.Context, username, passwordHash string) error
}

// IdentityValidator registers users, authenticates username/password pairs
// and resolves bearer tokens into identities.
type IdentityValidator struct {
	store     CredentialStore
	hasher    *utils.PasswordHasher
	codec     *utils.TokenCodec
	ttl       time.Duration
	dummyHash string

	clock   func() time.Time
	events  queue.Publisher
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
}

// Option customizes an IdentityValidator.
type Option func(*IdentityValidator)

// WithClock sets the time source used for token issue and verification.
func WithClock(now func() time.Time) Option {
	return func(v *IdentityValidator) { v.clock = now }
}

// WithPublisher sets where audit events go.  The default discards them.
func WithPublisher(p queue.Publisher) Option {
	return func(v *IdentityValidator) { v.events = p }
}

// WithMetrics enables auth event counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *IdentityValidator) { v.metrics = m }
}

// WithLogger sets the logger used for storage and publishing failures.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(v *IdentityValidator) { v.log = l }
}

// NewIdentityValidator builds the validator from the signing secret,
// algorithm, token TTL and bcrypt cost in cfg.
func NewIdentityValidator(cfg config.Config, store CredentialStore, opts ...Option) (*IdentityValidator, error) {
	v := &IdentityValidator{
		store:  store,
		hasher: utils.NewPasswordHasher(cfg.BcryptCost),
		ttl:    cfg.AccessTTL(),
		clock:  time.Now,
		events: queue.NopPublisher{},
		log:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.ttl <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}

	codec, err := utils.NewTokenCodec(cfg.JWTSecret, cfg.JWTAlgorithm, utils.WithClock(v.clock))
	if err != nil {
		return nil, err
	}
	v.codec = codec

	// Unknown users are checked against this hash so that a login attempt
	// costs the same whether or not the username exists.
	v.dummyHash, err = v.hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return v, nil
}

// TTL returns the lifetime of issued access tokens.
func (v *IdentityValidator) TTL() time.Duration { return v.ttl }

// Register validates the username and password, hashes the password and
// stores a new credential.
func (v *IdentityValidator) Register(ctx context.Context, username, password string) error {
	if err := ValidateUsername(username); err != nil {
		v.metrics.AuthEvent("register", metrics.OutcomeRejected)
		return err
	}
	if err := ValidatePassword(password); err != nil {
		v.metrics.AuthEvent("register", metrics.OutcomeRejected)
		return err
	}

	hash, err := v.hasher.Hash(password)
	if err != nil {
		v.metrics.AuthEvent("register", metrics.OutcomeError)
		return fmt.Errorf("hash password: %w", err)
	}

	if err := v.store.Insert(ctx, username, hash); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			v.metrics.AuthEvent("register", metrics.OutcomeRejected)
			return ErrUsernameTaken
		}
		v.metrics.AuthEvent("register", metrics.OutcomeError)
		v.log.Errorw("register: credential store insert failed", "username", username, "error", err)
		return fmt.Errorf("store credential: %w", err)
	}

	v.metrics.AuthEvent("register", metrics.OutcomeSuccess)
	v.publish(ctx, queue.NewAuditEvent(queue.EventUserRegistered, username))
	return nil
}

// Authenticate checks a username/password pair and returns the subject on
// success.  Malformed usernames, unknown users and wrong passwords all
// yield ErrInvalidCredentials.
func (v *IdentityValidator) Authenticate(ctx context.Context, username, password string) (string, error) {
	if err := ValidateUsername(username); err != nil {
		v.hasher.Verify(password, v.dummyHash)
		v.metrics.AuthEvent("login", metrics.OutcomeRejected)
		return "", ErrInvalidCredentials
	}

	cred, err := v.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			v.hasher.Verify(password, v.dummyHash)
			v.metrics.AuthEvent("login", metrics.OutcomeRejected)
			return "", ErrInvalidCredentials
		}
		v.metrics.AuthEvent("login", metrics.OutcomeError)
		v.log.Errorw("authenticate: credential lookup failed", "error", err)
		return "", fmt.Errorf("lookup credential: %w", err)
	}

	if !v.hasher.Verify(password, cred.PasswordHash) {
		v.metrics.AuthEvent("login", metrics.OutcomeRejected)
		return "", ErrInvalidCredentials
	}
	v.metrics.AuthEvent("login", metrics.OutcomeSuccess)
	return cred.Username, nil
}

// IssueToken signs an access token for subject with the configured TTL.
func (v *IdentityValidator) IssueToken(subject string) (utils.AccessToken, error) {
	return v.codec.Issue(subject, v.ttl)
}

// Login authenticates the pair and issues an access token for it.
func (v *IdentityValidator) Login(ctx context.Context, username, password string) (utils.AccessToken, error) {
	subject, err := v.Authenticate(ctx, username, password)
	if err != nil {
		return utils.AccessToken{}, err
	}
	tok, err := v.IssueToken(subject)
	if err != nil {
		return utils.AccessToken{}, fmt.Errorf("issue token: %w", err)
	}
	return tok, nil
}

// Resolve verifies a bearer token and returns the identity it asserts.
// Every failure, expired or otherwise, yields ErrUnauthenticated.
func (v *IdentityValidator) Resolve(token string) (string, error) {
	subject, err := v.codec.Verify(token)
	if err != nil {
		v.metrics.AuthEvent("token", metrics.OutcomeRejected)
		return "", ErrUnauthenticated
	}
	return subject, nil
}

func (v *IdentityValidator) publish(ctx context.Context, ev queue.AuditEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := v.events.Publish(ctx, ev); err != nil {
		v.log.Warnw("audit publish failed", "type", ev.Type, "error", err)
	}
}
