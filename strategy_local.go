package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// LocalStrategy verifies email and password against the stored hash.
type LocalStrategy struct {
	store  Users
	hasher PasswordAuthenticator
	logger Logger
}

// NewLocalStrategy creates the local credentials strategy.
func NewLocalStrategy(store Users, hasher PasswordAuthenticator) *LocalStrategy {
	return &LocalStrategy{
		store:  store,
		hasher: hasher,
		logger: defLogger{},
	}
}

func (s *LocalStrategy) WithLogger(logger Logger) *LocalStrategy {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *LocalStrategy) Name() string { return StrategyLocal }

// Resolve never distinguishes unknown email from wrong password; both
// collapse into invalid credentials.
func (s *LocalStrategy) Resolve(ctx context.Context, creds Credentials) (*User, *TokenInfo, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.store.GetByEmail(ctx, creds.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	// External provider only accounts carry no local hash.
	if user.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.hasher.ComparePasswordAndHash(creds.Password, user.PasswordHash); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	return user, nil, nil
}

var _ Strategy = (*LocalStrategy)(nil)
