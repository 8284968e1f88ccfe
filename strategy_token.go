package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// TokenStrategy verifies a bearer token's signature and expiry and
// returns the token's timing metadata so the guard can decide on
// silent renewal.
type TokenStrategy struct {
	validator TokenValidator
	store     Users
	logger    Logger
}

// NewTokenStrategy creates the bearer token strategy.
func NewTokenStrategy(validator TokenValidator, store Users) *TokenStrategy {
	return &TokenStrategy{
		validator: validator,
		store:     store,
		logger:    defLogger{},
	}
}

func (s *TokenStrategy) WithLogger(logger Logger) *TokenStrategy {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *TokenStrategy) Name() string { return StrategyToken }

func (s *TokenStrategy) Resolve(ctx context.Context, creds Credentials) (*User, *TokenInfo, error) {
	if creds.Token == "" {
		return nil, nil, ErrUnauthorized
	}

	claims, err := s.validator.Validate(creds.Token)
	if err != nil {
		s.logger.Debug("token validation failed: %v", err)
		return nil, nil, ErrUnauthorized
	}

	user, err := s.store.GetByID(ctx, claims.UserID())
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user for token")
	}

	return user, TokenInfoFromClaims(claims), nil
}

var _ Strategy = (*TokenStrategy)(nil)
