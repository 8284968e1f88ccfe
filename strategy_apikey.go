package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// APIKeyStrategy authenticates programmatic clients by exact match of
// the opaque key carried in the X-API-KEY header.
type APIKeyStrategy struct {
	store  Users
	logger Logger
}

func NewAPIKeyStrategy(store Users) *APIKeyStrategy {
	return &APIKeyStrategy{
		store:  store,
		logger: defLogger{},
	}
}

func (s *APIKeyStrategy) WithLogger(logger Logger) *APIKeyStrategy {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *APIKeyStrategy) Name() string { return StrategyAPIKey }

func (s *APIKeyStrategy) Resolve(ctx context.Context, creds Credentials) (*User, *TokenInfo, error) {
	if creds.APIKey == "" {
		return nil, nil, ErrAPIKeyNotCorrect
	}

	user, err := s.store.GetByAPIKey(ctx, creds.APIKey)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			return nil, nil, ErrAPIKeyNotCorrect
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user by api key")
	}

	return user, nil, nil
}

var _ Strategy = (*APIKeyStrategy)(nil)
