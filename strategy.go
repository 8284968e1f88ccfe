package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Strategy names. A protected route selects exactly one strategy at
// registration time; dispatch is by name, never by inspecting the
// credential payload.
const (
	StrategyLocal  = "local"
	StrategyToken  = "token"
	StrategyAPIKey = "apikey"
	StrategyOIDC   = "oidc"
)

// Credentials is the raw material a strategy resolves. Only the fields
// the selected strategy reads are populated.
type Credentials struct {
	Email     string
	Password  string
	Token     string
	APIKey    string
	Assertion string
}

// Strategy verifies one kind of request credential into a resolved
// user, plus token timing metadata when the credential carries any.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, creds Credentials) (*User, *TokenInfo, error)
}

// StrategyRegistry holds the configured strategies keyed by name.
type StrategyRegistry struct {
	strategies map[string]Strategy
}

// NewStrategyRegistry registers the given strategies.
func NewStrategyRegistry(strategies ...Strategy) *StrategyRegistry {
	r := &StrategyRegistry{strategies: map[string]Strategy{}}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a strategy.
func (r *StrategyRegistry) Register(s Strategy) *StrategyRegistry {
	if s != nil {
		r.strategies[s.Name()] = s
	}
	return r
}

// Get returns the named strategy.
func (r *StrategyRegistry) Get(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, errors.New("unknown authentication strategy", errors.CategoryBadInput).
			WithMetadata(map[string]any{"strategy": name})
	}
	return s, nil
}
