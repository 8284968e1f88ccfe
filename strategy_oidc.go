package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// ExternalIdentity is the subset of claims we accept from a federated
// provider's assertion.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
}

// AssertionVerifier validates an identity assertion produced by an
// external provider and extracts the identity claims it carries.
type AssertionVerifier interface {
	VerifyAssertion(ctx context.Context, assertion string) (*ExternalIdentity, error)
}

// JWKSVerifierConfig configures assertion verification against a
// provider's published JWK Set.
type JWKSVerifierConfig struct {
	// JWKSetURLs are the provider endpoints serving signing keys.
	JWKSetURLs []string
	// Issuer, when set, is required to match the assertion's iss claim.
	Issuer string
	// Audience, when set, is required to match the assertion's aud claim.
	Audience string
	// RefreshInterval overrides the background key refresh cadence.
	RefreshInterval time.Duration
	// Logger receives refresh errors.
	Logger Logger
}

// JWKSVerifier verifies provider assertions using keys fetched from
// the provider's JWK Set endpoints. Keys refresh in the background so
// provider rotations do not require a restart.
type JWKSVerifier struct {
	jwks   *keyfunc.MultipleJWKS
	config JWKSVerifierConfig
}

func NewJWKSVerifier(cfg JWKSVerifierConfig) (*JWKSVerifier, error) {
	if len(cfg.JWKSetURLs) == 0 {
		return nil, errors.New("at least one JWK Set URL is required", errors.CategoryBadInput)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = defLogger{}
	}

	refresh := cfg.RefreshInterval
	if refresh == 0 {
		refresh = time.Hour
	}

	opts := keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Warn("background JWK Set refresh failed: %v", err)
		},
		RefreshInterval:   refresh,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}

	m := make(map[string]keyfunc.Options, len(cfg.JWKSetURLs))
	for _, url := range cfg.JWKSetURLs {
		m[url] = opts
	}

	jwks, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWK Set: %w", err)
	}

	return &JWKSVerifier{jwks: jwks, config: cfg}, nil
}

func (v *JWKSVerifier) VerifyAssertion(ctx context.Context, assertion string) (*ExternalIdentity, error) {
	opts := []jwt.ParserOption{}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(assertion, claims, v.jwks.Keyfunc, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("assertion did not validate")
	}

	ident := &ExternalIdentity{}
	if sub, err := claims.GetSubject(); err == nil {
		ident.Subject = sub
	}
	if email, ok := claims["email"].(string); ok {
		ident.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		ident.Name = name
	}

	if ident.Email == "" {
		return nil, fmt.Errorf("assertion carries no email claim")
	}

	return ident, nil
}

var _ AssertionVerifier = (*JWKSVerifier)(nil)

// OIDCStrategy authenticates users carrying a federated provider
// assertion. Verification happens against the provider's published
// keys, and any provider side failure collapses into a single
// outward error so callers cannot probe the provider through us.
//
// Accounts resolved this way are provisioned on first contact:
// verified, with no local password, keyed by a deterministic id
// derived from the email so repeat logins land on the same row.
type OIDCStrategy struct {
	verifier AssertionVerifier
	repo     RepositoryManager
	logger   Logger
}

func NewOIDCStrategy(verifier AssertionVerifier, repo RepositoryManager) *OIDCStrategy {
	return &OIDCStrategy{
		verifier: verifier,
		repo:     repo,
		logger:   defLogger{},
	}
}

func (s *OIDCStrategy) WithLogger(logger Logger) *OIDCStrategy {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *OIDCStrategy) Name() string { return StrategyOIDC }

func (s *OIDCStrategy) Resolve(ctx context.Context, creds Credentials) (*User, *TokenInfo, error) {
	if creds.Assertion == "" {
		return nil, nil, ErrOIDCFailed
	}

	ident, err := s.verifier.VerifyAssertion(ctx, creds.Assertion)
	if err != nil {
		s.logger.Debug("assertion verification failed: %v", err)
		return nil, nil, ErrOIDCFailed
	}

	user, err := s.repo.Users().GetByEmail(ctx, ident.Email)
	if err == nil {
		return user, nil, nil
	}

	if !repository.IsRecordNotFound(err) && !errors.IsNotFound(err) {
		s.logger.Error("failed to look up federated user: %v", err)
		return nil, nil, ErrOIDCFailed
	}

	user, err = s.provision(ctx, ident)
	if err != nil {
		s.logger.Error("failed to provision federated user: %v", err)
		return nil, nil, ErrOIDCFailed
	}

	return user, nil, nil
}

func (s *OIDCStrategy) provision(ctx context.Context, ident *ExternalIdentity) (*User, error) {
	user := &User{
		Email:      ident.Email,
		Role:       RoleUser,
		IsVerified: true,
	}

	if id, err := hashid.NewUUID(ident.Email); err == nil {
		user.ID = id
	} else {
		user.ID = uuid.New()
	}

	// Upsert so a concurrent first login from the same account does
	// not race into a duplicate key error.
	created, err := s.repo.Users().Upsert(ctx, user)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConflict, "could not provision federated user")
	}

	return created, nil
}

var _ Strategy = (*OIDCStrategy)(nil)
