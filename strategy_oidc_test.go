package auth_test

import (
	"context"
	"errors"
	"testing"

	auth "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	identity *auth.ExternalIdentity
	err      error
}

func (s *stubVerifier) VerifyAssertion(ctx context.Context, assertion string) (*auth.ExternalIdentity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func TestOIDCStrategyResolvesExistingUser(t *testing.T) {
	ctx := context.Background()
	user := testUserWithPassword(t, "Secret123!")

	users := &MockUsers{}
	users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()

	repo := &MockRepositoryManager{}
	repo.On("Users").Return(users)

	strategy := auth.NewOIDCStrategy(&stubVerifier{
		identity: &auth.ExternalIdentity{Subject: "ext|123", Email: user.Email},
	}, repo)

	resolved, info, err := strategy.Resolve(ctx, auth.Credentials{Assertion: "assertion"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Nil(t, info)
}

func TestOIDCStrategyProvisionsFirstLogin(t *testing.T) {
	ctx := context.Background()

	users := &MockUsers{}
	users.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, notFoundErr()).Once()
	users.On("Upsert", mock.Anything, mock.MatchedBy(func(u *auth.User) bool {
		return u.Email == "new@example.com" &&
			u.IsVerified &&
			u.PasswordHash == "" &&
			u.Role == auth.RoleUser
	})).Return(&auth.User{Email: "new@example.com", IsVerified: true}, nil).Once()

	repo := &MockRepositoryManager{}
	repo.On("Users").Return(users)

	strategy := auth.NewOIDCStrategy(&stubVerifier{
		identity: &auth.ExternalIdentity{Subject: "ext|456", Email: "new@example.com"},
	}, repo)

	resolved, _, err := strategy.Resolve(ctx, auth.Credentials{Assertion: "assertion"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", resolved.Email)
	users.AssertExpectations(t)
}

func TestOIDCStrategyNormalizesProviderErrors(t *testing.T) {
	ctx := context.Background()

	repo := &MockRepositoryManager{}

	strategy := auth.NewOIDCStrategy(&stubVerifier{
		err: errors.New("provider: certificate chain invalid at intermediary 3"),
	}, repo)

	_, _, err := strategy.Resolve(ctx, auth.Credentials{Assertion: "assertion"})
	require.Error(t, err)

	// provider internals never leak to the caller
	assert.ErrorIs(t, err, auth.ErrOIDCFailed)
	assert.NotContains(t, err.Error(), "certificate chain")
}

func TestOIDCStrategyRequiresAssertion(t *testing.T) {
	strategy := auth.NewOIDCStrategy(&stubVerifier{}, &MockRepositoryManager{})

	_, _, err := strategy.Resolve(context.Background(), auth.Credentials{})
	assert.ErrorIs(t, err, auth.ErrOIDCFailed)
}
