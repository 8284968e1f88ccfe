package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func notFoundErr() error {
	return repository.NewRecordNotFound()
}

func testUserWithPassword(t *testing.T, password string) *auth.User {
	t.Helper()

	hasher := auth.NewHasher(auth.DefaultConfig("test-key"))
	hash, err := hasher.HashPassword(password)
	require.NoError(t, err)

	user := &auth.User{
		Email:        "pepe.rone@example.com",
		PasswordHash: hash,
		Role:         auth.RoleUser,
		IsVerified:   true,
	}
	user.ID = newTestUUID(t)
	return user
}

func TestStrategyRegistry(t *testing.T) {
	store := &MockUsers{}
	hasher := auth.NewHasher(auth.DefaultConfig("test-key"))

	registry := auth.NewStrategyRegistry()
	registry.Register(auth.NewLocalStrategy(store, hasher))

	strategy, err := registry.Get(auth.StrategyLocal)
	require.NoError(t, err)
	assert.Equal(t, auth.StrategyLocal, strategy.Name())

	_, err = registry.Get("nope")
	assert.Error(t, err)
}

func TestLocalStrategyResolve(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewHasher(auth.DefaultConfig("test-key"))
	user := testUserWithPassword(t, "Secret123!")

	t.Run("valid credentials", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()

		strategy := auth.NewLocalStrategy(store, hasher)
		resolved, info, err := strategy.Resolve(ctx, auth.Credentials{
			Email:    user.Email,
			Password: "Secret123!",
		})

		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved.ID)
		assert.Nil(t, info)
		store.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()

		strategy := auth.NewLocalStrategy(store, hasher)
		_, _, err := strategy.Resolve(ctx, auth.Credentials{
			Email:    user.Email,
			Password: "wrong",
		})

		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByEmail", ctx, "nobody@example.com").Return(nil, notFoundErr()).Once()

		strategy := auth.NewLocalStrategy(store, hasher)
		_, _, err := strategy.Resolve(ctx, auth.Credentials{
			Email:    "nobody@example.com",
			Password: "Secret123!",
		})

		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("external only account has no local password", func(t *testing.T) {
		external := &auth.User{Email: "ext@example.com", Role: auth.RoleUser, IsVerified: true}
		external.ID = newTestUUID(t)

		store := &MockUsers{}
		store.On("GetByEmail", ctx, external.Email).Return(external, nil).Once()

		strategy := auth.NewLocalStrategy(store, hasher)
		_, _, err := strategy.Resolve(ctx, auth.Credentials{
			Email:    external.Email,
			Password: "anything",
		})

		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("empty credentials", func(t *testing.T) {
		store := &MockUsers{}

		strategy := auth.NewLocalStrategy(store, hasher)
		_, _, err := strategy.Resolve(ctx, auth.Credentials{})

		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		store.AssertNotCalled(t, "GetByEmail")
	})
}

func TestTokenStrategyResolve(t *testing.T) {
	ctx := context.Background()
	svc := testTokenService()
	user := testUserWithPassword(t, "Secret123!")

	t.Run("valid token", func(t *testing.T) {
		token, err := svc.Sign(user.Identity())
		require.NoError(t, err)

		store := &MockUsers{}
		store.On("GetByID", mock.Anything, user.ID.String()).Return(user, nil).Once()

		strategy := auth.NewTokenStrategy(svc, store)
		resolved, info, err := strategy.Resolve(ctx, auth.Credentials{Token: token})

		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved.ID)
		require.NotNil(t, info)
		assert.False(t, info.IssuedAt.IsZero())
	})

	t.Run("garbage token", func(t *testing.T) {
		store := &MockUsers{}

		strategy := auth.NewTokenStrategy(svc, store)
		_, _, err := strategy.Resolve(ctx, auth.Credentials{Token: "garbage"})

		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("missing token", func(t *testing.T) {
		strategy := auth.NewTokenStrategy(svc, &MockUsers{})
		_, _, err := strategy.Resolve(ctx, auth.Credentials{})

		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("token for deleted user", func(t *testing.T) {
		token, err := svc.Sign(user.Identity())
		require.NoError(t, err)

		store := &MockUsers{}
		store.On("GetByID", mock.Anything, user.ID.String()).Return(nil, notFoundErr()).Once()

		strategy := auth.NewTokenStrategy(svc, store)
		_, _, err = strategy.Resolve(ctx, auth.Credentials{Token: token})

		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})
}

func TestAPIKeyStrategyResolve(t *testing.T) {
	ctx := context.Background()
	user := testUserWithPassword(t, "Secret123!")
	user.APIKey = "abcdefghijklmnopqrstuvwxyz0123456789ABCD"

	t.Run("matching key", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByAPIKey", ctx, user.APIKey).Return(user, nil).Once()

		strategy := auth.NewAPIKeyStrategy(store)
		resolved, info, err := strategy.Resolve(ctx, auth.Credentials{APIKey: user.APIKey})

		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved.ID)
		assert.Nil(t, info)
	})

	t.Run("unknown key", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByAPIKey", ctx, "bogus").Return(nil, notFoundErr()).Once()

		strategy := auth.NewAPIKeyStrategy(store)
		_, _, err := strategy.Resolve(ctx, auth.Credentials{APIKey: "bogus"})

		assert.ErrorIs(t, err, auth.ErrAPIKeyNotCorrect)
	})

	t.Run("missing key", func(t *testing.T) {
		strategy := auth.NewAPIKeyStrategy(&MockUsers{})
		_, _, err := strategy.Resolve(ctx, auth.Credentials{})

		assert.ErrorIs(t, err, auth.ErrAPIKeyNotCorrect)
	})
}
