package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func apiKeyFixture() (*auth.GenerateAPIKeyHandler, *MockUsers, *recordingCache) {
	users := &MockUsers{}
	repo := &MockRepositoryManager{}
	repo.On("Users").Return(users)

	cache := &recordingCache{}
	handler := auth.NewGenerateAPIKeyHandler(repo, cache).WithLogger(testLogger{})

	return handler, users, cache
}

func TestGenerateAPIKeyRotates(t *testing.T) {
	handler, users, cache := apiKeyFixture()

	user := testUserWithPassword(t, "Secret123!")
	user.APIKey = "previous-key"

	users.On("GetByID", mock.Anything, user.ID.String()).Return(user, nil).Twice()
	users.On("SetAPIKey", mock.Anything, user.ID, mock.MatchedBy(func(key string) bool {
		// the stale cache entry must already be gone when the new key lands
		return len(key) == auth.APIKeyLength && len(cache.invalidated) > 0
	})).Return(user, nil).Twice()

	keys := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		err := handler.Execute(context.Background(), auth.GenerateAPIKeyMessage{
			UserID: user.ID.String(),
			OnResponse: func(r *auth.GenerateAPIKeyResponse) {
				keys = append(keys, r.APIKey)
			},
		})
		require.NoError(t, err)
	}

	require.Len(t, keys, 2)
	assert.Len(t, keys[0], auth.APIKeyLength)
	assert.NotEqual(t, keys[0], keys[1])
	assert.Len(t, cache.invalidated, 2)

	users.AssertExpectations(t)
}

func TestGenerateAPIKeyUnknownUser(t *testing.T) {
	handler, users, cache := apiKeyFixture()

	id := uuid.New()
	users.On("GetByID", mock.Anything, id.String()).Return(nil, notFoundErr()).Once()

	err := handler.Execute(context.Background(), auth.GenerateAPIKeyMessage{UserID: id.String()})
	assert.ErrorIs(t, err, auth.ErrAPIKeyFailed)
	assert.Empty(t, cache.invalidated)
}

func TestGenerateAPIKeyBadUserID(t *testing.T) {
	handler, _, _ := apiKeyFixture()

	err := handler.Execute(context.Background(), auth.GenerateAPIKeyMessage{UserID: "not-a-uuid"})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestGenerateAPIKeyRowVanishes(t *testing.T) {
	handler, users, _ := apiKeyFixture()

	user := testUserWithPassword(t, "Secret123!")
	users.On("GetByID", mock.Anything, user.ID.String()).Return(user, nil).Once()
	users.On("SetAPIKey", mock.Anything, user.ID, mock.Anything).
		Return(nil, notFoundErr()).Once()

	err := handler.Execute(context.Background(), auth.GenerateAPIKeyMessage{UserID: user.ID.String()})
	assert.ErrorIs(t, err, auth.ErrAPIKeyFailed)
}
