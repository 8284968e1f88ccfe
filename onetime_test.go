package auth_test

import (
	"strings"
	"testing"
	"time"

	auth "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueReturnsTokenWithWindowExpiry(t *testing.T) {
	frozen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	issuer := auth.NewOneTimeTokenIssuer(&auth.SimpleConfig{
		OneTimeTokenWindow: 30 * time.Minute,
	}).WithClock(func() time.Time { return frozen })

	token, expires := issuer.Issue()

	assert.NotEmpty(t, token)
	assert.Equal(t, frozen.Add(30*time.Minute), expires)
	assert.Equal(t, time.UTC, expires.Location())
}

func TestIssueForOverridesWindow(t *testing.T) {
	frozen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	issuer := auth.NewOneTimeTokenIssuer(auth.DefaultConfig("k")).
		WithClock(func() time.Time { return frozen })

	_, expires := issuer.IssueFor(24 * time.Hour)
	assert.Equal(t, frozen.Add(24*time.Hour), expires)
}

func TestIssueTokensAreUnique(t *testing.T) {
	issuer := auth.NewOneTimeTokenIssuer(auth.DefaultConfig("k"))

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, _ := issuer.Issue()
		assert.False(t, seen[token])
		seen[token] = true
	}
}

func TestNewAPIKey(t *testing.T) {
	key, err := auth.NewAPIKey()
	require.NoError(t, err)
	assert.Len(t, key, auth.APIKeyLength)

	other, err := auth.NewAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	for _, r := range key {
		assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
	}
}
