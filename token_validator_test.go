package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticClaims struct {
	auth.AuthClaims
	uid string
}

func (c staticClaims) UserID() string { return c.uid }

func TestMultiTokenValidatorTriesNextOnMalformed(t *testing.T) {
	first := auth.TokenValidatorFunc(func(string) (auth.AuthClaims, error) {
		return nil, auth.ErrTokenMalformed
	})
	second := auth.TokenValidatorFunc(func(string) (auth.AuthClaims, error) {
		return staticClaims{uid: "user-2"}, nil
	})

	multi := auth.NewMultiTokenValidator(first, second)

	claims, err := multi.Validate("some-token")
	require.NoError(t, err)
	assert.Equal(t, "user-2", claims.UserID())
}

func TestMultiTokenValidatorStopsOnExpired(t *testing.T) {
	first := auth.TokenValidatorFunc(func(string) (auth.AuthClaims, error) {
		return nil, auth.ErrTokenExpired
	})
	called := false
	second := auth.TokenValidatorFunc(func(string) (auth.AuthClaims, error) {
		called = true
		return staticClaims{uid: "user-2"}, nil
	})

	multi := auth.NewMultiTokenValidator(first, second)

	_, err := multi.Validate("some-token")
	require.Error(t, err)
	assert.True(t, auth.IsTokenExpiredError(err))
	assert.False(t, called)
}

func TestMultiTokenValidatorAllMalformed(t *testing.T) {
	bad := auth.TokenValidatorFunc(func(string) (auth.AuthClaims, error) {
		return nil, auth.ErrTokenMalformed
	})

	multi := auth.NewMultiTokenValidator(bad, bad, nil)

	_, err := multi.Validate("some-token")
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))
}

func TestMultiTokenValidatorEmpty(t *testing.T) {
	multi := auth.NewMultiTokenValidator()
	_, err := multi.Validate("some-token")
	assert.True(t, auth.IsMalformedError(err))
}
