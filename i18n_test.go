package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestCatalogLookupAndFallback(t *testing.T) {
	catalog := auth.NewCatalog("en").
		Load("en", map[string]string{
			"messages.welcome":           "Welcome!",
			"messages.verification_sent": "A verification email has been sent to %s.",
		}).
		Load("es", map[string]string{
			"messages.welcome": "¡Bienvenido!",
		})

	assert.Equal(t, "Welcome!", catalog.T("en", "messages.welcome"))
	assert.Equal(t, "¡Bienvenido!", catalog.T("es", "messages.welcome"))

	// missing in requested language falls back to the default language
	assert.Equal(t,
		"A verification email has been sent to a@b.com.",
		catalog.T("es", "messages.verification_sent", "a@b.com"),
	)

	// missing everywhere falls back to the key itself
	assert.Equal(t, "messages.nope", catalog.T("en", "messages.nope"))
}

func TestCatalogInterpolation(t *testing.T) {
	catalog := auth.NewCatalog("en").Load("en", map[string]string{
		"messages.reset_sent": "Reset link sent to %s, valid for %d minutes.",
	})

	assert.Equal(t,
		"Reset link sent to a@b.com, valid for 30 minutes.",
		catalog.T("en", "messages.reset_sent", "a@b.com", 30),
	)
}
