package auth

import (
	"crypto/rand"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// APIKeyLength is the length of generated api keys.
const APIKeyLength = 40

const apiKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// OneTimeTokenIssuer mints unguessable, time boxed tokens for the
// verification, reset, and email change flows, plus opaque api keys.
type OneTimeTokenIssuer struct {
	window time.Duration
	now    func() time.Time
}

// NewOneTimeTokenIssuer creates an issuer with the configured window.
func NewOneTimeTokenIssuer(cfg Config) *OneTimeTokenIssuer {
	return &OneTimeTokenIssuer{
		window: cfg.GetOneTimeTokenWindow(),
		now:    time.Now,
	}
}

// WithClock injects a custom clock (useful for tests).
func (i *OneTimeTokenIssuer) WithClock(clock func() time.Time) *OneTimeTokenIssuer {
	if clock != nil {
		i.now = clock
	}
	return i
}

// Issue returns a fresh token and its absolute UTC expiry.
func (i *OneTimeTokenIssuer) Issue() (string, time.Time) {
	return i.IssueFor(i.window)
}

// IssueFor returns a fresh token expiring after the given window.
func (i *OneTimeTokenIssuer) IssueFor(window time.Duration) (string, time.Time) {
	return uuid.NewString(), DateToUTC(i.now().Add(window))
}

// NewAPIKey mints a 40 character opaque key over a url safe alphabet.
func NewAPIKey() (string, error) {
	buf := make([]byte, APIKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random bytes for api key")
	}

	for n, b := range buf {
		buf[n] = apiKeyAlphabet[int(b)%len(apiKeyAlphabet)]
	}

	return string(buf), nil
}
