package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of a resolved identity
type Identity interface {
	ID() string
	Email() string
	Role() string
	Verified() bool
	Banned() bool
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetHashCost() int
	GetVerificationWindow() time.Duration
	GetOneTimeTokenWindow() time.Duration
	GetRenewalWindowDays() int
}

// TokenService signs and validates compact auth tokens
type TokenService interface {
	Sign(identity Identity) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidator validates tokens and extracts claims without tying
// callers to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenInfo carries timing metadata for an accepted bearer token, used
// by the guard to make renewal decisions.
type TokenInfo struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Mailer sends the lifecycle notification emails. Callers decide
// whether a send failure is fatal to the request: signup treats it as
// fatal, reset requests log and discard it.
type Mailer interface {
	SendVerification(ctx context.Context, user *User) error
	SendResetToken(ctx context.Context, user *User) error
	SendChangeEmail(ctx context.Context, user *User) error
}

// CacheNotifier invalidates externally cached user lookups. Best
// effort: implementations log failures, callers never see them.
type CacheNotifier interface {
	Invalidate(ctx context.Context, user *User)
}

// Translator resolves message keys into localized user facing text.
// The core never hard codes user visible strings.
type Translator interface {
	T(lang, key string, args ...any) string
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
