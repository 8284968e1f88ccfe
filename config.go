package auth

import "time"

// SimpleConfig is a concrete Config built once at process start and
// passed by reference into each component. There is no module level
// mutable configuration.
type SimpleConfig struct {
	SigningKey         string
	SigningMethod      string
	ContextKey         string
	TokenExpiration    int
	Issuer             string
	Audience           []string
	HashCost           int
	VerificationWindow time.Duration
	OneTimeTokenWindow time.Duration
	RenewalWindowDays  int
}

// DefaultConfig returns a SimpleConfig with the package defaults:
// 7 day tokens, bcrypt cost 12, 30 minute one time token windows, and
// a 6 day silent renewal window.
func DefaultConfig(signingKey string) *SimpleConfig {
	return &SimpleConfig{
		SigningKey:         signingKey,
		SigningMethod:      "HS256",
		ContextKey:         "token",
		TokenExpiration:    24 * 7,
		HashCost:           12,
		VerificationWindow: 24 * time.Hour,
		OneTimeTokenWindow: 30 * time.Minute,
		RenewalWindowDays:  6,
	}
}

func (c *SimpleConfig) GetSigningKey() string    { return c.SigningKey }
func (c *SimpleConfig) GetSigningMethod() string { return c.SigningMethod }

func (c *SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "token"
	}
	return c.ContextKey
}

// GetTokenExpiration returns the token TTL in hours.
func (c *SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return 24 * 7
	}
	return c.TokenExpiration
}

func (c *SimpleConfig) GetIssuer() string     { return c.Issuer }
func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetHashCost() int {
	if c.HashCost <= 0 {
		return defaultHashCost
	}
	return c.HashCost
}

func (c *SimpleConfig) GetVerificationWindow() time.Duration {
	if c.VerificationWindow <= 0 {
		return 24 * time.Hour
	}
	return c.VerificationWindow
}

func (c *SimpleConfig) GetOneTimeTokenWindow() time.Duration {
	if c.OneTimeTokenWindow <= 0 {
		return 30 * time.Minute
	}
	return c.OneTimeTokenWindow
}

func (c *SimpleConfig) GetRenewalWindowDays() int {
	if c.RenewalWindowDays <= 0 {
		return 6
	}
	return c.RenewalWindowDays
}

var _ Config = (*SimpleConfig)(nil)
