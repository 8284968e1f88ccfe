package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the decoded assertion carried by a signed token: user
// identity, role, and the timing data renewal decisions depend on.
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	IsAdmin() bool
	IssuedAt() time.Time
	Expires() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the user role
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// IsAdmin reports whether the claims carry the admin capability.
func (c *JWTClaims) IsAdmin() bool {
	return IsAdminRole(c.UserRole)
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// TokenInfoFromClaims extracts the renewal metadata from decoded claims.
func TokenInfoFromClaims(claims AuthClaims) *TokenInfo {
	if claims == nil {
		return nil
	}
	return &TokenInfo{
		IssuedAt:  claims.IssuedAt(),
		ExpiresAt: claims.Expires(),
	}
}
