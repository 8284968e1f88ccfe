package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account credential record. One time token fields travel
// in pairs: token and expiry are either both set or both null, and
// every pair is scoped to exactly one purpose at a time.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email        string    `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string    `bun:"password_hash" json:"-"`
	Role         UserRole  `bun:"user_role,notnull" json:"user_role,omitempty"`
	IsVerified   bool      `bun:"is_verified" json:"is_verified,omitempty"`
	IsBanned     bool      `bun:"is_banned" json:"is_banned,omitempty"`
	APIKey       string    `bun:"apikey,nullzero,unique" json:"apikey,omitempty"`

	VerificationToken   string     `bun:"verification_token,nullzero" json:"-"`
	VerificationExpires *time.Time `bun:"verification_expires,nullzero" json:"-"`

	ResetPasswordToken   string     `bun:"reset_password_token,nullzero" json:"-"`
	ResetPasswordExpires *time.Time `bun:"reset_password_expires,nullzero" json:"-"`

	ChangeEmailAddress string     `bun:"change_email_address,nullzero" json:"-"`
	ChangeEmailToken   string     `bun:"change_email_token,nullzero" json:"-"`
	ChangeEmailExpires *time.Time `bun:"change_email_expires,nullzero" json:"-"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsAdmin reports whether the account carries the admin capability.
func (u *User) IsAdmin() bool {
	return IsAdminRole(u.Role)
}

// StageVerification populates the verification token pair.
func (u *User) StageVerification(token string, expires time.Time) {
	expires = DateToUTC(expires)
	u.VerificationToken = token
	u.VerificationExpires = &expires
}

// ClearVerification clears the verification token pair and marks the
// account verified.
func (u *User) ClearVerification() {
	u.IsVerified = true
	u.VerificationToken = ""
	u.VerificationExpires = nil
}

// StageReset populates the reset password token pair.
func (u *User) StageReset(token string, expires time.Time) {
	expires = DateToUTC(expires)
	u.ResetPasswordToken = token
	u.ResetPasswordExpires = &expires
}

// ClearReset clears the reset password token pair.
func (u *User) ClearReset() {
	u.ResetPasswordToken = ""
	u.ResetPasswordExpires = nil
}

// StageEmailChange stages a pending address with its token pair. The
// canonical email column is untouched until confirmation.
func (u *User) StageEmailChange(address, token string, expires time.Time) {
	expires = DateToUTC(expires)
	u.ChangeEmailAddress = address
	u.ChangeEmailToken = token
	u.ChangeEmailExpires = &expires
}

// ClearEmailChange promotes the staged address when confirm is true and
// clears the staging fields either way.
func (u *User) ClearEmailChange(confirm bool) {
	if confirm && u.ChangeEmailAddress != "" {
		u.Email = u.ChangeEmailAddress
	}
	u.ChangeEmailAddress = ""
	u.ChangeEmailToken = ""
	u.ChangeEmailExpires = nil
}

// Identity returns the identity view of the record. The password hash
// never crosses this boundary.
func (u *User) Identity() Identity {
	return userIdentity{
		id:       u.ID.String(),
		email:    u.Email,
		role:     string(u.Role),
		verified: u.IsVerified,
		banned:   u.IsBanned,
	}
}

type userIdentity struct {
	id       string
	email    string
	role     string
	verified bool
	banned   bool
}

func (a userIdentity) ID() string     { return a.id }
func (a userIdentity) Email() string  { return a.email }
func (a userIdentity) Role() string   { return a.role }
func (a userIdentity) Verified() bool { return a.verified }
func (a userIdentity) Banned() bool   { return a.banned }

var _ Identity = userIdentity{}
