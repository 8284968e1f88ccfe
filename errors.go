package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes double as the stable message kinds the message catalog is
// keyed by. The HTTP layer translates them, the core never carries
// user facing prose.
const (
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeUnauthorized         = "UNAUTHORIZED"
	TextCodeBanned               = "BANNED"
	TextCodeNotVerified          = "NOT_VERIFIED"
	TextCodeOIDCFailed           = "OIDC_FAILED"
	TextCodeAdminExists          = "ADMIN_EXISTS"
	TextCodeAPIKeyNotCorrect     = "APIKEY_NOT_CORRECT"
	TextCodeCurrentPasswordWrong = "CURRENT_PASSWORD_WRONG"
	TextCodeEmailAlreadyUsed     = "EMAIL_ALREADY_USED"
	TextCodePasswordChangeFailed = "PASSWORD_CHANGE_FAILED"
	TextCodeAPIKeyFailed         = "APIKEY_FAILED"
	TextCodePasswordSetFailed    = "PASSWORD_SET_FAILED"
	TextCodeRequestNotAllowed    = "REQUEST_NOT_ALLOWED"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
)

// ErrInvalidCredentials is returned when local credentials do not match.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized is returned when a strict route has no resolved identity.
var ErrUnauthorized = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrBanned is returned for banned accounts regardless of strictness.
var ErrBanned = errors.New("account is banned", errors.CategoryAuthz).
	WithTextCode(TextCodeBanned).
	WithCode(errors.CodeForbidden)

// ErrNotVerified is returned when a strict route resolves an unverified account.
var ErrNotVerified = errors.New("account is not verified", errors.CategoryValidation).
	WithTextCode(TextCodeNotVerified).
	WithCode(errors.CodeBadRequest)

// ErrOIDCFailed normalizes any provider side failure. Provider internals
// never reach the caller.
var ErrOIDCFailed = errors.New("external identity provider error", errors.CategoryAuth).
	WithTextCode(TextCodeOIDCFailed).
	WithCode(errors.CodeUnauthorized)

// ErrAdminExists rejects admin bootstrap once any user record exists.
var ErrAdminExists = errors.New("an account already exists", errors.CategoryConflict).
	WithTextCode(TextCodeAdminExists).
	WithCode(errors.CodeBadRequest)

// ErrAPIKeyNotCorrect is returned when an api key lookup finds no owner.
var ErrAPIKeyNotCorrect = errors.New("api key is not correct", errors.CategoryAuth).
	WithTextCode(TextCodeAPIKeyNotCorrect).
	WithCode(errors.CodeUnauthorized)

// ErrCurrentPasswordWrong is field scoped to the password input.
var ErrCurrentPasswordWrong = errors.New("current password does not match", errors.CategoryAuth).
	WithTextCode(TextCodeCurrentPasswordWrong).
	WithCode(errors.CodeUnauthorized)

// ErrEmailAlreadyUsed is field scoped to the email input.
var ErrEmailAlreadyUsed = errors.New("email address already in use", errors.CategoryConflict).
	WithTextCode(TextCodeEmailAlreadyUsed).
	WithCode(errors.CodeBadRequest)

var ErrPasswordChangeFailed = errors.New("could not change password", errors.CategoryInternal).
	WithTextCode(TextCodePasswordChangeFailed).
	WithCode(errors.CodeInternal)

var ErrAPIKeyFailed = errors.New("could not store api key", errors.CategoryInternal).
	WithTextCode(TextCodeAPIKeyFailed).
	WithCode(errors.CodeInternal)

// ErrPasswordSetFailed is returned when no unexpired reset token matches.
var ErrPasswordSetFailed = errors.New("could not set new password", errors.CategoryInternal).
	WithTextCode(TextCodePasswordSetFailed).
	WithCode(errors.CodeInternal)

// ErrRequestNotAllowed is returned when a feature gate denies access.
var ErrRequestNotAllowed = errors.New("request not allowed", errors.CategoryAuthz).
	WithTextCode(TextCodeRequestNotAllowed).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is the structured form of an expired bearer token.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is the structured form of an undecodable token.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword is the bcrypt mismatch sentinel.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

const fieldErrorsMetadataKey = "fields"

// WithFieldError clones err and scopes it to a form field. The field
// map carries message kinds, not prose; the rendering layer translates.
func WithFieldError(err *errors.Error, field, kind string) *errors.Error {
	fields := map[string]string{}
	if existing, ok := err.Metadata[fieldErrorsMetadataKey].(map[string]string); ok {
		for k, v := range existing {
			fields[k] = v
		}
	}
	fields[field] = kind
	return err.Clone().WithMetadata(map[string]any{fieldErrorsMetadataKey: fields})
}

// FieldErrors extracts the field to message kind map from a rich error,
// returning nil when the error carries no field scope.
func FieldErrors(err error) map[string]string {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return nil
	}
	fields, ok := richErr.Metadata[fieldErrorsMetadataKey].(map[string]string)
	if !ok {
		return nil
	}
	return fields
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
