package identity

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced in API payloads and structured logs.
const (
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeDuplicateEmail  = "DUPLICATE_EMAIL"
	TextCodeTokenMalformed  = "TOKEN_MALFORMED"
	TextCodeTokenSignature  = "TOKEN_SIGNATURE_INVALID"
	TextCodeTokenExpired    = "TOKEN_EXPIRED"
	TextCodeTokenClaims     = "TOKEN_CLAIMS_INVALID"
	TextCodeUnauthenticated = "UNAUTHENTICATED"
	TextCodeForbidden       = "FORBIDDEN"
	TextCodeUserNotFound    = "USER_NOT_FOUND"
	TextCodeEmptyPassword   = "EMPTY_PASSWORD"
	TextCodeInvalidRole     = "INVALID_ROLE"
)

// ErrMismatchedHashAndPassword is returned for any credential failure at
// login: wrong password, unknown email, or an inactive account. The cases
// are deliberately indistinguishable to the caller.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyPassword rejects empty passwords before they reach bcrypt.
var ErrNoEmptyPassword = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrDuplicateEmail is returned when a registration or email change collides
// with an existing account.
var ErrDuplicateEmail = errors.New("email is already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail)

// ErrTokenMalformed covers structural decode failures: wrong segment count,
// bad base64, unparseable claims.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenSignature is returned when the signature does not match the
// payload under the configured secret, or the algorithm tag is not HMAC.
var ErrTokenSignature = errors.New("token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenSignature).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens at or past their expiry. There is
// no grace window.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenClaims is returned for tokens that verify but carry unusable
// claims, e.g. an empty subject.
var ErrTokenClaims = errors.New("token claims are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenClaims).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated is the umbrella failure the Guard surfaces for any
// token or subject-resolution problem. The specific cause is preserved as
// the wrapped source for logging, never for the caller.
var ErrUnauthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when a principal is authenticated but lacks the
// required role. Never collapsed into ErrUnauthenticated.
var ErrForbidden = errors.New("insufficient role for this operation", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrUserNotFound is returned for admin operations that target a missing
// user. Unlike login failures, this one stays distinguishable.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// IsUnauthenticated reports whether err is the Guard's collapsed
// authentication failure.
func IsUnauthenticated(err error) bool {
	return hasTextCode(err, TextCodeUnauthenticated)
}

// IsForbidden reports whether err is a role rejection.
func IsForbidden(err error) bool {
	return hasTextCode(err, TextCodeForbidden)
}

func hasTextCode(err error, code string) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsDuplicateConstraintError matches driver-level unique constraint
// violations across sqlite and postgres.
func IsDuplicateConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
