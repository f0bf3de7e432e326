package authcore

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidEmail is returned when an email address fails syntactic validation.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPasswordRequired is returned when a signup OTP is requested without a password.
	ErrPasswordRequired = errors.New("password required for signup")
	// ErrOTPInvalid is returned for a wrong, expired, or absent one-time code.
	// Wrong and expired codes are deliberately indistinguishable.
	ErrOTPInvalid = errors.New("invalid or expired code")
	// ErrOTPRateLimited is returned when OTP requests exceed the per-window limit.
	ErrOTPRateLimited = errors.New("otp requests rate limited")
	// ErrOTPUnavailable is returned when the OTP cache backend is unreachable.
	// The cache is the only home of a live code, so this is fatal to issuance.
	ErrOTPUnavailable = errors.New("otp backend unavailable")
	// ErrMailUnavailable is returned when the OTP email could not be handed to
	// the sender. The stored code remains valid.
	ErrMailUnavailable = errors.New("otp email delivery failed")
	// ErrSignupConflict is returned when the email is already registered with
	// different credentials at the identity provider.
	ErrSignupConflict = errors.New("email registered with different credentials")
	// ErrIdentityExists is reported by an IdentityProvider when the account
	// already exists.
	ErrIdentityExists = errors.New("identity already exists")
	// ErrInvalidCredentials is reported on a failed credential check.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned when authentication succeeded upstream but no
	// matching local user exists, or a token subject cannot be resolved.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserNotFound is reported by a UserStore when no row matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserDisabled is returned for soft-disabled accounts.
	ErrUserDisabled = errors.New("user disabled")
	// ErrProviderUnavailable is returned for identity provider failures other
	// than duplicate/credential outcomes. Provider internals are not leaked.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrUsernameInvalid is returned when a username fails validation or is reserved.
	ErrUsernameInvalid = errors.New("invalid username")
	// ErrUsernameTaken is returned when another user holds the requested username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrUsernameNotFound is returned when no live redirect exists for a name.
	ErrUsernameNotFound = errors.New("username not found")
	// ErrRefreshInvalid is returned for malformed, expired, or mis-typed refresh tokens.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshReuse is returned when refresh rotation is enforced and an
	// already-rotated token is presented again.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrCacheUnavailable is returned when the cache backend fails outside the
	// OTP issuance path, e.g. during refresh rotation tracking.
	ErrCacheUnavailable = errors.New("cache backend unavailable")
	// ErrUserStoreUnavailable is returned when the durable user store is unreachable.
	ErrUserStoreUnavailable = errors.New("user store unavailable")
	// ErrDuplicate is reported by a UserStore on a unique-constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrGuestAccessDisabled is returned when guest WiFi verification is turned off.
	ErrGuestAccessDisabled = errors.New("guest access disabled")
	// ErrEngineNotReady is returned when a required collaborator was not wired.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitedError carries the remaining wait before the fixed window expires.
// It unwraps to [ErrOTPRateLimited].
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrOTPRateLimited
}
