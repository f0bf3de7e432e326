package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CompleteSignup consumes a signup OTP and materializes the account. The
// password travels from the pending-signup cache to the identity provider;
// the local row adopts the provider's subject id so the two systems share one
// identifier. If the provider already knows the email, the supplied password
// is re-authenticated: a match adopts the existing identity, a mismatch is a
// [ErrSignupConflict].
func (e *Engine) CompleteSignup(ctx context.Context, email, code string) (*AuthResult, error) {
	if e.otpStore == nil || e.pendingStore == nil || e.identity == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)

	if err := e.consumeOTP(ctx, PurposeSignup, email, code); err != nil {
		e.metricInc(MetricSignupFailure)
		e.emitAudit(ctx, auditEventSignupFailure, false, "", email, err, func() map[string]string {
			return map[string]string{
				"stage": "otp",
			}
		})
		return nil, err
	}

	pending, err := e.pendingStore.Take(ctx, email)
	if err != nil {
		if errors.Is(err, errPendingNotFound) {
			// The code outlived its pending record or the flow was never
			// initiated here. Indistinguishable from a bad code on purpose.
			e.metricInc(MetricSignupFailure)
			e.emitAudit(ctx, auditEventSignupFailure, false, "", email, ErrOTPInvalid, func() map[string]string {
				return map[string]string{
					"stage": "pending",
				}
			})
			return nil, ErrOTPInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}

	subjectID, err := e.identity.CreateAccount(ctx, email, pending.Password)
	if err != nil {
		if errors.Is(err, ErrIdentityExists) {
			subjectID, err = e.identity.Authenticate(ctx, email, pending.Password)
			if err != nil {
				if errors.Is(err, ErrInvalidCredentials) {
					e.metricInc(MetricSignupConflict)
					e.emitAudit(ctx, auditEventSignupConflict, false, "", email, ErrSignupConflict, nil)
					return nil, ErrSignupConflict
				}
				e.metricInc(MetricSignupFailure)
				e.emitAudit(ctx, auditEventSignupFailure, false, "", email, ErrProviderUnavailable, nil)
				return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			}
		} else {
			e.metricInc(MetricSignupFailure)
			e.emitAudit(ctx, auditEventSignupFailure, false, "", email, ErrProviderUnavailable, nil)
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
	}

	user, err := e.findOrCreateUser(ctx, subjectID, email)
	if err != nil {
		e.metricInc(MetricSignupFailure)
		e.emitAudit(ctx, auditEventSignupFailure, false, subjectID, email, err, func() map[string]string {
			return map[string]string{
				"stage": "store",
			}
		})
		return nil, err
	}

	e.touchLastLogin(ctx, user)

	tokens, err := e.issueTokens(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignupCompleted, true, user.ID, user.Email, nil, nil)

	return e.authResult(user, tokens), nil
}

// findOrCreateUser loads the local row for a provider subject, creating it on
// first signup. A duplicate on create means a concurrent request won the
// race; the winner's row is adopted.
func (e *Engine) findOrCreateUser(ctx context.Context, subjectID, email string) (*User, error) {
	user, err := e.users.GetUserByID(ctx, subjectID)
	if err == nil {
		if !user.EmailVerified {
			user.EmailVerified = true
			user.UpdatedAt = time.Now()
			if err := e.users.UpdateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
			}
		}
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}

	now := time.Now()
	user = &User{
		ID:            subjectID,
		Email:         email,
		Username:      generateTempUsername(email, now.Unix()),
		EmailVerified: true,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := e.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, ErrDuplicate) {
			return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
		}
		existing, getErr := e.users.GetUserByID(ctx, subjectID)
		if getErr == nil {
			return existing, nil
		}
		if !errors.Is(getErr, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, getErr)
		}
		// No row for this subject, so the duplicate was the temp username.
		// One retry with a random suffix.
		retry, retryErr := retryTempUsername(email, now.Unix())
		if retryErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
		}
		user.Username = retry
		if err := e.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
		}
	}

	e.nameCache.MarkTaken(ctx, user.Username)
	return user, nil
}

// touchLastLogin stamps the login time best effort. A store hiccup here must
// not fail an otherwise successful authentication.
func (e *Engine) touchLastLogin(ctx context.Context, user *User) {
	user.LastLoginAt = time.Now()
	user.UpdatedAt = user.LastLoginAt
	_ = e.users.UpdateUser(ctx, user)
}
