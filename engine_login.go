package authcore

import (
	"context"
	"errors"
	"fmt"
)

// Login authenticates an email/password pair against the identity provider
// and issues tokens for the matching local account. Login never creates
// local state: a provider identity without a local row is [ErrUnauthorized],
// which points at a half-finished signup rather than a credential problem.
func (e *Engine) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if e.identity == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if password == "" {
		return nil, ErrInvalidCredentials
	}

	subjectID, err := e.identity.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrProviderUnavailable, nil)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	user, err := e.users.GetUserByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, subjectID, email, ErrUnauthorized, func() map[string]string {
				return map[string]string{
					"reason": "no_local_user",
				}
			})
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	if !user.IsActive {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, user.Email, ErrUserDisabled, nil)
		return nil, ErrUserDisabled
	}

	e.touchLastLogin(ctx, user)

	tokens, err := e.issueTokens(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, user.Email, nil, nil)

	return e.authResult(user, tokens), nil
}

// LoginWithOTP is the passwordless variant: a previously requested login
// code stands in for the password. The local row must already exist.
func (e *Engine) LoginWithOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	if e.otpStore == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)

	if err := e.consumeOTP(ctx, PurposeLogin, email, code); err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", email, err, func() map[string]string {
			return map[string]string{
				"method": "otp",
			}
		})
		return nil, err
	}

	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrUnauthorized, func() map[string]string {
				return map[string]string{
					"method": "otp",
					"reason": "no_local_user",
				}
			})
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
	if !user.IsActive {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, user.Email, ErrUserDisabled, nil)
		return nil, ErrUserDisabled
	}

	if !user.EmailVerified {
		// A consumed code proves inbox ownership in passing.
		user.EmailVerified = true
	}
	e.touchLastLogin(ctx, user)

	tokens, err := e.issueTokens(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, user.Email, nil, func() map[string]string {
		return map[string]string{
			"method": "otp",
		}
	})

	return e.authResult(user, tokens), nil
}
