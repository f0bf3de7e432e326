package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VerifyGuestOTP completes captive-portal guest access. The code must have
// been requested for the same venue (the venue id scopes the OTP key via
// [WithVenueID]). A first-time guest gets a local account with a generated
// id: guests have no provider identity and no password. Exactly one
// guest_access_granted compliance event is emitted per successful
// verification, carrying the device MAC and venue from the context.
func (e *Engine) VerifyGuestOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	if e.otpStore == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Guest.Enabled {
		e.metricInc(MetricGuestAccessDenied)
		e.emitAudit(ctx, auditEventGuestAccessDenied, false, "", "", ErrGuestAccessDisabled, nil)
		return nil, ErrGuestAccessDisabled
	}

	email = normalizeEmail(email)

	if err := e.consumeOTP(ctx, PurposeGuestWiFi, email, code); err != nil {
		e.metricInc(MetricGuestAccessDenied)
		e.emitAudit(ctx, auditEventGuestAccessDenied, false, "", email, err, nil)
		return nil, err
	}

	user, err := e.findOrCreateGuest(ctx, email)
	if err != nil {
		e.metricInc(MetricGuestAccessDenied)
		e.emitAudit(ctx, auditEventGuestAccessDenied, false, "", email, err, nil)
		return nil, err
	}

	e.touchLastLogin(ctx, user)

	tokens, err := e.issueTokens(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricGuestAccessGranted)
	e.emitAudit(ctx, auditEventGuestAccessGranted, true, user.ID, user.Email, nil, nil)

	return e.authResult(user, tokens), nil
}

// findOrCreateGuest looks the guest up by email, creating a fresh account on
// first visit. Guest ids are generated locally since no identity provider is
// involved; the default category and onboarding step come from GuestConfig.
func (e *Engine) findOrCreateGuest(ctx context.Context, email string) (*User, error) {
	user, err := e.users.GetUserByEmail(ctx, email)
	if err == nil {
		if !user.IsActive {
			return nil, ErrUserDisabled
		}
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}

	now := time.Now()
	user = &User{
		ID:             uuid.NewString(),
		Email:          email,
		Username:       generateTempUsername(email, now.Unix()),
		EmailVerified:  true,
		OnboardingStep: e.config.Guest.OnboardingStep,
		Category:       e.config.Guest.DefaultCategory,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, ErrDuplicate) {
			return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
		}
		// Either a concurrent verification for the same inbox won, or the
		// temp username collided. Adopt the winner if there is one, retry
		// the name otherwise.
		existing, getErr := e.users.GetUserByEmail(ctx, email)
		if getErr == nil {
			return existing, nil
		}
		if !errors.Is(getErr, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, getErr)
		}
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
