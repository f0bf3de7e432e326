package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pagelinkhq/authcore/internal"
)

// RequestOTP generates and emails a one-time code for the given flow. A
// second request inside the resend cooldown returns Sent=false with the
// remaining wait instead of minting a new code, and does not charge the rate
// window. Signup requests also park the password in the pending-signup cache
// under the same TTL as the code.
func (e *Engine) RequestOTP(ctx context.Context, input OTPRequestInput) (*OTPRequest, error) {
	if e.otpStore == nil || e.otpLimiter == nil || e.mailer == nil {
		return nil, ErrEngineNotReady
	}
	if !validPurpose(input.Purpose) {
		return nil, fmt.Errorf("%w: unknown purpose %q", ErrOTPInvalid, input.Purpose)
	}
	if input.Purpose == PurposeGuestWiFi && !e.config.Guest.Enabled {
		e.emitAudit(ctx, auditEventOTPRequest, false, "", "", ErrGuestAccessDisabled, nil)
		return nil, ErrGuestAccessDisabled
	}

	email := normalizeEmail(input.Email)
	if !validEmail(email) {
		e.emitAudit(ctx, auditEventOTPRequest, false, "", email, ErrInvalidEmail, nil)
		return nil, ErrInvalidEmail
	}
	if input.Purpose == PurposeSignup && input.Password == "" {
		return nil, ErrPasswordRequired
	}

	venue := ""
	if input.Purpose == PurposeGuestWiFi {
		venue = venueIDFromContext(ctx)
	}

	ip := clientIPFromContext(ctx)
	if err := e.otpLimiter.Check(ctx, input.Purpose, email, ip); err != nil {
		mapped := mapOTPLimiterError(err)
		if errors.Is(mapped, ErrOTPRateLimited) {
			e.metricInc(MetricOTPRequestRateLimited)
			e.emitAudit(ctx, auditEventOTPRequestRateLimited, false, "", email, mapped, func() map[string]string {
				return map[string]string{
					"purpose": string(input.Purpose),
				}
			})
			e.emitRateLimit(ctx, "otp_request", email, func() map[string]string {
				return map[string]string{
					"purpose": string(input.Purpose),
				}
			})
		}
		return nil, mapped
	}

	// Cooldown peek. The stored record carries no creation time, but the TTL
	// is fixed, so ExpiresAt minus TTL recovers it.
	if e.config.OTP.ResendCooldown > 0 {
		existing, err := e.otpStore.Get(ctx, input.Purpose, email, venue)
		if err == nil {
			createdAt := time.Unix(existing.ExpiresAt, 0).Add(-e.config.OTP.TTL)
			elapsed := time.Since(createdAt)
			if elapsed < e.config.OTP.ResendCooldown {
				remaining := e.config.OTP.ResendCooldown - elapsed
				e.metricInc(MetricOTPRequestCooldown)
				e.emitAudit(ctx, auditEventOTPRequestCooldown, false, "", email, nil, func() map[string]string {
					return map[string]string{
						"purpose": string(input.Purpose),
					}
				})
				return &OTPRequest{
					Sent:            false,
					CooldownSeconds: int(remaining.Seconds()) + 1,
				}, nil
			}
		} else if !errors.Is(err, errOTPNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
		}
	}

	code, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}

	record := &otpRecord{
		CodeHash:  internal.HashBytes(code),
		ExpiresAt: time.Now().Add(e.config.OTP.TTL).Unix(),
	}
	if err := e.otpStore.Save(ctx, input.Purpose, email, venue, record, e.config.OTP.TTL); err != nil {
		e.emitAudit(ctx, auditEventOTPRequest, false, "", email, ErrOTPUnavailable, nil)
		return nil, fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}

	if err := e.otpLimiter.Increment(ctx, input.Purpose, email, ip); err != nil {
		return nil, mapOTPLimiterError(err)
	}

	if input.Purpose == PurposeSignup {
		pending := &pendingSignupRecord{
			Email:    email,
			Password: input.Password,
		}
		if err := e.pendingStore.Save(ctx, email, pending, e.config.OTP.TTL); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
		}
	}

	// Delivery is awaited so the caller learns about failures, but the stored
	// code stays valid either way: a delayed email that does arrive must
	// still work.
	if err := e.mailer.SendOTP(ctx, email, code, input.Purpose); err != nil {
		e.metricInc(MetricMailFailure)
		e.emitAudit(ctx, auditEventOTPRequest, false, "", email, ErrMailUnavailable, func() map[string]string {
			return map[string]string{
				"purpose": string(input.Purpose),
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrMailUnavailable, err)
	}

	e.metricInc(MetricOTPRequested)
	e.emitAudit(ctx, auditEventOTPRequest, true, "", email, nil, func() map[string]string {
		return map[string]string{
			"purpose": string(input.Purpose),
		}
	})

	return &OTPRequest{Sent: true}, nil
}

// VerifyOTP checks and consumes a one-time code. A matching code is deleted
// atomically before success is reported, so each code verifies at most once
// even under concurrent attempts. Wrong, expired, and absent codes all come
// back as [ErrOTPInvalid]; a wrong code does not destroy a live one.
func (e *Engine) VerifyOTP(ctx context.Context, purpose OTPPurpose, email, code string) error {
	if e.otpStore == nil {
		return ErrEngineNotReady
	}

	start := time.Now()
	err := e.consumeOTP(ctx, purpose, email, code)
	e.metrics.Observe(MetricVerifyLatency, time.Since(start))

	if err != nil {
		e.metricInc(MetricOTPVerifyFailure)
		e.emitAudit(ctx, auditEventOTPVerifyFailure, false, "", normalizeEmail(email), err, func() map[string]string {
			return map[string]string{
				"purpose": string(purpose),
			}
		})
		return err
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerifySuccess, true, "", normalizeEmail(email), nil, func() map[string]string {
		return map[string]string{
			"purpose": string(purpose),
		}
	})
	return nil
}

// consumeOTP is the shared verification core used by VerifyOTP and the
// signup/guest flows. It consumes the code but emits no audit events.
func (e *Engine) consumeOTP(ctx context.Context, purpose OTPPurpose, email, code string) error {
	if !validPurpose(purpose) {
		return ErrOTPInvalid
	}

	email = normalizeEmail(email)
	if !validEmail(email) {
		return ErrInvalidEmail
	}
	if len(code) != e.config.OTP.Digits || !isNumericString(code) {
		return ErrOTPInvalid
	}

	venue := ""
	if purpose == PurposeGuestWiFi {
		venue = venueIDFromContext(ctx)
	}

	if err := e.otpStore.Consume(ctx, purpose, email, venue, internal.HashBytes(code)); err != nil {
		return mapOTPStoreError(err)
	}

	return nil
}

func mapOTPLimiterError(err error) error {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl
	}
	return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
}

func mapOTPStoreError(err error) error {
	switch {
	case errors.Is(err, errOTPNotFound), errors.Is(err, errOTPMismatch):
		return ErrOTPInvalid
	case errors.Is(err, errOTPRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
}
