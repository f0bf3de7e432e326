package authcore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventOTPRequest            = "otp_request"
	auditEventOTPRequestCooldown    = "otp_request_cooldown"
	auditEventOTPRequestRateLimited = "otp_request_rate_limited"
	auditEventOTPVerifySuccess      = "otp_verify_success"
	auditEventOTPVerifyFailure      = "otp_verify_failure"
	auditEventSignupCompleted       = "signup_completed"
	auditEventSignupConflict        = "signup_conflict"
	auditEventSignupFailure         = "signup_failure"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventGuestAccessGranted    = "guest_access_granted"
	auditEventGuestAccessDenied     = "guest_access_denied"
	auditEventUsernameClaimed       = "username_claimed"
	auditEventUsernameConflict      = "username_claim_conflict"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshInvalid        = "refresh_invalid"
	auditEventRefreshReuseDetected  = "refresh_reuse_detected"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
)

// AuditErrorCode is the stable error label attached to failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidEmail       AuditErrorCode = "invalid_email"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrOTPInvalid         AuditErrorCode = "otp_invalid"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrSignupConflict     AuditErrorCode = "signup_conflict"
	auditErrIdentityExists     AuditErrorCode = "identity_exists"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrUserDisabled       AuditErrorCode = "user_disabled"
	auditErrUsernameInvalid    AuditErrorCode = "username_invalid"
	auditErrUsernameTaken      AuditErrorCode = "username_taken"
	auditErrRefreshInvalid     AuditErrorCode = "invalid_token"
	auditErrRefreshReuse       AuditErrorCode = "refresh_reuse"
	auditErrGuestDisabled      AuditErrorCode = "guest_disabled"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		DeviceMAC: deviceMACFromContext(ctx),
		VenueID:   venueIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	email string,
	metadataBuilder func() map[string]string,
) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", email, ErrOTPRateLimited, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidEmail):
		return auditErrInvalidEmail
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrOTPInvalid):
		return auditErrOTPInvalid
	case errors.Is(err, ErrOTPRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrSignupConflict):
		return auditErrSignupConflict
	case errors.Is(err, ErrIdentityExists):
		return auditErrIdentityExists
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrUserDisabled):
		return auditErrUserDisabled
	case errors.Is(err, ErrUsernameInvalid):
		return auditErrUsernameInvalid
	case errors.Is(err, ErrUsernameTaken):
		return auditErrUsernameTaken
	case errors.Is(err, ErrRefreshReuse):
		return auditErrRefreshReuse
	case errors.Is(err, ErrRefreshInvalid):
		return auditErrRefreshInvalid
	case errors.Is(err, ErrGuestAccessDisabled):
		return auditErrGuestDisabled
	case errors.Is(err, ErrOTPUnavailable),
		errors.Is(err, ErrCacheUnavailable),
		errors.Is(err, ErrMailUnavailable),
		errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, ErrUserStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
