package authcore

import (
	"fmt"
	"testing"
)

func TestAuditErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrInvalidEmail, auditErrInvalidEmail},
		{ErrInvalidCredentials, auditErrInvalidCredentials},
		{ErrOTPInvalid, auditErrOTPInvalid},
		{ErrOTPRateLimited, auditErrRateLimited},
		{&RateLimitedError{}, auditErrRateLimited},
		{ErrSignupConflict, auditErrSignupConflict},
		{ErrUserDisabled, auditErrUserDisabled},
		{ErrUsernameTaken, auditErrUsernameTaken},
		{ErrRefreshReuse, auditErrRefreshReuse},
		{ErrRefreshInvalid, auditErrRefreshInvalid},
		{ErrGuestAccessDisabled, auditErrGuestDisabled},
		{fmt.Errorf("%w: dial tcp", ErrOTPUnavailable), auditErrUnavailable},
		{fmt.Errorf("%w: dial tcp", ErrCacheUnavailable), auditErrUnavailable},
		{fmt.Errorf("%w: 503", ErrProviderUnavailable), auditErrUnavailable},
		{fmt.Errorf("something else entirely"), auditErrInternal},
	}

	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
