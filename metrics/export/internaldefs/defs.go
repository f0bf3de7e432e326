package internaldefs

import (
	authcore "github.com/pagelinkhq/authcore"
)

// CounterDef binds a core counter to its exported name.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef binds a core histogram to its exported name.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authcore.MetricOTPRequested, Name: "authcore_otp_requested_total", Help: "One-time codes generated and dispatched."},
	{ID: authcore.MetricOTPRequestCooldown, Name: "authcore_otp_request_cooldown_total", Help: "OTP requests answered with a resend cooldown."},
	{ID: authcore.MetricOTPRequestRateLimited, Name: "authcore_otp_request_rate_limited_total", Help: "Rate-limited OTP requests."},
	{ID: authcore.MetricOTPVerifySuccess, Name: "authcore_otp_verify_success_total", Help: "Successful OTP verifications."},
	{ID: authcore.MetricOTPVerifyFailure, Name: "authcore_otp_verify_failure_total", Help: "Failed OTP verifications."},
	{ID: authcore.MetricSignupSuccess, Name: "authcore_signup_success_total", Help: "Completed signups."},
	{ID: authcore.MetricSignupConflict, Name: "authcore_signup_conflict_total", Help: "Signups rejected because the email exists with different credentials."},
	{ID: authcore.MetricSignupFailure, Name: "authcore_signup_failure_total", Help: "Failed signup attempts."},
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful logins."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricGuestAccessGranted, Name: "authcore_guest_access_granted_total", Help: "Guest WiFi verifications granted."},
	{ID: authcore.MetricGuestAccessDenied, Name: "authcore_guest_access_denied_total", Help: "Guest WiFi verifications denied."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful token refreshes."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: authcore.MetricRefreshReuseDetected, Name: "authcore_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: authcore.MetricUsernameClaimed, Name: "authcore_username_claimed_total", Help: "Username claims committed."},
	{ID: authcore.MetricUsernameConflict, Name: "authcore_username_conflict_total", Help: "Username claims lost to a concurrent holder."},
	{ID: authcore.MetricUsernameCacheHit, Name: "authcore_username_cache_hit_total", Help: "Availability checks answered from cache."},
	{ID: authcore.MetricUsernameCacheMiss, Name: "authcore_username_cache_miss_total", Help: "Availability checks that consulted the store."},
	{ID: authcore.MetricRateLimitHit, Name: "authcore_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: authcore.MetricMailFailure, Name: "authcore_mail_failure_total", Help: "OTP emails that failed to send."},
}

var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricVerifyLatency, Name: "authcore_verify_latency_seconds", Help: "OTP verification latency histogram."},
}

var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form both
// exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
