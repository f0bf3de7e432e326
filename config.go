package authcore

import (
	"errors"
	"time"
)

// Config groups all engine settings. Instances are cloned at Build time and
// treated as immutable afterwards.
type Config struct {
	JWT       JWTConfig
	OTP       OTPConfig
	RateLimit RateLimitConfig
	Username  UsernameConfig
	Guest     GuestConfig
	Security  SecurityConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// JWTConfig controls token issuing. AccessTTL and RefreshTTL default to the
// platform's 7-day/30-day windows. Both token classes are signed with the same
// material by default; supply distinct keys through a custom jwt.Manager if
// that ever changes.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
}

// OTPConfig controls code generation and lifetime.
type OTPConfig struct {
	TTL            time.Duration
	Digits         int
	ResendCooldown time.Duration
}

// RateLimitConfig controls the fixed-window OTP request throttle. The limit is
// a courtesy throttle, not a security boundary: concurrent requests may both
// pass the check before either increments.
type RateLimitConfig struct {
	MaxRequests      int
	Window           time.Duration
	EnableIPThrottle bool
	IPMaxRequests    int
}

// UsernameConfig controls the allocator.
type UsernameConfig struct {
	MinLength            int
	MaxLength            int
	CacheTTL             time.Duration
	HistoryTTL           time.Duration
	SuggestionCount      int
	MaxSuggestionRetries int
}

// GuestConfig controls captive-portal guest verification.
type GuestConfig struct {
	Enabled         bool
	DefaultCategory Category
	OnboardingStep  int
}

// SecurityConfig holds hardening switches. EnforceRefreshRotation keeps a
// Redis revocation entry per refresh token id so a rotated token cannot be
// replayed; off by default.
type SecurityConfig struct {
	EnforceRefreshRotation bool
}

// AuditConfig controls the async audit/compliance dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration: 7d/30d token TTLs, 6
// digit codes with a 10 minute TTL and 60s resend cooldown, 5 requests per
// 10 minute window.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     7 * 24 * time.Hour,
			RefreshTTL:    30 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		OTP: OTPConfig{
			TTL:            10 * time.Minute,
			Digits:         6,
			ResendCooldown: 60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxRequests:      5,
			Window:           10 * time.Minute,
			EnableIPThrottle: false,
			IPMaxRequests:    20,
		},
		Username: UsernameConfig{
			MinLength:            3,
			MaxLength:            30,
			CacheTTL:             time.Hour,
			HistoryTTL:           180 * 24 * time.Hour,
			SuggestionCount:      3,
			MaxSuggestionRetries: 20,
		},
		Guest: GuestConfig{
			Enabled:         true,
			DefaultCategory: CategoryCreator,
			OnboardingStep:  1,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for internally inconsistent or unusable
// values.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT.AccessTTL must be positive")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT.RefreshTTL must be positive")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT.RefreshTTL must not be shorter than AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires JWT.PrivateKey")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires JWT.PrivateKey and JWT.PublicKey")
		}
	default:
		return errors.New("unsupported JWT.SigningMethod")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP.TTL must be positive")
	}
	if c.OTP.Digits < 6 || c.OTP.Digits > 10 {
		return errors.New("OTP.Digits must be between 6 and 10")
	}
	if c.OTP.ResendCooldown < 0 || c.OTP.ResendCooldown >= c.OTP.TTL {
		return errors.New("OTP.ResendCooldown must be shorter than OTP.TTL")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return errors.New("RateLimit.MaxRequests must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit.Window must be positive")
	}
	if c.RateLimit.EnableIPThrottle && c.RateLimit.IPMaxRequests <= 0 {
		return errors.New("RateLimit.IPMaxRequests must be positive when IP throttling is enabled")
	}
	if c.Username.MinLength < 2 {
		return errors.New("Username.MinLength must be at least 2")
	}
	if c.Username.MaxLength < c.Username.MinLength || c.Username.MaxLength > 30 {
		return errors.New("Username.MaxLength must be between MinLength and 30")
	}
	if c.Username.CacheTTL < 0 {
		return errors.New("Username.CacheTTL must not be negative")
	}
	if c.Username.HistoryTTL <= 0 {
		return errors.New("Username.HistoryTTL must be positive")
	}
	if c.Username.SuggestionCount <= 0 {
		return errors.New("Username.SuggestionCount must be positive")
	}
	if c.Username.MaxSuggestionRetries <= 0 {
		return errors.New("Username.MaxSuggestionRetries must be positive")
	}
	if c.Guest.Enabled && c.Guest.OnboardingStep < 0 {
		return errors.New("Guest.OnboardingStep must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
