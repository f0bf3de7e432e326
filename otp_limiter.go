package authcore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	otpLimiterEmailPrefix = "rlotp"
	otpLimiterIPPrefix    = "rlip"
)

var errOTPLimiterUnavailable = errors.New("otp limiter redis unavailable")

// otpRequestLimiter is a fixed-window counter per (purpose, email) and
// optionally per (purpose, ip). Check and Increment are split on purpose:
// a request rejected later in the flow (cooldown, bad email) must not burn
// window quota. Two concurrent requests can both pass Check before either
// increments; the window over-admits rather than over-rejects. A charged
// window drains only by expiry, never by anything the client does.
type otpRequestLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
}

func newOTPRequestLimiter(client *redis.Client, cfg RateLimitConfig) *otpRequestLimiter {
	return &otpRequestLimiter{
		redis:  client,
		config: cfg,
	}
}

func (l *otpRequestLimiter) emailKey(purpose OTPPurpose, email string) string {
	return otpLimiterEmailPrefix + ":" + string(purpose) + ":" + email
}

func (l *otpRequestLimiter) ipKey(purpose OTPPurpose, ip string) string {
	return otpLimiterIPPrefix + ":" + string(purpose) + ":" + ip
}

// Check reports whether another request is admissible right now. When the
// window is exhausted it returns a *RateLimitedError carrying the remaining
// window as RetryAfter.
func (l *otpRequestLimiter) Check(ctx context.Context, purpose OTPPurpose, email, ip string) error {
	if err := l.checkKey(ctx, l.emailKey(purpose, email), l.config.MaxRequests); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.checkKey(ctx, l.ipKey(purpose, ip), l.config.IPMaxRequests)
	}
	return nil
}

func (l *otpRequestLimiter) checkKey(ctx context.Context, key string, max int) error {
	val, err := l.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", errOTPLimiterUnavailable, err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		// Corrupt counter; treat as fresh window.
		return nil
	}
	if count < max {
		return nil
	}

	retryAfter, err := l.redis.TTL(ctx, key).Result()
	if err != nil || retryAfter < 0 {
		retryAfter = l.config.Window
	}
	return &RateLimitedError{RetryAfter: retryAfter}
}

// Increment charges one request against the window. The window starts on the
// first increment; the expiry is set only when INCR returns 1 so a steady
// stream of requests cannot keep pushing the window forward.
func (l *otpRequestLimiter) Increment(ctx context.Context, purpose OTPPurpose, email, ip string) error {
	if err := l.incrementKey(ctx, l.emailKey(purpose, email)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.incrementKey(ctx, l.ipKey(purpose, ip))
	}
	return nil
}

func (l *otpRequestLimiter) incrementKey(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errOTPLimiterUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", errOTPLimiterUnavailable, err)
		}
	}
	return nil
}
