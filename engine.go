package authcore

import (
	"regexp"
	"strings"

	internalaudit "github.com/pagelinkhq/authcore/internal/audit"
	"github.com/pagelinkhq/authcore/jwt"
)

// Engine is the authentication core. Construct it through [New] and
// [Builder.Build]; the zero value is not usable.
type Engine struct {
	config       Config
	otpStore     *otpStore
	pendingStore *pendingSignupStore
	otpLimiter   *otpRequestLimiter
	nameCache    *usernameCache
	refreshGuard *refreshRevocationStore
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	jwtManager   *jwt.Manager
	users        UserStore
	identity     IdentityProvider
	mailer       MailSender
	reserved     map[string]struct{}
	suffixes     []string
}

// Close drains the audit dispatcher. Call it on shutdown so buffered
// compliance events are flushed.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// normalizeEmail lowercases and trims; all cache keys and store lookups use
// the normalized form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return email != "" && len(email) <= 254 && emailPattern.MatchString(email)
}

func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
