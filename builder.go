package authcore

import (
	"errors"
	"strings"

	internalaudit "github.com/pagelinkhq/authcore/internal/audit"
	"github.com/pagelinkhq/authcore/jwt"
	"github.com/redis/go-redis/v9"
)

// defaultReservedUsernames is the baseline denylist. Deployments extend it via
// [Builder.WithReservedUsernames].
var defaultReservedUsernames = []string{
	"admin", "administrator", "api", "app", "auth", "billing", "blog",
	"dashboard", "help", "login", "logout", "mail", "pagelink", "root",
	"settings", "signup", "support", "system", "wifi", "www",
}

// defaultSuggestionSuffixes is tried in order before the random fallback.
var defaultSuggestionSuffixes = []string{"01", "02", "india", "official", "store", "shop", "biz"}

// Builder assembles an [Engine]. All With* methods return the receiver for
// chaining; Build may be called once.
type Builder struct {
	config Config
	redis  *redis.Client

	users    UserStore
	identity IdentityProvider
	mailer   MailSender

	auditSink AuditSink
	reserved  []string
	suffixes  []string

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the cache client. Required: OTP codes, pending signups, and
// rate counters have no other home.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the durable user store.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithIdentityProvider sets the external identity provider.
func (b *Builder) WithIdentityProvider(idp IdentityProvider) *Builder {
	b.identity = idp
	return b
}

// WithMailSender sets the OTP email sender.
func (b *Builder) WithMailSender(sender MailSender) *Builder {
	b.mailer = sender
	return b
}

// WithAuditSink sets the destination for audit/compliance events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithReservedUsernames extends the baseline reserved-name denylist.
func (b *Builder) WithReservedUsernames(names []string) *Builder {
	b.reserved = names
	return b
}

// WithSuggestionSuffixes replaces the ordered suffix list used by
// [Engine.SuggestUsernames].
func (b *Builder) WithSuggestionSuffixes(suffixes []string) *Builder {
	b.suffixes = suffixes
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.identity == nil {
		return nil, errors.New("identity provider required")
	}
	if b.mailer == nil {
		return nil, errors.New("mail sender required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reserved := make(map[string]struct{}, len(defaultReservedUsernames)+len(b.reserved))
	for _, name := range defaultReservedUsernames {
		reserved[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range b.reserved {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			reserved[name] = struct{}{}
		}
	}

	suffixes := b.suffixes
	if len(suffixes) == 0 {
		suffixes = defaultSuggestionSuffixes
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		users:        b.users,
		identity:     b.identity,
		mailer:       b.mailer,
		otpStore:     newOTPStore(b.redis),
		pendingStore: newPendingSignupStore(b.redis),
		otpLimiter:   newOTPRequestLimiter(b.redis, cfg.RateLimit),
		nameCache:    newUsernameCache(b.redis, cfg.Username.CacheTTL),
		refreshGuard: newRefreshRevocationStore(b.redis),
		jwtManager:   jm,
		reserved:     reserved,
		suffixes:     suffixes,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
