package authgate

import (
	"errors"
	"time"

	"github.com/portalkit/authgate/internal/limiters"
	"github.com/portalkit/authgate/internal/stores"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. Construction is allocation-only until Build.
//
// With no store or limiter supplied the Engine runs on process-local memory,
// matching the portal's original deployment: counters and outstanding tokens
// are lost on restart and not shared between instances. Supply a Redis client
// via [Builder.WithRedis] to share both across instances.
type Builder struct {
	config  Config
	redis   redis.UniversalClient
	tokens  stores.TokenStore
	limiter limiters.ResetLimiter
	mailer  Mailer
	backend PasswordBackend
	log     zerolog.Logger
	logSet  bool
	built   bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the token store and rate limiter with Redis, sharing state
// across portal instances. Overridden by WithTokenStore / WithRateLimiter for
// the respective component.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTokenStore injects a custom token store.
func (b *Builder) WithTokenStore(store stores.TokenStore) *Builder {
	b.tokens = store
	return b
}

// WithRateLimiter injects a custom rate limiter.
func (b *Builder) WithRateLimiter(limiter limiters.ResetLimiter) *Builder {
	b.limiter = limiter
	return b
}

// WithMailer sets the delivery collaborator. Without one, resets complete and
// delivery is skipped.
func (b *Builder) WithMailer(mailer Mailer) *Builder {
	b.mailer = mailer
	return b
}

// WithBackend sets the password backend. Required.
func (b *Builder) WithBackend(backend PasswordBackend) *Builder {
	b.backend = backend
	return b
}

// WithLogger sets the engine logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.log = log
	b.logSet = true
	return b
}

// Build validates the configuration and assembles the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.backend == nil {
		return nil, errors.New("password backend required")
	}

	log := b.log
	if !b.logSet {
		log = zerolog.Nop()
	}

	tokens := b.tokens
	if tokens == nil {
		if b.redis != nil {
			tokens = stores.NewRedisTokenStore(b.redis, cfg.Reset.RedisPrefix, nil)
		} else {
			tokens = stores.NewMemoryTokenStore(nil)
		}
	}

	limiter := b.limiter
	if limiter == nil {
		limiterCfg := limiters.Config{
			Window:      cfg.Reset.RateLimitWindow,
			MaxAttempts: cfg.Reset.RateLimitMax,
		}
		if b.redis != nil {
			limiter = limiters.NewRedisResetLimiter(b.redis, cfg.Reset.RedisPrefix, limiterCfg)
		} else {
			limiter = limiters.NewMemoryResetLimiter(limiterCfg, nil)
		}
	}

	var metrics *Metrics
	if cfg.Metrics.Enabled {
		metrics = newMetrics()
	}

	engine := &Engine{
		config:  cfg,
		tokens:  tokens,
		limiter: limiter,
		backend: b.backend,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
	engine.mail = newMailDispatcher(cfg.Mail, b.mailer, cfg.PublicAppURL, log)

	b.built = true
	return engine, nil
}
