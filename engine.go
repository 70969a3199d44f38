package authgate

import (
	"time"

	"github.com/portalkit/authgate/internal/limiters"
	"github.com/portalkit/authgate/internal/stores"
	"github.com/rs/zerolog"
)

// Engine owns the reset token lifecycle: issuance behind the rate limiter,
// validation, atomic redemption, and opportunistic garbage collection.
//
// Engine instances are configured during initialization through
// [Builder.Build] and treated as immutable afterwards; all methods are safe
// for concurrent use.
type Engine struct {
	config  Config
	tokens  stores.TokenStore
	limiter limiters.ResetLimiter
	mail    *mailDispatcher
	backend PasswordBackend
	metrics *Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// Close drains the mail dispatcher. Call it on shutdown so queued reset
// links are not lost.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.mail != nil {
		e.mail.Close()
	}
}

// MailDropped reports how many reset mails were discarded because the
// dispatch buffer was full.
func (e *Engine) MailDropped() uint64 {
	if e == nil || e.mail == nil {
		return 0
	}
	return e.mail.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the Engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
