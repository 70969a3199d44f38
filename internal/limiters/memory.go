package limiters

import (
	"context"
	"sync"
	"time"
)

type windowEntry struct {
	count     int
	resetTime time.Time
}

// MemoryResetLimiter keeps per-identifier windows in a process-local map.
// Counters survive only as long as the process; a restart silently forgets
// every window. The read-modify-write in Allow is serialized by one mutex so
// two simultaneous requests for the same email can never under-count.
type MemoryResetLimiter struct {
	mu      sync.Mutex
	entries map[string]windowEntry
	config  Config
	now     func() time.Time
}

func NewMemoryResetLimiter(cfg Config, now func() time.Time) *MemoryResetLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryResetLimiter{
		entries: make(map[string]windowEntry),
		config:  cfg,
		now:     now,
	}
}

func (l *MemoryResetLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]

	if !ok || !now.Before(entry.resetTime) {
		l.entries[key] = windowEntry{count: 1, resetTime: now.Add(l.config.Window)}
		return Decision{Allowed: true, Remaining: l.config.MaxAttempts - 1}, nil
	}

	if entry.count < l.config.MaxAttempts {
		entry.count++
		l.entries[key] = entry
		return Decision{Allowed: true, Remaining: l.config.MaxAttempts - entry.count}, nil
	}

	return Decision{Allowed: false, RetryAfter: entry.resetTime.Sub(now)}, nil
}
