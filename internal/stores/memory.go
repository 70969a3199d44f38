package stores

import (
	"context"
	"sync"
	"time"
)

// MemoryTokenStore is the default process-local store. It is unscoped to any
// request and non-persistent: a restart forgets every outstanding token. The
// map grows between redemptions, since sweeping only happens after one
// succeeds.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]ResetToken
	now    func() time.Time
}

// NewMemoryTokenStore creates an empty store. A nil now defaults to
// [time.Now]; tests inject their own clock.
func NewMemoryTokenStore(now func() time.Time) *MemoryTokenStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryTokenStore{
		tokens: make(map[string]ResetToken),
		now:    now,
	}
}

func (s *MemoryTokenStore) Save(_ context.Context, record ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[record.Token] = record
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, token string) (ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[token]
	if !ok {
		return ResetToken{}, ErrTokenNotFound
	}
	return record, nil
}

func (s *MemoryTokenStore) Consume(_ context.Context, token string) (ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[token]
	if !ok {
		return ResetToken{}, ErrTokenNotFound
	}
	if record.Used {
		return ResetToken{}, ErrTokenUsed
	}
	if s.now().After(record.ExpiresAt) {
		return ResetToken{}, ErrTokenExpired
	}

	record.Used = true
	s.tokens[token] = record
	return record, nil
}

func (s *MemoryTokenStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, record := range s.tokens {
		if record.Used || now.After(record.ExpiresAt) {
			delete(s.tokens, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of records currently held, swept or not.
func (s *MemoryTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
