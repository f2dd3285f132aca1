package memory

import (
	"context"
	"sync"
	"time"

	"khaos-quiz-service/internal/domain"
)

// Store is an in-memory implementation of app.Store with per-key expiry.
type Store struct {
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

func NewStore() *Store {
	return &Store{
		clock:   time.Now,
		entries: make(map[string]entry),
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(key)
}

func (s *Store) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(key, value, ttl)
	return nil
}

// Update holds the lock across fn, so concurrent updates of any key are serialized.
func (s *Store) Update(_ context.Context, key string, fn func(current []byte) ([]byte, time.Duration, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.lookup(key)
	if err != nil {
		return err
	}
	next, ttl, err := fn(current)
	if err != nil {
		return err
	}
	s.write(key, next, ttl)
	return nil
}

func (s *Store) lookup(key string) ([]byte, error) {
	e, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	if e.expired(s.clock()) {
		delete(s.entries, key)
		return nil, domain.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *Store) write(key string, value []byte, ttl time.Duration) {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.clock().Add(ttl)
	}
	s.entries[key] = e
}
