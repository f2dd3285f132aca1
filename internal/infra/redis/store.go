package redis

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"

	"khaos-quiz-service/internal/domain"
)

const maxUpdateAttempts = 3

// Store is a Redis implementation of app.Store. Values are plain strings; Update
// uses WATCH/MULTI so concurrent writers of the same key never interleave.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrKeyNotFound
	}
	return value, err
}

// Put stores value; a zero ttl clears any existing expiry.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *Store) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, time.Duration, error)) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		next, ttl, err := fn(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		glog.V(2).Infof("optimistic update of %s lost a race (attempt %d)", key, attempt)
	}
	return domain.ErrConflict
}

// Ping is used by the health check.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
