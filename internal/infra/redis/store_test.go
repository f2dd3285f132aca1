package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"khaos-quiz-service/internal/domain"
)

func TestStoreGetPut(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewStore(newClient(mr))

	if _, err := store.Get(ctx, "quiz:q1"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Put(ctx, "practice:p1", []byte(`{"state":"completed"}`), 86400*time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ttl := mr.TTL("practice:p1"); ttl != 86400*time.Second {
		t.Fatalf("expected practice ttl, got %v", ttl)
	}

	mr.FastForward(86401 * time.Second)
	if _, err := store.Get(ctx, "practice:p1"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected expired key, got %v", err)
	}
}

func TestStoreUpdate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewStore(newClient(mr))
	_ = store.Put(ctx, "quiz:q1", []byte("a"), time.Hour)

	if err := store.Update(ctx, "quiz:q1", func(cur []byte) ([]byte, time.Duration, error) {
		return append(cur, 'b'), 0, nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := mr.Get("quiz:q1")
	if got != "ab" {
		t.Fatalf("expected ab, got %q", got)
	}
	if ttl := mr.TTL("quiz:q1"); ttl != 0 {
		t.Fatalf("expected ttl cleared, got %v", ttl)
	}

	err = store.Update(ctx, "quiz:missing", func([]byte) ([]byte, time.Duration, error) {
		return nil, 0, nil
	})
	if !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	abort := domain.Invalid("Quiz has already started")
	err = store.Update(ctx, "quiz:q1", func([]byte) ([]byte, time.Duration, error) {
		return nil, 0, abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("expected fn error, got %v", err)
	}
}

func TestStoreUpdateConflict(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewStore(newClient(mr))
	other := newClient(mr)
	_ = store.Put(ctx, "quiz:q1", []byte("a"), 0)

	var calls int
	err = store.Update(ctx, "quiz:q1", func(cur []byte) ([]byte, time.Duration, error) {
		calls++
		if err := other.Set(ctx, "quiz:q1", "racer", 0).Err(); err != nil {
			t.Fatalf("concurrent write: %v", err)
		}
		return []byte("mine"), 0, nil
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if calls != maxUpdateAttempts {
		t.Fatalf("expected %d attempts, got %d", maxUpdateAttempts, calls)
	}
	if got, _ := mr.Get("quiz:q1"); got != "racer" {
		t.Fatalf("losing write must not be applied, got %q", got)
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
