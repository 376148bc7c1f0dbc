package captcha

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBackend(client), mr
}

func TestRedisBackendSingleUse(t *testing.T) {
	ctx := context.Background()
	backend, _ := newRedisBackend(t)
	s := NewStore(fixedStrategy{answer: "9"}, backend)

	id, _, err := s.Generate(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := s.Validate(ctx, id, "9"); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := s.Validate(ctx, id, "9"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("second validate: %v", err)
	}
}

func TestRedisBackendKeyTTL(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t)
	s := NewStore(fixedStrategy{answer: "4"}, backend)

	id, _, err := s.Generate(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ttl := mr.TTL("captcha:" + id); ttl <= 0 || ttl > DefaultTTL {
		t.Fatalf("unexpected ttl %v", ttl)
	}
	mr.FastForward(DefaultTTL + time.Second)
	if err := s.Validate(ctx, id, "4"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestRedisBackendWrongAnswerConsumes(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t)
	s := NewStore(fixedStrategy{answer: "4"}, backend)

	id, _, _ := s.Generate(ctx)
	if err := s.Validate(ctx, id, "5"); !errors.Is(err, ErrIncorrectAnswer) {
		t.Fatalf("got %v", err)
	}
	if mr.Exists("captcha:" + id) {
		t.Fatal("key should be gone after a failed attempt")
	}
}

func TestRedisBackendUsesStoreClock(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t)
	past := time.Date(2020, 6, 1, 8, 0, 0, 0, time.UTC)
	s := NewStore(fixedStrategy{answer: "7"}, backend,
		WithTTL(3*time.Minute),
		WithClock(func() time.Time { return past }),
	)

	id, _, err := s.Generate(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ttl := mr.TTL("captcha:" + id); ttl != 3*time.Minute {
		t.Fatalf("key ttl = %v, want 3m", ttl)
	}
	if err := s.Validate(ctx, id, "7"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestRedisBackendSaveExpired(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t)

	c := Challenge{ID: "gone", Answer: "1", ExpiresAt: time.Now().Add(-time.Second)}
	if err := backend.Save(ctx, c); !errors.Is(err, ErrAlreadyExpired) {
		t.Fatalf("got %v", err)
	}
	if mr.Exists("captcha:gone") {
		t.Fatal("expired challenge must not be stored")
	}

	c = Challenge{ID: "fresh", Answer: "1", ExpiresAt: time.Now().Add(time.Minute)}
	if err := backend.Save(ctx, c); err != nil {
		t.Fatalf("save without ttl: %v", err)
	}
	if ttl := mr.TTL("captcha:fresh"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("fallback ttl = %v", ttl)
	}
}
