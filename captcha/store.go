package captcha

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a challenge stays answerable.
const DefaultTTL = 10 * time.Minute

// Store issues single-use challenges and checks answers against them.
type Store struct {
	strategy Strategy
	backend  Backend
	ttl      time.Duration
	now      func() time.Time
}

type Option func(*Store)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore wires a strategy to a backend. A nil backend means in-memory storage.
func NewStore(strategy Strategy, backend Backend, opts ...Option) *Store {
	if strategy == nil {
		strategy = ArithmeticStrategy{}
	}
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{strategy: strategy, backend: backend, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind tells clients whether the rendered challenge is text or an image.
func (s *Store) Kind() string {
	return s.strategy.Kind()
}

// Generate creates a new challenge and returns its id together with the
// presentable form. Expired challenges are swept first.
func (s *Store) Generate(ctx context.Context) (string, string, error) {
	now := s.now()
	if err := s.backend.Sweep(ctx, now); err != nil {
		return "", "", err
	}
	answer, rendered, err := s.strategy.New()
	if err != nil {
		return "", "", err
	}
	c := Challenge{
		ID:        uuid.NewString(),
		Answer:    answer,
		ExpiresAt: now.Add(s.ttl),
		TTL:       s.ttl,
		Rendered:  rendered,
	}
	if err := s.backend.Save(ctx, c); err != nil {
		return "", "", err
	}
	return c.ID, rendered, nil
}

// Validate consumes the challenge stored under id whatever the outcome, so
// a second attempt with the same id always fails with ErrInvalidOrExpired.
func (s *Store) Validate(ctx context.Context, id, answer string) error {
	now := s.now()
	if err := s.backend.Sweep(ctx, now); err != nil {
		return err
	}
	if id == "" {
		return ErrInvalidOrExpired
	}
	c, ok, err := s.backend.Take(ctx, id)
	if err != nil {
		return err
	}
	if !ok || c.Expired(now) {
		return ErrInvalidOrExpired
	}
	normalized, err := s.strategy.Normalize(answer)
	if err != nil {
		return ErrInvalidAnswerFormat
	}
	if normalized != c.Answer {
		return ErrIncorrectAnswer
	}
	return nil
}
