package captcha

import (
	"context"
	"sync"
	"time"
)

// Challenge is one stored human-verification puzzle.
type Challenge struct {
	ID        string        `json:"-"`
	Answer    string        `json:"answer"`
	ExpiresAt time.Time     `json:"expires_at"`
	TTL       time.Duration `json:"-"` // lifetime on the issuing Store's clock
	Rendered  string        `json:"-"`
}

// Expired reports whether the challenge is no longer valid at now.
func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Backend persists challenges between generation and validation.
type Backend interface {
	Save(ctx context.Context, c Challenge) error
	// Take removes the challenge and returns it. ok is false when nothing was stored under id.
	Take(ctx context.Context, id string) (c Challenge, ok bool, err error)
	// Sweep drops every challenge that expired at or before now.
	Sweep(ctx context.Context, now time.Time) error
}

// MemoryBackend keeps challenges in process memory; a restart clears them.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]Challenge
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[string]Challenge{}}
}

func (m *MemoryBackend) Save(_ context.Context, c Challenge) error {
	m.mu.Lock()
	m.entries[c.ID] = c
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Take(_ context.Context, id string) (Challenge, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
	}
	return c, ok, nil
}

func (m *MemoryBackend) Sweep(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.entries {
		if c.Expired(now) {
			delete(m.entries, id)
		}
	}
	return nil
}

// Len returns the number of stored challenges, expired ones included.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
