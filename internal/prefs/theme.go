package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Key is the single preference key the app persists.
const Key = "theme"

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

var ErrInvalidTheme = errors.New("theme must be light or dark")

func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case Light, Dark:
		return Theme(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
}

func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Store persists the theme. Get returns fallback when nothing is stored yet.
type Store interface {
	Get(ctx context.Context, fallback Theme) (Theme, error)
	Set(ctx context.Context, t Theme) error
}

// Toggle flips the stored theme and returns the new value.
func Toggle(ctx context.Context, s Store, fallback Theme) (Theme, error) {
	cur, err := s.Get(ctx, fallback)
	if err != nil {
		return "", err
	}
	next := cur.Toggle()
	if err := s.Set(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}

type MemoryStore struct {
	mu    sync.Mutex
	theme Theme
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Get(_ context.Context, fallback Theme) (Theme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.theme == "" {
		return fallback, nil
	}
	return m.theme, nil
}

func (m *MemoryStore) Set(_ context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	m.mu.Lock()
	m.theme = t
	m.mu.Unlock()
	return nil
}

// RedisStore keeps the theme under prefix+Key.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, key: prefix + Key}
}

func (r *RedisStore) Get(ctx context.Context, fallback Theme) (Theme, error) {
	v, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	t, err := ParseTheme(v)
	if err != nil {
		return fallback, nil
	}
	return t, nil
}

func (r *RedisStore) Set(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, string(t), 0).Err()
}
