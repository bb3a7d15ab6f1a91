package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Expiry policy for the metadata this cache holds.
const (
	// TableListTTL is how long the WFS table list stays fresh.
	TableListTTL = 24 * time.Hour

	// SchemaTTL is how long table schemas and catalogue definitions stay fresh.
	SchemaTTL = 30 * 24 * time.Hour
)

var (
	// ErrCacheMiss indicates the requested key was not found or is expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Backend stores opaque entry payloads. Backends need not enforce expiry
// themselves; the manager checks it against its clock on every read.
type Backend interface {
	// Get returns the stored payload or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the payload. ttl is advisory; backends with native expiry
	// (redis) use it, others ignore it.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes the payload.
	Delete(ctx context.Context, key string) error

	// Name identifies the backend in logs and metrics.
	Name() string
}

// Manager implements the get-or-refresh contract over a backend.
type Manager struct {
	backend Backend
	clock   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock injects the time source, for testing expiry without waiting.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// NewManager creates a cache manager over the given backend.
func NewManager(backend Backend, opts ...Option) *Manager {
	if backend == nil {
		panic("cache backend cannot be nil")
	}
	m := &Manager{
		backend: backend,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get retrieves a cached payload. Returns ErrCacheMiss if the key does not
// exist or the entry has expired; expired entries are deleted on read.
func (m *Manager) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := m.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired(m.clock()) {
		_ = m.backend.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(m.backend.Name()).Inc()
	return entry.Data, nil
}

// Set stores a payload with the given TTL.
func (m *Manager) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", ttl)
	}

	now := m.clock()
	entry := Entry{
		Data:     data,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}

	raw, err := json.Marshal(&entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.backend.Set(ctx, key, raw, ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("cache set: %w", err)
	}

	return nil
}

// Delete removes a cached payload.
func (m *Manager) Delete(ctx context.Context, key string) error {
	if err := m.backend.Delete(ctx, key); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// GetOrRefresh returns the cached payload for key, invoking refresh and
// re-caching its result when the entry is absent or expired. A failure to
// write the refreshed payload back is logged, not surfaced; the caller
// still gets fresh data.
func (m *Manager) GetOrRefresh(ctx context.Context, key string, ttl time.Duration, refresh func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	data, err := m.Get(ctx, key)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Warn().Err(err).Str("key", key).Msg("Cache read error, refreshing")
	}

	CacheRefreshes.Inc()
	data, err = refresh(ctx)
	if err != nil {
		return nil, err
	}

	if err := m.Set(ctx, key, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to write refreshed entry to cache")
	}

	return data, nil
}
