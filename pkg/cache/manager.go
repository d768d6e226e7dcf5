package cache

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Manager memoizes JSON-serializable API responses in a durable Store,
// with per-entry TTL expiration. It never propagates storage failures to
// callers: a failed read or write degrades to cache-miss behavior.
type Manager struct {
	store  Store
	l1     *ttlcache.Cache[string, Entry]
	prefix string
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithPrefix overrides the key namespace prefix.
func WithPrefix(prefix string) Option {
	return func(m *Manager) { m.prefix = prefix }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithL1 enables an in-process front cache holding up to capacity
// entries ahead of the durable store. L1 holds the full envelope, so a
// hit is still validated against the entry's own expiry before being
// served. The durable store remains the source of truth for
// ClearExpired, ClearAll and SizeKB.
func WithL1(capacity uint64) Option {
	return func(m *Manager) {
		m.l1 = ttlcache.New[string, Entry](
			ttlcache.WithCapacity[string, Entry](capacity),
		)
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a cache manager over the given store.
func NewManager(store Store, opts ...Option) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}

	m := &Manager{
		store:  store,
		prefix: Prefix,
		logger: log.With().Str("component", "cache").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached payload for key, or (nil, false) when the key
// is absent, malformed, or expired. Expired and malformed entries are
// purged as a side effect.
func (m *Manager) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	full := m.prefix + key

	if m.l1 != nil {
		if item := m.l1.Get(full); item != nil {
			entry := item.Value()
			if !entry.IsExpired(m.now()) {
				CacheHits.WithLabelValues("l1").Inc()
				return entry.Data, true
			}
			m.delete(ctx, full)
			CacheEvictions.Inc()
			CacheMisses.Inc()
			return nil, false
		}
	}

	raw, err := m.store.Get(ctx, full)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			CacheErrors.WithLabelValues("get").Inc()
			m.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		CacheMisses.Inc()
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil || !entry.usable() {
		// Cannot be proven valid, drop it.
		m.delete(ctx, full)
		CacheMisses.Inc()
		return nil, false
	}

	if entry.IsExpired(m.now()) {
		m.delete(ctx, full)
		CacheEvictions.Inc()
		CacheMisses.Inc()
		return nil, false
	}

	CacheHits.WithLabelValues("store").Inc()
	if m.l1 != nil {
		// Residency is capped at the entry's remaining lifetime, never
		// its full TTL.
		m.l1.Set(full, entry, m.remaining(entry))
	}
	return entry.Data, true
}

// remaining returns how much of the entry's TTL is left.
func (m *Manager) remaining(entry Entry) time.Duration {
	return time.Duration(entry.StoredAt+entry.ExpiresIn-m.now().UnixMilli()) * time.Millisecond
}

// Set stores data under key with the given TTL. On a quota-exceeded
// write it evicts all expired entries across the namespace and drops
// the write; the drop (rather than a retry) is a deliberate trade-off
// to keep writes single-shot under sustained quota pressure.
func (m *Manager) Set(ctx context.Context, key string, data any, ttl time.Duration) {
	payload, err := json.Marshal(data)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache payload not serializable")
		return
	}

	entry := newEntry(payload, ttl, m.now())
	raw, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return
	}

	full := m.prefix + key
	if err := m.store.Set(ctx, full, raw); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			CacheDroppedWrites.Inc()
			m.logger.Warn().Str("key", key).Msg("Storage quota exceeded, evicting expired entries")
			m.ClearExpired(ctx)
			return
		}
		CacheErrors.WithLabelValues("set").Inc()
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		return
	}

	if m.l1 != nil {
		m.l1.Set(full, entry, ttl)
	}

	m.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached response")
}

// Remove unconditionally deletes the entry for key.
func (m *Manager) Remove(ctx context.Context, key string) {
	m.delete(ctx, m.prefix+key)
}

// ClearExpired scans the namespace and deletes every entry whose TTL
// has elapsed. Malformed entries are deleted unconditionally. Returns
// the number of entries removed; calling it twice in a row is a no-op
// the second time.
func (m *Manager) ClearExpired(ctx context.Context) int {
	keys, err := m.store.Keys(ctx, m.prefix)
	if err != nil {
		CacheErrors.WithLabelValues("scan").Inc()
		m.logger.Warn().Err(err).Msg("Cache scan failed")
		return 0
	}

	now := m.now()
	removed := 0
	for _, full := range keys {
		raw, err := m.store.Get(ctx, full)
		if err != nil {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil || !entry.usable() || entry.IsExpired(now) {
			m.delete(ctx, full)
			removed++
		}
	}

	if removed > 0 {
		CacheEvictions.Add(float64(removed))
		m.logger.Debug().Int("removed", removed).Msg("Expired cache entries cleared")
	}
	return removed
}

// ClearAll deletes every namespaced entry regardless of validity.
// Destructive: every feature's cached data goes at once, so it should
// only run on an explicit user-confirmed reset.
func (m *Manager) ClearAll(ctx context.Context) int {
	keys, err := m.store.Keys(ctx, m.prefix)
	if err != nil {
		CacheErrors.WithLabelValues("scan").Inc()
		return 0
	}

	for _, full := range keys {
		m.delete(ctx, full)
	}
	if m.l1 != nil {
		m.l1.DeleteAll()
	}

	m.logger.Info().Int("removed", len(keys)).Msg("Cache cleared")
	return len(keys)
}

// SizeKB sums the serialized byte length of all namespaced entries and
// reports it in kilobytes, rounded to the nearest integer. Observability
// only; no size-based eviction exists.
func (m *Manager) SizeKB(ctx context.Context) int {
	keys, err := m.store.Keys(ctx, m.prefix)
	if err != nil {
		CacheErrors.WithLabelValues("scan").Inc()
		return 0
	}

	total := 0
	for _, full := range keys {
		raw, err := m.store.Get(ctx, full)
		if err != nil {
			continue
		}
		total += len(raw)
	}

	kb := int(math.Round(float64(total) / 1024))
	CacheSizeKB.Set(float64(kb))
	return kb
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	if m.l1 != nil {
		m.l1.DeleteAll()
	}
	return m.store.Close()
}

func (m *Manager) delete(ctx context.Context, full string) {
	if m.l1 != nil {
		m.l1.Delete(full)
	}
	if err := m.store.Delete(ctx, full); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		m.logger.Warn().Err(err).Str("key", full).Msg("Cache delete failed")
	}
}
