// Package cache provides the bounded TTL cache used by the source
// aggregator. Entries are keyed by source name plus normalized query, so the
// cache favors recently asked topics.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/docwise/medkb/internal/domain"
)

const (
	// DefaultTTL is how long a cached source response stays fresh.
	DefaultTTL = 5 * time.Minute
	// DefaultMaxEntries bounds the cache; the oldest writes are evicted first.
	DefaultMaxEntries = 50
)

// Store is the cache contract shared by the in-process and Redis backends.
type Store interface {
	// Get returns the cached items for key, or ok=false on a miss or an
	// expired entry.
	Get(ctx context.Context, key string) ([]domain.KnowledgeItem, bool)
	// Set inserts or overwrites the entry for key.
	Set(ctx context.Context, key string, items []domain.KnowledgeItem)
}

// Key builds the cache key for one source and query. The query is lowercased
// and whitespace-trimmed so trivially different spellings share an entry.
func Key(source, query string) string {
	return source + ":" + strings.ToLower(strings.TrimSpace(query))
}

type entry struct {
	items     []domain.KnowledgeItem
	timestamp time.Time
}

// Memory is a TTL cache bounded to a fixed number of entries. Eviction is by
// recency of write, not access: overwriting a key counts as a fresh insert.
// Expired entries are treated as misses on read and purged lazily.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]entry
	order      []string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemory creates a Memory cache. Non-positive ttl or maxEntries fall back
// to the defaults.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]domain.KnowledgeItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().Sub(e.timestamp) >= m.ttl {
		return nil, false
	}
	return e.items, true
}

func (m *Memory) Set(_ context.Context, key string, items []domain.KnowledgeItem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		m.removeFromOrder(key)
	}
	m.entries[key] = entry{items: items, timestamp: m.now()}
	m.order = append(m.order, key)

	for len(m.entries) > m.maxEntries {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
}

// Len reports the current number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) removeFromOrder(key string) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
