// Package aggregate fans a query out to every configured source adapter,
// merges the per-source results through the TTL cache, deduplicates and
// priority-ranks them. Individual source failures and timeouts only reduce
// the result set; aggregation itself never fails.
package aggregate

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docwise/medkb/internal/cache"
	"github.com/docwise/medkb/internal/domain"
	"github.com/docwise/medkb/internal/sources"
)

const (
	// MaxQueryLen caps the query before it reaches any upstream API.
	MaxQueryLen = 200
	// DefaultMaxTotal is the overall cap on merged output.
	DefaultMaxTotal = 15
	// DefaultMaxPerSource bounds what each adapter contributes.
	DefaultMaxPerSource = 5
	// DefaultTimeout is the per-source fetch deadline.
	DefaultTimeout = 8 * time.Second
)

// Options tunes one aggregation call. Zero values use the defaults.
type Options struct {
	MaxPerSource int
	Timeout      time.Duration
	MaxTotal     int
}

// Aggregator owns the adapter set and the cache. The cache instance is
// injected at construction so tests can supply a fresh one; it is created
// once per process and cleared only by TTL and eviction.
type Aggregator struct {
	adapters []sources.Adapter
	cache    cache.Store
	debug    bool
}

func New(adapters []sources.Adapter, store cache.Store) *Aggregator {
	return &Aggregator{adapters: adapters, cache: store}
}

// NewDebug enables logging of per-source timeouts in addition to errors.
func NewDebug(adapters []sources.Adapter, store cache.Store) *Aggregator {
	return &Aggregator{adapters: adapters, cache: store, debug: true}
}

type sourceResult struct {
	items []domain.KnowledgeItem
	err   error
}

// Aggregate runs the fan-out for a query and returns the ranked, truncated
// merge. An empty query (after trimming and length-capping) yields an empty
// slice, not an error.
func (a *Aggregator) Aggregate(ctx context.Context, query string, opts Options) []domain.KnowledgeItem {
	query = strings.TrimSpace(query)
	// Cap by runes, not bytes, so a multi-byte character is never split.
	if runes := []rune(query); len(runes) > MaxQueryLen {
		query = string(runes[:MaxQueryLen])
	}
	if query == "" {
		return []domain.KnowledgeItem{}
	}

	maxPerSource := opts.MaxPerSource
	if maxPerSource <= 0 {
		maxPerSource = DefaultMaxPerSource
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxTotal := opts.MaxTotal
	if maxTotal <= 0 {
		maxTotal = DefaultMaxTotal
	}

	// One slot per adapter keeps merge order independent of completion order.
	results := make([]sourceResult, len(a.adapters))

	var wg sync.WaitGroup
	for i, adapter := range a.adapters {
		key := cache.Key(adapter.Name(), query)
		if cached, ok := a.cache.Get(ctx, key); ok {
			results[i] = sourceResult{items: capItems(cached, maxPerSource)}
			continue
		}

		wg.Add(1)
		go func(i int, adapter sources.Adapter, key string) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			items, err := adapter.Fetch(fetchCtx, sources.Params{Query: query, Max: maxPerSource})
			if err != nil {
				results[i] = sourceResult{err: err}
				return
			}

			a.cache.Set(ctx, key, items)
			results[i] = sourceResult{items: capItems(items, maxPerSource)}
		}(i, adapter, key)
	}
	wg.Wait()

	merged := make([]domain.KnowledgeItem, 0, maxTotal)
	seen := make(map[string]struct{})
	for i, res := range results {
		if res.err != nil {
			a.logSourceFailure(a.adapters[i].Name(), res.err)
			continue
		}
		for _, item := range res.items {
			key := item.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, item)
		}
	}

	rank(merged)

	if len(merged) > maxTotal {
		merged = merged[:maxTotal]
	}
	return merged
}

// rank sorts by priority descending, then parsed date descending. Undated
// items sort after dated ones of the same priority; among themselves they
// keep merge order (stable sort).
func rank(items []domain.KnowledgeItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		di, iOK := items[i].ParsedDate()
		dj, jOK := items[j].ParsedDate()
		switch {
		case iOK && jOK:
			return di.After(dj)
		case iOK:
			return true
		case jOK:
			return false
		default:
			return false
		}
	})
}

func capItems(items []domain.KnowledgeItem, max int) []domain.KnowledgeItem {
	if len(items) > max {
		return items[:max]
	}
	return items
}

// logSourceFailure surfaces unexpected source errors while keeping expected
// timeout noise out of the logs.
func (a *Aggregator) logSourceFailure(source string, err error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if a.debug {
			log.Printf("aggregate: source %s timed out", source)
		}
		return
	}
	log.Printf("aggregate: source %s failed: %v", source, err)
}
