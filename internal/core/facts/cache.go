// Package facts caches the structural facts extracted from libraries so each
// library is analyzed at most once per cache directory.
package facts

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/agenthands/spliced/internal/core/extraction"
	"github.com/agenthands/spliced/internal/metrics"
)

var errExtractionFailed = errors.New("fact extraction failed")

// Cache dedupes fact generation. Concurrent requests for one key share a
// single extraction, and a key whose extraction failed is not retried for the
// lifetime of the Cache.
type Cache struct {
	store     Store
	extractor extraction.Extractor
	log       *slog.Logger

	flight singleflight.Group
	mu     sync.Mutex
	failed map[string]struct{}
}

type Option func(*Cache)

func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

func NewCache(store Store, extractor extraction.Extractor, opts ...Option) *Cache {
	c := &Cache{
		store:     store,
		extractor: extractor,
		log:       slog.Default(),
		failed:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrGenerate returns the fact entry for lib, running the extractor only
// when no entry exists. ok is false when facts cannot be produced; callers
// leave the library out of their model.
func (c *Cache) GetOrGenerate(ctx context.Context, lib, prefix string) (Entry, bool) {
	key := c.store.Key(lib, prefix)

	if entry, ok, err := c.store.Lookup(key); err == nil && ok {
		metrics.FactCacheLookups.WithLabelValues("hit").Inc()
		return entry, true
	}
	if c.hasFailed(key) {
		return Entry{}, false
	}

	v, err, shared := c.flight.Do(key, func() (interface{}, error) {
		if entry, ok, err := c.store.Lookup(key); err == nil && ok {
			return entry, nil
		}

		c.log.Info("generating facts", "lib", lib)
		res := c.extractor.Extract(ctx, lib)
		if !res.OK() {
			c.markFailed(key)
			c.log.Warn("cannot generate facts, library will not be included", "lib", lib, "return_code", res.ReturnCode, "message", res.Message)
			return nil, errExtractionFailed
		}

		entry, _, err := c.store.PutIfAbsent(key, res.Data)
		if err != nil {
			c.markFailed(key)
			c.log.Warn("cannot store facts, library will not be included", "lib", lib, "error", err)
			return nil, err
		}
		metrics.FactCacheLookups.WithLabelValues("generated").Inc()
		return entry, nil
	})
	if err != nil {
		metrics.FactCacheLookups.WithLabelValues("failed").Inc()
		return Entry{}, false
	}
	if shared {
		metrics.FactCacheLookups.WithLabelValues("shared").Inc()
	}
	return v.(Entry), true
}

func (c *Cache) hasFailed(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.failed[key]
	return ok
}

func (c *Cache) markFailed(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[key] = struct{}{}
}
