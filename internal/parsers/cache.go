package parsers

import (
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter"
	"github.com/minio/highwayhash"

	"github.com/mvp-joe/autodoc/internal/tracking"
)

// defaultCacheTTL applies when WithCache is given no TTL.
const defaultCacheTTL = 10 * time.Minute

// parseCache memoises parse results by language and content hash. Reparses
// of unchanged text (undo, save without edits, several documents sharing a
// file) skip tree-sitter entirely.
type parseCache struct {
	cache  otter.Cache[string, []*tracking.Function]
	hits   atomic.Int64
	misses atomic.Int64
}

func newParseCache(size int, ttl time.Duration) (*parseCache, error) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	cache, err := otter.MustBuilder[string, []*tracking.Function](size).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}
	return &parseCache{cache: cache}, nil
}

func (c *parseCache) get(language, source string) ([]*tracking.Function, bool) {
	fns, ok := c.cache.Get(cacheKey(language, source))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return fns, ok
}

func (c *parseCache) put(language, source string, fns []*tracking.Function) {
	c.cache.Set(cacheKey(language, source), fns)
}

func (c *parseCache) stats() (int64, int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *parseCache) close() {
	c.cache.Close()
}

// cacheHashKey seeds the source hash; highwayhash requires 32 bytes.
var cacheHashKey = []byte("autodoc-parse-cache-source-key01")

// cacheKey joins the language with a 128-bit highwayhash of the source.
func cacheKey(language, source string) string {
	h := highwayhash.Sum128([]byte(source), cacheHashKey)
	return language + ":" + hex.EncodeToString(h[:])
}
