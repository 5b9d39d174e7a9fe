package attrcache

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/davmount/entity"
	"go.uber.org/zap"
)

const (
	defaultMaxAge      = 60 * time.Second
	defaultMaxEntries  = 4096
	defaultNumCounters = 10 * defaultMaxEntries
)

// Entry is what a directory listing learned about one child: enough to
// answer a later open without another round trip. The header block's
// checksum is stored alongside so a corrupted or partially written blob
// is detected instead of served.
type Entry struct {
	Stat       entity.Stat
	Validators entity.CacheValidators
	Header     []byte
	sum        uint64
	storedAt   time.Time
}

type Option func(*Cache)

// WithMaxAge overrides how long an entry stays served.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// Cache keeps attribute entries seeded by directory listings so an open
// right after a readdir can skip the network.
type Cache struct {
	maxAge time.Duration
	c      *ristretto.Cache[string, *Entry]
}

func New(opts ...Option) (*Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config[string, *Entry]{
		NumCounters: defaultNumCounters,
		MaxCost:     defaultMaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create attr cache failed, err:%w", err)
	}
	c := &Cache{maxAge: defaultMaxAge, c: inner}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Put stores an entry under the node path, stamping it with the current
// time and the header checksum.
func (c *Cache) Put(ctx context.Context, path string, ent Entry) {
	ent.storedAt = time.Now()
	ent.sum = xxhash.Sum64(ent.Header)
	_ = c.c.Set(path, &ent, 1)
}

// Get returns a still-fresh entry whose header checksum verifies. A stale
// or corrupted entry is dropped and reported as a miss.
func (c *Cache) Get(ctx context.Context, path string) (*Entry, bool) {
	ent, ok := c.c.Get(path)
	if !ok {
		return nil, false
	}
	if time.Since(ent.storedAt) > c.maxAge {
		c.c.Del(path)
		return nil, false
	}
	if xxhash.Sum64(ent.Header) != ent.sum {
		logutil.GetLogger(ctx).Warn("attr cache entry corrupted, dropping", zap.String("path", path))
		c.c.Del(path)
		return nil, false
	}
	return ent, true
}

// Invalidate drops the entry for path, if any.
func (c *Cache) Invalidate(ctx context.Context, path string) {
	c.c.Del(path)
}

// Wait blocks until pending writes are visible. Only used by tests.
func (c *Cache) Wait() {
	c.c.Wait()
}
