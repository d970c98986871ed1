// Package cache keeps recently fetched files resident in memory under a
// byte budget, in front of a core.BlockSource.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Skryldev/image-engine/config"
	"github.com/Skryldev/image-engine/core"
	apperrors "github.com/Skryldev/image-engine/errors"
	"github.com/Skryldev/image-engine/utils"
)

// maxEntries bounds the backing LRU list; the byte budget is the real limit.
const maxEntries = 4096

// entry is one resident file.  The cache owns the buffer exclusively and
// hands out copies.
type entry struct {
	data       []byte
	size       int64
	lastAccess time.Time
}

// sizeMemo remembers a source Size answer for a path that is not resident.
type sizeMemo struct {
	bytes int64
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	DirectReads int64
	Evictions   int64
	UsedBytes   int64
	Entries     int
}

// Cache is a byte-budgeted read-through cache over a BlockSource.  All
// methods are safe for concurrent use.
type Cache struct {
	source   core.BlockSource
	capacity int64
	bypass   bool

	mu    sync.Mutex
	lru   *lru.Cache[string, *entry]
	used  int64
	sizes map[string]sizeMemo

	logger  core.Logger
	metrics core.MetricsCollector

	hits        int64
	misses      int64
	directReads int64
	evictions   int64
}

// New builds a cache in front of source, sized per cfg.
func New(source core.BlockSource, cfg config.Config) *Cache {
	c := &Cache{
		source:   source,
		capacity: cfg.CacheCapacity,
		bypass:   cfg.GlobalBypass,
		sizes:    make(map[string]sizeMemo),
		logger:   core.NopLogger(),
	}
	// Cannot fail: maxEntries is a positive constant.
	l, _ := lru.NewWithEvict[string, *entry](maxEntries, c.onEvict)
	c.lru = l
	return c
}

// SetLogger replaces the cache logger.
func (c *Cache) SetLogger(l core.Logger) {
	if l != nil {
		c.logger = l
	}
}

// SetMetrics attaches a metrics collector.
func (c *Cache) SetMetrics(m core.MetricsCollector) { c.metrics = m }

// onEvict runs inside lru mutations, which all happen with mu held.
func (c *Cache) onEvict(key string, e *entry) {
	c.used -= e.size
	delete(c.sizes, key)
	atomic.AddInt64(&c.evictions, 1)
}

// ── Reads ─────────────────────────────────────────────────────────────────────

// Get returns the full contents of path, serving from memory when resident.
// The returned slice is the caller's to keep.
func (c *Cache) Get(ctx context.Context, path string) ([]byte, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	if c.bypass || c.capacity <= 0 {
		return c.readDirect(ctx, p)
	}

	c.mu.Lock()
	if e, ok := c.lru.Get(p); ok {
		e.lastAccess = time.Now()
		data := utils.CloneBytes(e.data)
		c.mu.Unlock()
		atomic.AddInt64(&c.hits, 1)
		c.recordEvent("hit")
		return data, nil
	}
	c.mu.Unlock()

	atomic.AddInt64(&c.misses, 1)
	c.recordEvent("miss")
	data, err := c.source.ReadAll(ctx, p)
	if err != nil {
		return nil, err
	}
	// Keep a private copy resident; the fetched buffer belongs to the caller.
	c.insert(p, utils.CloneBytes(data))
	return data, nil
}

// GetDirect reads path from the source, skipping the cache entirely.
func (c *Cache) GetDirect(ctx context.Context, path string) ([]byte, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	return c.readDirect(ctx, p)
}

// GetLimited behaves like Get but refuses files larger than maxBytes.
// maxBytes <= 0 means no limit.
func (c *Cache) GetLimited(ctx context.Context, path string, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return c.Get(ctx, path)
	}
	size, err := c.Size(ctx, path)
	if err != nil {
		return nil, err
	}
	if size > maxBytes {
		return nil, apperrors.New(apperrors.CategoryInput, "cache.get_limited", apperrors.ErrFileTooLarge)
	}
	return c.Get(ctx, path)
}

// Exists reports whether path is resident or present in the source.
func (c *Cache) Exists(ctx context.Context, path string) (bool, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	resident := c.lru.Contains(p)
	c.mu.Unlock()
	if resident {
		return true, nil
	}
	return c.source.Exists(ctx, p)
}

// Size returns the byte size of path.  Answers for non-resident paths are
// memoized until the entry churns.
func (c *Cache) Size(ctx context.Context, path string) (int64, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	if e, ok := c.lru.Peek(p); ok {
		size := e.size
		c.mu.Unlock()
		return size, nil
	}
	if m, ok := c.sizes[p]; ok {
		c.mu.Unlock()
		return m.bytes, nil
	}
	c.mu.Unlock()

	size, err := c.source.Size(ctx, p)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.sizes[p] = sizeMemo{bytes: size}
	c.mu.Unlock()
	return size, nil
}

// ReadRange reads length bytes starting at offset, always from the source.
func (c *Cache) ReadRange(ctx context.Context, path string, offset int64, length int) ([]byte, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&c.directReads, 1)
	c.recordEvent("direct")
	return c.source.ReadRange(ctx, p, offset, length)
}

// Stream delivers path in chunkSize pieces, always from the source.
func (c *Cache) Stream(ctx context.Context, path string, chunkSize int, fn core.StreamFunc) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	atomic.AddInt64(&c.directReads, 1)
	c.recordEvent("direct")
	return c.source.Stream(ctx, p, chunkSize, fn)
}

func (c *Cache) readDirect(ctx context.Context, p string) ([]byte, error) {
	atomic.AddInt64(&c.directReads, 1)
	c.recordEvent("direct")
	return c.source.ReadAll(ctx, p)
}

// ── Residency ─────────────────────────────────────────────────────────────────

// insert makes data resident, evicting least-recently-used entries first so
// the byte budget is never exceeded.  Oversized payloads stay uncached.
func (c *Cache) insert(p string, data []byte) {
	size := int64(len(data))
	if size > c.capacity {
		c.logger.Warn("cache.oversized", "path", p, "size", size, "capacity", c.capacity)
		c.recordEvent("oversized")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// Replace, never update in place, so byte accounting stays single-path.
	c.lru.Remove(p)
	for c.used+size > c.capacity && c.lru.Len() > 0 {
		c.lru.RemoveOldest()
	}
	c.lru.Add(p, &entry{data: data, size: size, lastAccess: time.Now()})
	c.used += size
	delete(c.sizes, p)
}

// Evict drops path from residency.  Dropping an absent path is a no-op.
func (c *Cache) Evict(path string) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.lru.Remove(p)
	c.mu.Unlock()
	return nil
}

// Clear drops every resident entry and all size memos.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.lru.Purge()
	c.sizes = make(map[string]sizeMemo)
	c.mu.Unlock()
}

// Sweep evicts entries idle for at least olderThan and returns how many went.
func (c *Cache) Sweep(olderThan time.Duration) int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.lru.Keys() {
		e, ok := c.lru.Peek(k)
		if ok && now.Sub(e.lastAccess) >= olderThan {
			c.lru.Remove(k)
			n++
		}
	}
	return n
}

// ── Introspection ─────────────────────────────────────────────────────────────

// Usage returns the resident byte total.
func (c *Cache) Usage() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	used := c.used
	entries := c.lru.Len()
	c.mu.Unlock()
	return Stats{
		Hits:        atomic.LoadInt64(&c.hits),
		Misses:      atomic.LoadInt64(&c.misses),
		DirectReads: atomic.LoadInt64(&c.directReads),
		Evictions:   atomic.LoadInt64(&c.evictions),
		UsedBytes:   used,
		Entries:     entries,
	}
}

func (c *Cache) recordEvent(event string) {
	if c.metrics != nil {
		c.metrics.RecordCacheEvent(event)
	}
}
