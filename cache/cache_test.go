package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Skryldev/image-engine/config"
	"github.com/Skryldev/image-engine/core"
	apperrors "github.com/Skryldev/image-engine/errors"
)

// fakeSource is a map-backed BlockSource that counts calls.
type fakeSource struct {
	mu    sync.Mutex
	files map[string][]byte

	readAlls    int
	sizeCalls   int
	rangeCalls  int
	streamCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{files: make(map[string][]byte)}
}

func (f *fakeSource) put(path string, data []byte) {
	f.mu.Lock()
	f.files[path] = data
	f.mu.Unlock()
}

func (f *fakeSource) counts() (readAlls, sizeCalls, rangeCalls, streamCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readAlls, f.sizeCalls, f.rangeCalls, f.streamCalls
}

func (f *fakeSource) Exists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[path]
	return ok, nil
}

func (f *fakeSource) Size(_ context.Context, path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizeCalls++
	data, ok := f.files[path]
	if !ok {
		return 0, apperrors.New(apperrors.CategoryStorage, "fake.size", apperrors.ErrNotFound)
	}
	return int64(len(data)), nil
}

func (f *fakeSource) ReadAll(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readAlls++
	data, ok := f.files[path]
	if !ok {
		return nil, apperrors.New(apperrors.CategoryStorage, "fake.read", apperrors.ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (f *fakeSource) ReadRange(_ context.Context, path string, offset int64, length int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rangeCalls++
	data, ok := f.files[path]
	if !ok {
		return nil, apperrors.New(apperrors.CategoryStorage, "fake.read_range", apperrors.ErrNotFound)
	}
	if offset >= int64(len(data)) {
		return nil, nil
	}
	end := offset + int64(length)
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	out := make([]byte, end-offset)
	copy(out, data[offset:end])
	return out, nil
}

func (f *fakeSource) Stream(_ context.Context, path string, chunkSize int, fn core.StreamFunc) error {
	f.mu.Lock()
	f.streamCalls++
	data, ok := f.files[path]
	f.mu.Unlock()
	if !ok {
		return apperrors.New(apperrors.CategoryStorage, "fake.stream", apperrors.ErrNotFound)
	}
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := fn(data[off:end]); err != nil {
			if errors.Is(err, apperrors.ErrStopStream) {
				return nil
			}
			return err
		}
	}
	return nil
}

// fakeMetrics records cache events.
type fakeMetrics struct {
	mu     sync.Mutex
	events map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{events: make(map[string]int)} }

func (m *fakeMetrics) RecordOpTime(string, interface{ Seconds() float64 }) {}
func (m *fakeMetrics) RecordThroughput(int64)                             {}
func (m *fakeMetrics) RecordError(string, string)                         {}
func (m *fakeMetrics) RecordCacheEvent(event string) {
	m.mu.Lock()
	m.events[event]++
	m.mu.Unlock()
}

func (m *fakeMetrics) count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[event]
}

func newCache(capacity int64) (*Cache, *fakeSource) {
	src := newFakeSource()
	return New(src, config.Config{CacheCapacity: capacity}), src
}

func payload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

// ── Read path ─────────────────────────────────────────────────────────────────

func TestGet_HitServesFromMemory(t *testing.T) {
	c, src := newCache(1024)
	src.put("/a", payload(64))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		data, err := c.Get(ctx, "/a")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(data, payload(64)) {
			t.Fatal("content mismatch")
		}
	}

	reads, _, _, _ := src.counts()
	if reads != 1 {
		t.Errorf("source reads: %d, want 1", reads)
	}
	stats := c.Stats()
	if stats.Misses != 1 || stats.Hits != 2 {
		t.Errorf("hits=%d misses=%d, want 2/1", stats.Hits, stats.Misses)
	}
}

func TestGet_CopyIsolation(t *testing.T) {
	c, src := newCache(1024)
	src.put("/a", payload(8))

	ctx := context.Background()
	miss, err := c.Get(ctx, "/a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	hit, err := c.Get(ctx, "/a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	miss[0] = 0xEE
	hit[1] = 0xEE

	fresh, err := c.Get(ctx, "/a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(fresh, payload(8)) {
		t.Errorf("resident copy was poisoned: %#v", fresh)
	}
}

func TestGet_MissingFile(t *testing.T) {
	c, _ := newCache(1024)

	_, err := c.Get(context.Background(), "/nope")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	// The failed read still counts as a miss.
	if stats := c.Stats(); stats.Misses != 1 {
		t.Errorf("misses=%d, want 1", stats.Misses)
	}
}

func TestGet_EvictionOrder(t *testing.T) {
	c, src := newCache(100)
	for _, p := range []string{"/a", "/b", "/c", "/d"} {
		src.put(p, payload(40))
	}

	ctx := context.Background()
	mustGet := func(p string) {
		t.Helper()
		if _, err := c.Get(ctx, p); err != nil {
			t.Fatalf("Get %s: %v", p, err)
		}
	}

	mustGet("/a")
	mustGet("/b")
	mustGet("/c") // evicts /a
	mustGet("/b") // refreshes /b, leaving /c oldest
	mustGet("/d") // evicts /c

	if usage := c.Usage(); usage != 80 {
		t.Errorf("usage=%d, want 80", usage)
	}
	if stats := c.Stats(); stats.Evictions != 2 {
		t.Errorf("evictions=%d, want 2", stats.Evictions)
	}

	reads, _, _, _ := src.counts()
	mustGet("/b") // still resident
	mustGet("/d") // still resident
	if r, _, _, _ := src.counts(); r != reads {
		t.Errorf("resident entries were re-read: %d -> %d", reads, r)
	}
	mustGet("/c") // evicted, reads again
	if r, _, _, _ := src.counts(); r != reads+1 {
		t.Errorf("evicted entry not re-read: %d -> %d", reads, r)
	}
}

func TestGet_OversizedStaysOut(t *testing.T) {
	c, src := newCache(10)
	src.put("/big", payload(20))
	m := newFakeMetrics()
	c.SetMetrics(m)

	data, err := c.Get(context.Background(), "/big")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(data) != 20 {
		t.Fatalf("got %d bytes, want 20", len(data))
	}
	if c.Len() != 0 || c.Usage() != 0 {
		t.Errorf("oversized entry became resident: len=%d usage=%d", c.Len(), c.Usage())
	}
	if m.count("oversized") != 1 {
		t.Errorf("oversized events: %d, want 1", m.count("oversized"))
	}
}

func TestGet_Bypass(t *testing.T) {
	src := newFakeSource()
	src.put("/a", payload(8))
	c := New(src, config.Config{CacheCapacity: 1024, GlobalBypass: true})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.Get(ctx, "/a"); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	reads, _, _, _ := src.counts()
	if reads != 2 {
		t.Errorf("source reads: %d, want 2", reads)
	}
	if stats := c.Stats(); stats.DirectReads != 2 || stats.Entries != 0 {
		t.Errorf("bypass stats: %+v", stats)
	}
}

func TestGetDirect_SkipsResidentCopy(t *testing.T) {
	c, src := newCache(1024)
	src.put("/a", payload(8))

	ctx := context.Background()
	if _, err := c.Get(ctx, "/a"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	reads, _, _, _ := src.counts()
	if _, err := c.GetDirect(ctx, "/a"); err != nil {
		t.Fatalf("GetDirect: %v", err)
	}
	if r, _, _, _ := src.counts(); r != reads+1 {
		t.Error("GetDirect served from memory")
	}
}

func TestGetLimited(t *testing.T) {
	c, src := newCache(1024)
	src.put("/a", payload(100))

	ctx := context.Background()
	if _, err := c.GetLimited(ctx, "/a", 50); !errors.Is(err, apperrors.ErrFileTooLarge) {
		t.Errorf("got %v, want ErrFileTooLarge", err)
	}
	if data, err := c.GetLimited(ctx, "/a", 100); err != nil || len(data) != 100 {
		t.Errorf("limit at size: %d bytes, %v", len(data), err)
	}
	if data, err := c.GetLimited(ctx, "/a", 0); err != nil || len(data) != 100 {
		t.Errorf("no limit: %d bytes, %v", len(data), err)
	}
}

// ── Metadata ──────────────────────────────────────────────────────────────────

func TestSize_Memoized(t *testing.T) {
	c, src := newCache(1024)
	src.put("/a", payload(77))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		size, err := c.Size(ctx, "/a")
		if err != nil || size != 77 {
			t.Fatalf("Size: %d, %v", size, err)
		}
	}
	_, sizes, _, _ := src.counts()
	if sizes != 1 {
		t.Errorf("source size calls: %d, want 1", sizes)
	}

	// Residency answers sizes without touching the memo.
	if _, err := c.Get(ctx, "/a"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if size, err := c.Size(ctx, "/a"); err != nil || size != 77 {
		t.Errorf("Size after get: %d, %v", size, err)
	}
	if _, sizes, _, _ = src.counts(); sizes != 1 {
		t.Errorf("source size calls after residency: %d, want 1", sizes)
	}
}

func TestExists(t *testing.T) {
	c, src := newCache(1024)
	src.put("/a", payload(8))

	ctx := context.Background()
	if ok, err := c.Exists(ctx, "/a"); err != nil || !ok {
		t.Errorf("Exists: %v, %v", ok, err)
	}
	if ok, err := c.Exists(ctx, "/nope"); err != nil || ok {
		t.Errorf("Exists missing: %v, %v", ok, err)
	}
}

// ── Range and stream reads ────────────────────────────────────────────────────

func TestReadRangeAndStream_AlwaysDirect(t *testing.T) {
	c, src := newCache(1024)
	src.put("/a", payload(64))

	ctx := context.Background()
	if _, err := c.Get(ctx, "/a"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	chunk, err := c.ReadRange(ctx, "/a", 10, 4)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if !bytes.Equal(chunk, []byte{10, 11, 12, 13}) {
		t.Errorf("range content: %#v", chunk)
	}

	var streamed int
	err = c.Stream(ctx, "/a", 16, func(b []byte) error {
		streamed += len(b)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if streamed != 64 {
		t.Errorf("streamed %d bytes, want 64", streamed)
	}

	_, _, ranges, streams := src.counts()
	if ranges != 1 || streams != 1 {
		t.Errorf("source calls: ranges=%d streams=%d, want 1/1", ranges, streams)
	}
	if stats := c.Stats(); stats.DirectReads != 2 {
		t.Errorf("direct reads: %d, want 2", stats.DirectReads)
	}
}

// ── Residency management ──────────────────────────────────────────────────────

func TestInsert_ReplaceKeepsAccounting(t *testing.T) {
	c, _ := newCache(1024)

	c.insert("/a", payload(40))
	c.insert("/a", payload(60))
	if usage := c.Usage(); usage != 60 {
		t.Errorf("usage=%d after replace, want 60", usage)
	}
	if c.Len() != 1 {
		t.Errorf("entries=%d, want 1", c.Len())
	}
}

func TestEvict(t *testing.T) {
	c, src := newCache(1024)
	src.put("/a", payload(10))
	src.put("/b", payload(10))

	ctx := context.Background()
	for _, p := range []string{"/a", "/b"} {
		if _, err := c.Get(ctx, p); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if err := c.Evict("/a"); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if c.Usage() != 10 || c.Len() != 1 {
		t.Errorf("after evict: usage=%d len=%d", c.Usage(), c.Len())
	}
	if err := c.Evict("/a"); err != nil {
		t.Errorf("evicting absent path: %v", err)
	}
	if err := c.Evict("../x"); !errors.Is(err, apperrors.ErrInvalidPath) {
		t.Errorf("invalid path: %v", err)
	}
}

func TestClear(t *testing.T) {
	c, src := newCache(1024)
	for i := 0; i < 3; i++ {
		p := fmt.Sprintf("/f/%d", i)
		src.put(p, payload(10))
		if _, err := c.Get(context.Background(), p); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	c.Clear()
	if c.Usage() != 0 || c.Len() != 0 {
		t.Errorf("after clear: usage=%d len=%d", c.Usage(), c.Len())
	}
}

func TestSweep(t *testing.T) {
	c, src := newCache(1024)
	src.put("/a", payload(10))
	src.put("/b", payload(10))

	ctx := context.Background()
	for _, p := range []string{"/a", "/b"} {
		if _, err := c.Get(ctx, p); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}

	if n := c.Sweep(time.Hour); n != 0 {
		t.Errorf("fresh entries swept: %d", n)
	}
	if n := c.Sweep(0); n != 2 {
		t.Errorf("swept %d entries, want 2", n)
	}
	if c.Usage() != 0 {
		t.Errorf("usage after sweep: %d", c.Usage())
	}
}

// ── Normalized keys ───────────────────────────────────────────────────────────

func TestGet_AliasedPathsShareEntry(t *testing.T) {
	c, src := newCache(1024)
	src.put("/a/b", payload(8))

	ctx := context.Background()
	if _, err := c.Get(ctx, "/a/b"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := c.Get(ctx, "//a//b"); err != nil {
		t.Fatalf("Get aliased: %v", err)
	}
	stats := c.Stats()
	if stats.Entries != 1 || stats.Hits != 1 {
		t.Errorf("aliased paths split: %+v", stats)
	}
}

// ── Concurrency ───────────────────────────────────────────────────────────────

func TestGet_Concurrent(t *testing.T) {
	c, src := newCache(200)
	paths := []string{"/p/0", "/p/1", "/p/2", "/p/3", "/p/4"}
	for _, p := range paths {
		src.put(p, payload(50))
	}

	const goroutines = 16
	var wg sync.WaitGroup
	errs := make([]error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < 30; j++ {
				data, err := c.Get(context.Background(), paths[(idx+j)%len(paths)])
				if err != nil {
					errs[idx] = err
					return
				}
				if len(data) != 50 {
					errs[idx] = fmt.Errorf("short read: %d", len(data))
					return
				}
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("goroutine %d: %v", i, err)
		}
	}
	if usage := c.Usage(); usage > 200 {
		t.Errorf("usage %d exceeds capacity", usage)
	}
}
