package imageengine

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/Skryldev/image-engine/adapters/blocksource"
	"github.com/Skryldev/image-engine/cache"
	"github.com/Skryldev/image-engine/codec"
	"github.com/Skryldev/image-engine/compositor"
	"github.com/Skryldev/image-engine/config"
	"github.com/Skryldev/image-engine/core"
	apperrors "github.com/Skryldev/image-engine/errors"
	"github.com/Skryldev/image-engine/ingest"
	"github.com/Skryldev/image-engine/utils"
)

// Re-export PixelFormat constants for convenience.
const (
	Binary    = core.FormatBinary
	Grayscale = core.FormatGrayscale
	RGB565    = core.FormatRGB565
	RGB       = core.FormatRGB
)

// Re-export transparency modes and byte orders for convenience.
const (
	Opaque       = core.Opaque
	ChromaKey    = core.ChromaKey
	AlphaChannel = core.AlphaChannel
	BigEndian    = core.BigEndian
	LittleEndian = core.LittleEndian
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Engine is the primary entry point: a cached, format-aware byte engine for
// stored files and packed images.
type Engine struct {
	cfg      config.Config
	source   core.BlockSource
	cache    *cache.Cache
	registry *core.DefaultRegistry
	comp     *compositor.Compositor
	hooks    []core.Hook
	logger   core.Logger
	metrics  core.MetricsCollector
	files    map[string]config.FileSpec

	// Atomic counters for lightweight internal metrics.
	opCount    int64
	errorCount int64
}

// New creates a fully wired Engine with all built-in pixel codecs
// registered.  The block source comes from cfg.Source.
func New(cfg config.Config) *Engine {
	var source core.BlockSource
	switch cfg.Source {
	case config.SourceMemory:
		source = blocksource.NewMemory()
	default:
		source = blocksource.NewLocal(cfg.Local.RootDir)
	}
	return NewWithSource(cfg, source)
}

// NewWithSource creates an Engine over an explicit block source.
func NewWithSource(cfg config.Config, source core.BlockSource) *Engine {
	if cfg.FileChunkSize <= 0 {
		cfg.FileChunkSize = 1024
	}
	if cfg.AudioChunkSize <= 0 {
		cfg.AudioChunkSize = 4 * 1024
	}
	if cfg.ImageChunkSize <= 0 {
		cfg.ImageChunkSize = 2 * 1024
	}
	if fs, ok := source.(*blocksource.FS); ok && cfg.MaxFileBytes > 0 {
		fs.SetMaxBytes(cfg.MaxFileBytes)
	}

	reg := core.NewRegistry()
	for _, c := range codec.All() {
		reg.RegisterCodec(c.Format(), c)
	}

	files := make(map[string]config.FileSpec, len(cfg.Files))
	for _, f := range cfg.Files {
		files[f.ID] = f
	}

	return &Engine{
		cfg:      cfg,
		source:   source,
		cache:    cache.New(source, cfg),
		registry: reg,
		comp:     compositor.New(),
		logger:   core.NopLogger(),
		files:    files,
	}
}

// SetLogger attaches a structured logger.
func (e *Engine) SetLogger(l core.Logger) {
	if l == nil {
		return
	}
	e.logger = l
	e.cache.SetLogger(l)
	e.comp.SetLogger(l)
}

// SetMetrics attaches a metrics collector.
func (e *Engine) SetMetrics(m core.MetricsCollector) {
	e.metrics = m
	e.cache.SetMetrics(m)
}

// AddHook registers an observer for engine operation events.
func (e *Engine) AddHook(h core.Hook) { e.hooks = append(e.hooks, h) }

// RegisterCodec registers a custom codec for the given format.
func (e *Engine) RegisterCodec(f core.PixelFormat, c core.Codec) { e.registry.RegisterCodec(f, c) }

// Registry returns the codec registry.
func (e *Engine) Registry() core.Registry { return e.registry }

// ── File operations ───────────────────────────────────────────────────────────

// Fetch returns the full contents of path, cached when possible.
func (e *Engine) Fetch(ctx context.Context, path string) ([]byte, error) {
	e.notifyBefore(ctx, "fetch", path)
	start := time.Now()
	data, err := e.cache.Get(ctx, path)
	e.notifyAfter(ctx, "fetch", path, int64(len(data)), time.Since(start), err)
	return data, e.finish(err)
}

// FetchDirect returns the contents of path, bypassing the cache.
func (e *Engine) FetchDirect(ctx context.Context, path string) ([]byte, error) {
	e.notifyBefore(ctx, "fetch_direct", path)
	start := time.Now()
	data, err := e.cache.GetDirect(ctx, path)
	e.notifyAfter(ctx, "fetch_direct", path, int64(len(data)), time.Since(start), err)
	return data, e.finish(err)
}

// FetchLimited behaves like Fetch but refuses files larger than maxBytes.
func (e *Engine) FetchLimited(ctx context.Context, path string, maxBytes int64) ([]byte, error) {
	e.notifyBefore(ctx, "fetch_limited", path)
	start := time.Now()
	data, err := e.cache.GetLimited(ctx, path, maxBytes)
	e.notifyAfter(ctx, "fetch_limited", path, int64(len(data)), time.Since(start), err)
	return data, e.finish(err)
}

// FetchByID fetches a file registered in the configuration by its ID.
func (e *Engine) FetchByID(ctx context.Context, id string) ([]byte, error) {
	path, err := e.PathFor(id)
	if err != nil {
		return nil, e.finish(err)
	}
	return e.Fetch(ctx, path)
}

// Exists reports whether path is resident or present in the source.
func (e *Engine) Exists(ctx context.Context, path string) (bool, error) {
	return e.cache.Exists(ctx, path)
}

// Size returns the byte size of path without fetching its contents.
func (e *Engine) Size(ctx context.Context, path string) (int64, error) {
	return e.cache.Size(ctx, path)
}

// Stream delivers path in chunkSize pieces.  A non-positive chunkSize uses
// the configured file preset.  Returning errors.ErrStopStream from fn ends
// the stream without error.
func (e *Engine) Stream(ctx context.Context, path string, chunkSize int, fn core.StreamFunc) error {
	if chunkSize <= 0 {
		chunkSize = e.cfg.FileChunkSize
	}
	e.notifyBefore(ctx, "stream", path)
	start := time.Now()
	var streamed int64
	err := e.cache.Stream(ctx, path, chunkSize, func(chunk []byte) error {
		streamed += int64(len(chunk))
		return fn(chunk)
	})
	e.notifyAfter(ctx, "stream", path, streamed, time.Since(start), err)
	return e.finish(err)
}

// StreamAudio streams path with the audio chunk preset.
func (e *Engine) StreamAudio(ctx context.Context, path string, fn core.StreamFunc) error {
	return e.Stream(ctx, path, e.cfg.AudioChunkSize, fn)
}

// StreamImage streams path with the image chunk preset.
func (e *Engine) StreamImage(ctx context.Context, path string, fn core.StreamFunc) error {
	return e.Stream(ctx, path, e.cfg.ImageChunkSize, fn)
}

// StreamByID streams a file registered in the configuration by its ID,
// honoring the file's own chunk size when one is set.
func (e *Engine) StreamByID(ctx context.Context, id string, fn core.StreamFunc) error {
	spec, ok := e.files[id]
	if !ok {
		return e.finish(apperrors.New(apperrors.CategoryInput, "files.resolve", apperrors.ErrNotFound))
	}
	return e.Stream(ctx, spec.Path, spec.ChunkSize, fn)
}

// StreamTo copies path into w chunk by chunk and returns the byte count.
func (e *Engine) StreamTo(ctx context.Context, path string, chunkSize int, w io.Writer) (int64, error) {
	var written int64
	err := e.Stream(ctx, path, chunkSize, utils.WriterFunc(w, &written))
	return written, err
}

// PathFor resolves a configured file ID to its path.
func (e *Engine) PathFor(id string) (string, error) {
	spec, ok := e.files[id]
	if !ok {
		return "", apperrors.New(apperrors.CategoryInput, "files.resolve", apperrors.ErrNotFound)
	}
	return spec.Path, nil
}

// ── Image operations ──────────────────────────────────────────────────────────

// Load fetches path and wraps it as a packed image described by desc.  A
// buffer whose size disagrees with the descriptor is kept usable: the
// mismatch is logged and out-of-buffer pixels decode as transparent black.
func (e *Engine) Load(ctx context.Context, path string, desc core.ImageDescriptor) (*core.Image, error) {
	e.notifyBefore(ctx, "load", path)
	start := time.Now()
	img, err := e.load(ctx, path, desc)
	var n int64
	if img != nil {
		n = int64(len(img.Data()))
	}
	e.notifyAfter(ctx, "load", path, n, time.Since(start), err)
	return img, e.finish(err)
}

func (e *Engine) load(ctx context.Context, path string, desc core.ImageDescriptor) (*core.Image, error) {
	// --- 1. resolve the codec ---
	if err := desc.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInput, "load", err)
	}
	cdc, ok := e.registry.CodecFor(desc.Format)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryDecode, "load", apperrors.ErrUnknownFormat)
	}

	// --- 2. fetch the bytes ---
	data, err := e.cache.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	// --- 3. size sanity check; decode continues regardless ---
	if len(data) != desc.ExpectedSize() {
		e.logger.Warn("load.size_mismatch",
			"path", path,
			"got", len(data),
			"want", desc.ExpectedSize(),
		)
		if e.metrics != nil {
			e.metrics.RecordError("load", string(apperrors.CategoryDecode))
		}
	}

	return core.NewImage(desc, data, cdc)
}

// LoadStreamed opens path as a row-windowed image without fetching the whole
// buffer.  Rows are read through the source on demand, so it suits large
// images and bypass mode.  The returned image is not safe for concurrent use.
func (e *Engine) LoadStreamed(ctx context.Context, path string, desc core.ImageDescriptor) (*core.StreamedImage, error) {
	e.notifyBefore(ctx, "load_streamed", path)
	start := time.Now()
	img, err := e.loadStreamed(ctx, path, desc)
	e.notifyAfter(ctx, "load_streamed", path, 0, time.Since(start), err)
	return img, e.finish(err)
}

func (e *Engine) loadStreamed(ctx context.Context, path string, desc core.ImageDescriptor) (*core.StreamedImage, error) {
	if err := desc.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInput, "load_streamed", err)
	}
	cdc, ok := e.registry.CodecFor(desc.Format)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryDecode, "load_streamed", apperrors.ErrUnknownFormat)
	}
	exists, err := e.cache.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.New(apperrors.CategoryStorage, "load_streamed", apperrors.ErrNotFound)
	}
	return core.NewStreamedImage(ctx, e.cache, path, desc, cdc, e.logger)
}

// LoadBMP fetches a BMP container from path and packs it into the requested
// pixel format.  Dimensions come from the BMP header.
func (e *Engine) LoadBMP(ctx context.Context, path string, format core.PixelFormat, tr core.TransparencyMode, order core.ByteOrder, opts ingest.Options) (*core.Image, error) {
	e.notifyBefore(ctx, "load_bmp", path)
	start := time.Now()
	img, err := e.loadBMP(ctx, path, format, tr, order, opts)
	var n int64
	if img != nil {
		n = int64(len(img.Data()))
	}
	e.notifyAfter(ctx, "load_bmp", path, n, time.Since(start), err)
	return img, e.finish(err)
}

func (e *Engine) loadBMP(ctx context.Context, path string, format core.PixelFormat, tr core.TransparencyMode, order core.ByteOrder, opts ingest.Options) (*core.Image, error) {
	cdc, ok := e.registry.CodecFor(format)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryDecode, "load_bmp", apperrors.ErrUnknownFormat)
	}
	data, err := e.cache.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if utils.DetectFormat(data) != utils.FormatBMP {
		return nil, apperrors.New(apperrors.CategoryDecode, "load_bmp", apperrors.ErrUnknownFormat)
	}
	return ingest.FromBMP(ctx, data, format, tr, order, cdc, opts)
}

// NewImage wraps an in-memory packed buffer using the registered codec for
// desc.Format.
func (e *Engine) NewImage(desc core.ImageDescriptor, data []byte) (*core.Image, error) {
	cdc, ok := e.registry.CodecFor(desc.Format)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryDecode, "image.new", apperrors.ErrUnknownFormat)
	}
	return core.NewImage(desc, data, cdc)
}

// Draw renders src onto dst with its top-left corner at (x, y).  colorOn
// and colorOff substitute for set and clear binary pixels and anchor the
// grayscale alpha blend.
func (e *Engine) Draw(ctx context.Context, src core.PixelSource, x, y int, dst core.Surface, colorOn, colorOff core.Color) error {
	e.notifyBefore(ctx, "draw", "")
	start := time.Now()
	err := e.comp.Draw(ctx, src, x, y, dst, colorOn, colorOff)
	e.notifyAfter(ctx, "draw", "", 0, time.Since(start), err)
	return e.finish(err)
}

// ── Cache management ──────────────────────────────────────────────────────────

// Evict drops path from the cache.  Dropping an absent path is a no-op.
func (e *Engine) Evict(path string) error { return e.cache.Evict(path) }

// ClearCache drops every resident entry.
func (e *Engine) ClearCache() { e.cache.Clear() }

// Sweep evicts entries idle for at least the configured StaleAfter and
// returns how many went.
func (e *Engine) Sweep() int {
	n := e.cache.Sweep(e.cfg.StaleAfter)
	if n > 0 {
		e.logger.Debug("cache.sweep", "evicted", n)
	}
	return n
}

// CacheUsage returns the resident byte total.
func (e *Engine) CacheUsage() int64 { return e.cache.Usage() }

// CacheStats returns a snapshot of the cache counters.
func (e *Engine) CacheStats() cache.Stats { return e.cache.Stats() }

// Stats returns lightweight engine statistics.
func (e *Engine) Stats() (ops, errors int64) {
	return atomic.LoadInt64(&e.opCount), atomic.LoadInt64(&e.errorCount)
}

// ── internals ─────────────────────────────────────────────────────────────────

func (e *Engine) finish(err error) error {
	if err != nil {
		atomic.AddInt64(&e.errorCount, 1)
		return err
	}
	atomic.AddInt64(&e.opCount, 1)
	return nil
}

func (e *Engine) notifyBefore(ctx context.Context, op, path string) {
	for _, h := range e.hooks {
		h.BeforeOp(ctx, op, path)
	}
}

func (e *Engine) notifyAfter(ctx context.Context, op, path string, bytes int64, d time.Duration, err error) {
	for _, h := range e.hooks {
		h.AfterOp(ctx, op, path, bytes, d, err)
	}
}
