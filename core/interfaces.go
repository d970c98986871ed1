package core

import (
	"context"
	"time"
)

// StreamFunc receives one chunk per call during a streamed read.  Returning
// errors.ErrStopStream ends the stream without error.
type StreamFunc func(chunk []byte) error

// BlockSource reads stored byte blocks.  Implementations live in
// adapters/blocksource/.
type BlockSource interface {
	Exists(ctx context.Context, path string) (bool, error)
	Size(ctx context.Context, path string) (int64, error)
	ReadAll(ctx context.Context, path string) ([]byte, error)
	ReadRange(ctx context.Context, path string, offset int64, length int) ([]byte, error)
	Stream(ctx context.Context, path string, chunkSize int, fn StreamFunc) error
}

// RangeReader is the subset of BlockSource needed by streamed images.
type RangeReader interface {
	ReadRange(ctx context.Context, path string, offset int64, length int) ([]byte, error)
}

// Codec decodes and packs single pixels for one PixelFormat.
// Implementations live in codec/.
type Codec interface {
	// Format reports which pixel format this codec handles.
	Format() PixelFormat
	// DecodePixel reads the pixel at (x, y) from a packed buffer.  Reads
	// outside the descriptor bounds or past the buffer end yield
	// transparent black.
	DecodePixel(desc ImageDescriptor, data []byte, x, y int) Color
	// PackPixel writes c at (x, y) into a packed buffer.  Writes outside
	// the descriptor bounds or past the buffer end are dropped.
	PackPixel(desc ImageDescriptor, c Color, x, y int, data []byte)
}

// PixelSource is anything the compositor can sample pixels from.
type PixelSource interface {
	Descriptor() ImageDescriptor
	// At returns the decoded pixel at (x, y), transparent black when out
	// of bounds.
	At(x, y int) Color
}

// Surface is a drawing destination.  Clip reports the active clip
// rectangle; ok is false when no clipping applies.
type Surface interface {
	SetPixel(x, y int, c Color)
	Clip() (r Rect, ok bool)
}

// MetricsCollector receives performance observations from the engine.
type MetricsCollector interface {
	RecordOpTime(op string, d interface{ Seconds() float64 })
	RecordThroughput(bytes int64)
	RecordCacheEvent(event string)
	RecordError(op string, category string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Hook observes engine operations.  Hooks must be fast and must not block.
type Hook interface {
	BeforeOp(ctx context.Context, op, path string)
	AfterOp(ctx context.Context, op, path string, bytes int64, d time.Duration, err error)
}

// Registry maps PixelFormat values to Codec implementations.
type Registry interface {
	CodecFor(format PixelFormat) (Codec, bool)
	RegisterCodec(format PixelFormat, c Codec)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return nopLogger{} }
