// Package blocksource provides BlockSource implementations.
package blocksource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/Skryldev/image-engine/core"
	apperrors "github.com/Skryldev/image-engine/errors"
	"github.com/Skryldev/image-engine/utils"
)

// defaultChunkSize is used when a caller passes a non-positive chunk size.
const defaultChunkSize = 1024

// FS reads blocks from a billy filesystem.  Paths are interpreted relative
// to the filesystem root, so a chrooted osfs doubles as a sandbox.
type FS struct {
	fs       billy.Filesystem
	maxBytes int64
}

// NewLocal creates a block source rooted at dir on the host filesystem.
func NewLocal(dir string) *FS {
	return &FS{fs: osfs.New(dir)}
}

// NewMemory creates a block source over a fresh in-memory filesystem.
func NewMemory() *FS {
	return &FS{fs: memfs.New()}
}

// NewFromBilly wraps an existing billy filesystem.
func NewFromBilly(fs billy.Filesystem) *FS {
	return &FS{fs: fs}
}

// SetMaxBytes caps full reads at max bytes; 0 removes the cap.
func (f *FS) SetMaxBytes(max int64) { f.maxBytes = max }

// Underlying exposes the wrapped filesystem, mainly for seeding fixtures.
func (f *FS) Underlying() billy.Filesystem { return f.fs }

func (f *FS) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Wrap(apperrors.CategoryStorage, "fs.exists", err)
	}
	_, err := f.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, apperrors.Wrap(apperrors.CategoryStorage, "fs.exists.stat", err)
}

func (f *FS) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperrors.Wrap(apperrors.CategoryStorage, "fs.size", err)
	}
	fi, err := f.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, notFound("fs.size", path)
		}
		return 0, apperrors.Wrap(apperrors.CategoryStorage, "fs.size.stat", err)
	}
	return fi.Size(), nil
}

func (f *FS) ReadAll(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "fs.read", err)
	}
	file, err := f.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound("fs.read", path)
		}
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "fs.read.open", err)
	}
	defer file.Close()

	var r io.Reader = file
	if f.maxBytes > 0 {
		r = &utils.LimitedReader{R: file, Max: f.maxBytes}
	}
	buf, err := utils.DrainReader(ctx, r, 0)
	if err != nil {
		if f.maxBytes > 0 && errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, apperrors.New(apperrors.CategoryInput, "fs.read", apperrors.ErrFileTooLarge)
		}
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "fs.read.drain", err)
	}
	data := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)
	return data, nil
}

func (f *FS) ReadRange(ctx context.Context, path string, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "fs.read_range", err)
	}
	if offset < 0 || length < 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "fs.read_range", apperrors.ErrOutOfRange)
	}
	if length == 0 {
		return nil, nil
	}
	file, err := f.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound("fs.read_range", path)
		}
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "fs.read_range.open", err)
	}
	defer file.Close()

	buf := make([]byte, length)
	n, err := file.ReadAt(buf, offset)
	// Short reads at the tail come back truncated, not as errors.
	if err != nil && err != io.EOF {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "fs.read_range.read", err)
	}
	return buf[:n], nil
}

func (f *FS) Stream(ctx context.Context, path string, chunkSize int, fn core.StreamFunc) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "fs.stream", err)
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	file, err := f.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound("fs.stream", path)
		}
		return apperrors.Wrap(apperrors.CategoryStorage, "fs.stream.open", err)
	}
	defer file.Close()

	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return apperrors.Wrap(apperrors.CategoryStorage, "fs.stream", err)
		}
		n, err := io.ReadFull(file, buf)
		if n > 0 {
			if cbErr := fn(buf[:n]); cbErr != nil {
				if errors.Is(cbErr, apperrors.ErrStopStream) {
					return nil
				}
				return apperrors.Wrap(apperrors.CategoryStorage, "fs.stream.callback", cbErr)
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return apperrors.Wrap(apperrors.CategoryStorage, "fs.stream.read", err)
		}
	}
}

func notFound(op, path string) error {
	return apperrors.New(apperrors.CategoryStorage, op, fmt.Errorf("%s: %w", path, apperrors.ErrNotFound))
}
