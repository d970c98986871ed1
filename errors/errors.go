package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryInput     Category = "input"
	CategoryStorage   Category = "storage"
	CategoryCache     Category = "cache"
	CategoryDecode    Category = "decode"
	CategoryDraw      Category = "draw"
	CategoryConfig    Category = "config"
	CategoryTransient Category = "transient"
)

// EngineError is the structured error type used throughout the module.
type EngineError struct {
	Category  Category
	Op        string // operation name
	Err       error
	Retryable bool
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// New creates a non-retryable EngineError.
func New(category Category, op string, err error) *EngineError {
	return &EngineError{Category: category, Op: op, Err: err}
}

// Transient creates a retryable EngineError.
func Transient(op string, err error) *EngineError {
	return &EngineError{Category: CategoryTransient, Op: op, Err: err, Retryable: true}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsRetryable reports whether err represents a transient failure.
func IsRetryable(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Retryable
	}
	return false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Category == cat
	}
	return false
}

// Sentinel errors for common failure modes.
var (
	ErrInvalidPath       = errors.New("invalid path")
	ErrNotFound          = errors.New("file not found")
	ErrSizeMismatch      = errors.New("buffer size mismatch")
	ErrOversizedForCache = errors.New("file exceeds cache capacity")
	ErrOutOfRange        = errors.New("read out of range")
	ErrStopStream        = errors.New("stop stream")
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrUnknownFormat     = errors.New("unknown pixel format")
	ErrFileTooLarge      = errors.New("file exceeds size limit")
)
