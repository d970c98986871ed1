package config

import (
	"errors"
	"fmt"
	"time"
)

// SourceBackend selects the block source adapter.
type SourceBackend string

const (
	SourceLocal  SourceBackend = "local"
	SourceMemory SourceBackend = "memory"
)

// Config is the top-level configuration struct.  All fields have safe defaults
// so callers can start with Default() and override only what they need.
type Config struct {
	// Cache controls.
	CacheCapacity int64 // byte budget for resident files; 0 disables caching
	GlobalBypass  bool  // when set, every read goes straight to the source
	StaleAfter    time.Duration

	// Streaming chunk presets by payload class.
	FileChunkSize  int // default 1 KiB
	AudioChunkSize int // default 4 KiB
	ImageChunkSize int // default 2 KiB

	// Size guard for single reads.
	MaxFileBytes int64 // 0 = no limit

	// Source.
	Source SourceBackend
	Local  LocalConfig

	// Well-known files addressable by ID.
	Files []FileSpec

	// Logging / metrics.
	LogLevel string // "debug", "info", "warn", "error"
}

// LocalConfig configures the local filesystem block source.
type LocalConfig struct {
	RootDir string
}

// FileSpec registers a well-known file under a stable ID.  A positive
// ChunkSize overrides the file streaming preset for this file only.
type FileSpec struct {
	ID        string
	Path      string
	ChunkSize int
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		CacheCapacity:  32 * 1024,
		StaleAfter:     5 * time.Minute,
		FileChunkSize:  1024,
		AudioChunkSize: 4 * 1024,
		ImageChunkSize: 2 * 1024,
		Source:         SourceLocal,
		Local:          LocalConfig{RootDir: "."},
		LogLevel:       "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.CacheCapacity < 0 {
		return errors.New("config: CacheCapacity must not be negative")
	}
	if c.FileChunkSize <= 0 || c.AudioChunkSize <= 0 || c.ImageChunkSize <= 0 {
		return errors.New("config: chunk sizes must be positive")
	}
	if c.MaxFileBytes < 0 {
		return errors.New("config: MaxFileBytes must not be negative")
	}
	if c.StaleAfter < 0 {
		return errors.New("config: StaleAfter must not be negative")
	}
	switch c.Source {
	case SourceLocal, SourceMemory:
	default:
		return fmt.Errorf("config: unknown source backend %q", c.Source)
	}
	if c.Source == SourceLocal && c.Local.RootDir == "" {
		return errors.New("config: Local.RootDir must be set for the local source")
	}
	seen := make(map[string]struct{}, len(c.Files))
	for _, f := range c.Files {
		if f.ID == "" || f.Path == "" {
			return errors.New("config: file specs need both ID and Path")
		}
		if f.ChunkSize < 0 {
			return fmt.Errorf("config: file %q has a negative ChunkSize", f.ID)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("config: duplicate file ID %q", f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}
