package imageengine

import "github.com/Skryldev/image-engine/cache"

// Inner exposes the underlying cache for advanced use (e.g., tuning sweeps
// or inspecting residency in tests).  Prefer the high-level API for normal
// usage.
func (e *Engine) Inner() *cache.Cache { return e.cache }
