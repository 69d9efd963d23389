// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about layout runs, audits, and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEngraveHooks(&myEngraveHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Engrave().OnLayoutStart(ctx, title, measures)
//	// ... run layout ...
//	observability.Engrave().OnLayoutComplete(ctx, title, pages, diagnostics, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Engrave Hooks
// =============================================================================

// EngraveHooks receives events from the layout pipeline.
type EngraveHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, path string)
	OnLoadComplete(ctx context.Context, path string, measures int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, title string, measures int)
	OnLayoutComplete(ctx context.Context, title string, pages, diagnostics int, duration time.Duration, err error)

	// Audit events
	OnAuditStart(ctx context.Context, pages int)
	OnAuditComplete(ctx context.Context, minor, major int, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEngraveHooks is a no-op implementation of EngraveHooks.
type NoopEngraveHooks struct{}

func (NoopEngraveHooks) OnLoadStart(context.Context, string)                                   {}
func (NoopEngraveHooks) OnLoadComplete(context.Context, string, int, time.Duration, error)     {}
func (NoopEngraveHooks) OnLayoutStart(context.Context, string, int)                            {}
func (NoopEngraveHooks) OnLayoutComplete(context.Context, string, int, int, time.Duration, error) {
}
func (NoopEngraveHooks) OnAuditStart(context.Context, int)                     {}
func (NoopEngraveHooks) OnAuditComplete(context.Context, int, int, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	engraveHooks EngraveHooks = NoopEngraveHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	hooksMu      sync.RWMutex
)

// SetEngraveHooks registers custom layout pipeline hooks.
// This should be called once at application startup before any layout runs.
func SetEngraveHooks(h EngraveHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		engraveHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Engrave returns the registered layout pipeline hooks.
func Engrave() EngraveHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return engraveHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	engraveHooks = NoopEngraveHooks{}
	cacheHooks = NoopCacheHooks{}
}
