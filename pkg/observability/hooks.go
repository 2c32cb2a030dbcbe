// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about bundle builds, lock contention, and registry calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, which keeps the library
// packages free of backend imports.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetLockHooks(&myLockHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnPlatformBuildStart(ctx, pkg, platform)
//	// ... bundle ...
//	observability.Pipeline().OnPlatformBuildComplete(ctx, pkg, platform, size, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the bundling pipeline.
type PipelineHooks interface {
	// Resolve events
	OnResolve(ctx context.Context, pkg, tag, version string, err error)

	// Install events
	OnInstallStart(ctx context.Context, pkg, version string)
	OnInstallComplete(ctx context.Context, pkg, version string, duration time.Duration, err error)

	// Per-platform build events
	OnPlatformBuildStart(ctx context.Context, pkg, platform string)
	OnPlatformBuildComplete(ctx context.Context, pkg, platform string, sizeBytes int, duration time.Duration, err error)

	// OnExternalMismatch records an external reference that neither the host
	// nor the package's peer dependencies account for.
	OnExternalMismatch(ctx context.Context, pkg, platform, external string)
}

// =============================================================================
// Lock Hooks
// =============================================================================

// LockHooks receives events from build locks.
type LockHooks interface {
	// OnLockAcquired records a successful acquisition and how long it waited.
	OnLockAcquired(ctx context.Context, key string, waited time.Duration)

	// OnLockTimeout records an acquisition that gave up.
	OnLockTimeout(ctx context.Context, key string, waited time.Duration)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnResolve(context.Context, string, string, string, error) {}
func (NoopPipelineHooks) OnInstallStart(context.Context, string, string)          {}
func (NoopPipelineHooks) OnInstallComplete(context.Context, string, string, time.Duration, error) {
}
func (NoopPipelineHooks) OnPlatformBuildStart(context.Context, string, string) {}
func (NoopPipelineHooks) OnPlatformBuildComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnExternalMismatch(context.Context, string, string, string) {}

// NoopLockHooks is a no-op implementation of LockHooks.
type NoopLockHooks struct{}

func (NoopLockHooks) OnLockAcquired(context.Context, string, time.Duration) {}
func (NoopLockHooks) OnLockTimeout(context.Context, string, time.Duration)  {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	lockHooks     LockHooks     = NoopLockHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetLockHooks registers custom lock hooks.
func SetLockHooks(h LockHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		lockHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Lock returns the registered lock hooks.
func Lock() LockHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return lockHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	lockHooks = NoopLockHooks{}
	httpHooks = NoopHTTPHooks{}
}
