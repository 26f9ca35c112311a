// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about pipeline stages and cache operations;
// libraries call the hooks and remain backend-free.
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from the analysis pipeline.
type PipelineHooks interface {
	OnScanComplete(ctx context.Context, root string, units int, duration time.Duration, err error)
	OnBuildComplete(ctx context.Context, root string, nodes, edges int, duration time.Duration, err error)
	OnAnalyzeComplete(ctx context.Context, root string, cycles int, duration time.Duration, err error)
}

// CacheHooks receives events from report cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, key string)
	OnCacheMiss(ctx context.Context, key string)
	OnCacheSet(ctx context.Context, key string, size int)
}

// NoopPipelineHooks is the default PipelineHooks implementation.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnScanComplete(context.Context, string, int, time.Duration, error) {}

func (NoopPipelineHooks) OnBuildComplete(context.Context, string, int, int, time.Duration, error) {}

func (NoopPipelineHooks) OnAnalyzeComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks is the default CacheHooks implementation.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string) {}

func (NoopCacheHooks) OnCacheMiss(context.Context, string) {}

func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	mu            sync.RWMutex
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
)

// SetPipelineHooks registers pipeline instrumentation. Call at startup,
// before any pipeline runs.
func SetPipelineHooks(h PipelineHooks) {
	if h == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	pipelineHooks = h
}

// SetCacheHooks registers cache instrumentation.
func SetCacheHooks(h CacheHooks) {
	if h == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	cacheHooks = h
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	mu.RLock()
	defer mu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	mu.RLock()
	defer mu.RUnlock()
	return cacheHooks
}

// Reset restores the no-op defaults. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
}
