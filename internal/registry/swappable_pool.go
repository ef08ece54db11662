package registry

import (
	"sync/atomic"

	"github.com/dinoserve/dino/internal/core"
)

// SwappableWorkerPool holds the currently live script pool behind an
// atomic pointer, mirroring router.SwappableAppRouter: a reload swaps
// in a freshly built pool without blocking requests already holding
// the old one. The old pool is disposed only after the swap, once no
// new dispatches can reach it — see Swap.
type SwappableWorkerPool struct {
	ptr atomic.Pointer[core.ScriptPool]
}

// NewSwappableWorkerPool wraps an already-constructed pool.
func NewSwappableWorkerPool(p core.ScriptPool) *SwappableWorkerPool {
	s := &SwappableWorkerPool{}
	s.ptr.Store(&p)
	return s
}

// Load returns the currently active pool.
func (s *SwappableWorkerPool) Load() core.ScriptPool {
	return *s.ptr.Load()
}

// Swap publishes a new pool and returns the one it replaced, so the
// caller can Dispose it once in-flight requests against it are known
// to have drained (or dispose it immediately: in-flight Run calls
// already hold their own reference via Load and are unaffected).
func (s *SwappableWorkerPool) Swap(p core.ScriptPool) core.ScriptPool {
	old := s.ptr.Swap(&p)
	return *old
}

// Dispose tears down the currently active pool. Used at shutdown.
func (s *SwappableWorkerPool) Dispose() {
	s.Load().Dispose()
}
