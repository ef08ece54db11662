package router

import (
	"sync/atomic"

	"github.com/dinoserve/dino/internal/core"
)

// SwappableAppRouter holds the currently live AppRouter behind an
// atomic pointer so a config reload can publish a new route table
// without a lock on the request path: in-flight Match calls keep
// using the snapshot they loaded, and the next call picks up the new
// one. The same pattern is used by registry.SwappableWorkerPool for
// script pools; the watch loop swaps the two one after the other on
// each rebuild.
type SwappableAppRouter struct {
	ptr atomic.Pointer[AppRouter]
}

// NewSwappableAppRouter builds the initial router from routes.
func NewSwappableAppRouter(routes []core.Route) (*SwappableAppRouter, error) {
	ar, err := NewAppRouter(routes)
	if err != nil {
		return nil, err
	}
	s := &SwappableAppRouter{}
	s.ptr.Store(ar)
	return s, nil
}

// Load returns the currently active AppRouter.
func (s *SwappableAppRouter) Load() *AppRouter {
	return s.ptr.Load()
}

// Swap compiles a new route table and publishes it atomically,
// returning the router it replaced.
func (s *SwappableAppRouter) Swap(routes []core.Route) (*AppRouter, error) {
	next, err := NewAppRouter(routes)
	if err != nil {
		return nil, err
	}
	return s.ptr.Swap(next), nil
}
