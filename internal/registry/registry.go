// Package registry is the concurrent host → tenant mapping spec.md
// §4.7 describes: inserts happen at startup (a watcher-driven reload
// swaps the router and pool inside an existing Tenant instead), lookups
// happen on every request. It is deliberately a plain
// RWMutex-guarded map rather than sync.Map — the key set is small and
// mostly-read, and a single Tenant struct per host keeps Get's
// critical section to one map read.
package registry

import (
	"strings"
	"sync"

	"github.com/dinoserve/dino/internal/core"
	"github.com/dinoserve/dino/internal/router"
)

// Tenant bundles one host's swappable router and worker pool. The
// watch loop swaps both on every rebuild, whether the change was to
// config.yml or to a .ts/.js file.
type Tenant struct {
	Router *router.SwappableAppRouter
	Pool   *SwappableWorkerPool
}

// Registry maps a virtual host to its Tenant.
type Registry struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{tenants: map[string]*Tenant{}}
}

// Set registers or replaces the tenant bound to host.
func (r *Registry) Set(host string, t *Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[host] = t
}

// Get returns the tenant bound to host, stripping any ":port" suffix
// first the way spec.md §4.7 step 1 requires.
func (r *Registry) Get(hostHeader string) (*Tenant, error) {
	host := StripPort(hostHeader)

	r.mu.RLock()
	t, ok := r.tenants[host]
	r.mu.RUnlock()
	if !ok {
		return nil, &core.HostNotFound{Host: host}
	}
	return t, nil
}

// StripPort removes a trailing ":port" from a Host header value.
// IPv6 literals ("[::1]:8080") keep their brackets; bare IPv6 hosts
// without a port ("[::1]") pass through unchanged.
func StripPort(host string) string {
	if strings.HasPrefix(host, "[") {
		if idx := strings.LastIndexByte(host, ']'); idx >= 0 {
			if idx+1 < len(host) && host[idx+1] == ':' {
				return host[:idx+1]
			}
			return host
		}
		return host
	}
	if idx := strings.LastIndexByte(host, ':'); idx >= 0 {
		return host[:idx]
	}
	return host
}
