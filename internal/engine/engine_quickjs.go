//go:build !v8

// Package engine selects the compiled-in script backend (QuickJS by
// default, V8 behind the "v8" build tag) and exposes it as a single
// constructor so callers never import internal/qjsengine or
// internal/v8engine directly.
package engine

import "github.com/dinoserve/dino/internal/qjsengine"

// BackendName identifies which script engine this build was compiled
// against.
const BackendName = "quickjs"

// NewPool creates a pool of size script-engine workers, each loaded
// with source.
func NewPool(size int, source string) (Pool, error) {
	return qjsengine.NewPool(size, source)
}
