//go:build v8

package engine

import "github.com/dinoserve/dino/internal/v8engine"

const BackendName = "v8"

func NewPool(size int, source string) (Pool, error) {
	return v8engine.NewPool(size, source)
}
