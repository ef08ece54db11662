package engine

import "github.com/dinoserve/dino/internal/core"

// Pool is the shared-backend alias for core.ScriptPool, re-exported here
// so callers of this package don't need to import internal/core just to
// spell the return type of NewPool.
type Pool = core.ScriptPool
