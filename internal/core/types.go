// Package core holds the types and interfaces shared by the bundler,
// the script-engine backends, and the routing/registry layer. It has no
// dependency on any concrete script engine or HTTP framework so that the
// backends in internal/qjsengine and internal/v8engine can both satisfy
// it behind a build tag.
package core

// Param is one named path-segment match produced by a router, e.g. the
// ":id" in "/users/:id". Order is preserved because routes may bind the
// same name more than once across nested patterns.
type Param struct {
	Key   string
	Value string
}

// Req is the request passed to a tenant handler. It is built once per
// HTTP request and never mutated afterwards.
type Req struct {
	Method  string
	URL     string
	Params  []Param
	Query   map[string]string
	Headers map[string]string
	Body    *string
}

// Res is the response returned by a tenant handler.
type Res struct {
	Status  uint16
	Headers map[string]string
	Body    *string
}

// Route is one compiled entry of a tenant's config.yml: a method, a path
// template using ":name" and "*rest" segments, and the handler function
// name it dispatches to.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// EngineConfig configures a tenant's worker pool.
type EngineConfig struct {
	PoolSize int // number of script-engine workers held by the pool
}
