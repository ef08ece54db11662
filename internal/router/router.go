// Package router matches an incoming method+path against one tenant's
// compiled route table. It wraps httprouter the way grafana-k6's API
// server does (one httprouter.Router per versioned mux), but httprouter
// is built to dispatch straight to an http.Handler, and a tenant route
// here only needs to resolve to a handler *name* that the script pool
// looks up later. AppRouter bridges that gap: each route registers a
// handle that records its own name into the recorder passed to it,
// and Match drives Lookup with that recorder instead of a live
// ResponseWriter.
package router

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/dinoserve/dino/internal/core"
)

// AppRouter matches requests against one tenant's config.yml route entries.
type AppRouter struct {
	inner *httprouter.Router
}

// NewAppRouter compiles routes into a lookup table. Path templates use
// httprouter's ":name" and "*rest" syntax, same as the tenant config.
func NewAppRouter(routes []core.Route) (*AppRouter, error) {
	r := httprouter.New()
	for _, rt := range routes {
		handlerName := rt.Handler
		r.Handle(rt.Method, rt.Path, func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			if rec, ok := w.(*matchRecorder); ok {
				rec.name = handlerName
			}
		})
	}
	return &AppRouter{inner: r}, nil
}

// Match resolves a method+path to the handler name bound to the
// matching route, along with any ":name"/"*rest" path parameters.
func (ar *AppRouter) Match(method, path string) (string, []core.Param, error) {
	handle, hrParams, _ := ar.inner.Lookup(method, path)
	if handle == nil {
		return "", nil, &core.RouteNotFound{Method: method, Path: path}
	}

	rec := &matchRecorder{}
	handle(rec, nil, hrParams)

	params := make([]core.Param, len(hrParams))
	for i, p := range hrParams {
		params[i] = core.Param{Key: p.Key, Value: p.Value}
	}
	return rec.name, params, nil
}

// matchRecorder is a no-op http.ResponseWriter that exists only so a
// route's Handle closure has somewhere to write back the handler name
// httprouter's Lookup otherwise discards.
type matchRecorder struct {
	name   string
	header http.Header
}

func (r *matchRecorder) Header() http.Header {
	if r.header == nil {
		r.header = http.Header{}
	}
	return r.header
}

func (r *matchRecorder) Write(b []byte) (int, error) { return len(b), nil }
func (r *matchRecorder) WriteHeader(int)             {}
