package core

import "fmt"

// ModuleNotFound is returned by a module loader when a specifier cannot
// be resolved to a file, directory index, or URL.
type ModuleNotFound struct {
	Specifier string
}

func (e *ModuleNotFound) Error() string {
	return fmt.Sprintf("Module not found %q", e.Specifier)
}

// HostNotFound means the registry has no tenant for the request's Host
// header (port stripped).
type HostNotFound struct {
	Host string
}

func (e *HostNotFound) Error() string { return fmt.Sprintf("host not found: %q", e.Host) }

// RouteNotFound means a tenant's router has no method+path match.
type RouteNotFound struct {
	Method string
	Path   string
}

func (e *RouteNotFound) Error() string {
	return fmt.Sprintf("route not found: %s %s", e.Method, e.Path)
}

// HandlerNotFound means the tenant module has no callable property by
// that name on its handlers object.
type HandlerNotFound struct {
	Name string
}

func (e *HandlerNotFound) Error() string { return fmt.Sprintf("handler not found: %q", e.Name) }

// HandlerThrew wraps a script-side exception or promise rejection.
type HandlerThrew struct {
	Message string
}

func (e *HandlerThrew) Error() string { return fmt.Sprintf("handler threw: %s", e.Message) }

// BadResponseShape means the value returned by a handler did not have a
// usable {status, headers[, body]} shape.
type BadResponseShape struct {
	Reason string
}

func (e *BadResponseShape) Error() string { return fmt.Sprintf("bad response shape: %s", e.Reason) }

// WorkerSendFailed means dispatch to a worker pool could not be
// completed (e.g. the pool was already disposed).
type WorkerSendFailed struct {
	Reason string
}

func (e *WorkerSendFailed) Error() string { return fmt.Sprintf("worker send failed: %s", e.Reason) }

// ConfigParseFailed wraps a YAML/JSON parse error from a tenant's
// config.yml or an import map document.
type ConfigParseFailed struct {
	Path string
	Err  error
}

func (e *ConfigParseFailed) Error() string {
	return fmt.Sprintf("config parse failed for %s: %v", e.Path, e.Err)
}

func (e *ConfigParseFailed) Unwrap() error { return e.Err }

// StatusCode maps a core error to the HTTP status spec.md §7 assigns it.
// Errors that don't match any case (bundle/transpile/load failures, which
// are fatal at build time rather than request time) return 0.
func StatusCode(err error) int {
	switch err.(type) {
	case *HostNotFound, *RouteNotFound:
		return 404
	case *HandlerNotFound, *HandlerThrew, *BadResponseShape:
		return 500
	case *WorkerSendFailed:
		return 503
	default:
		return 0
	}
}
