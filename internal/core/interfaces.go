package core

// JSRuntime abstracts the script engine (QuickJS or V8) behind a common
// interface used by both backends to share request marshaling code.
type JSRuntime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// EvalBool evaluates JavaScript and returns the result as a Go bool.
	EvalBool(js string) (bool, error)

	// EvalInt evaluates JavaScript and returns the result as a Go int.
	EvalInt(js string) (int, error)

	// RunMicrotasks pumps the engine's microtask queue (Promise
	// callbacks) until it is empty.
	RunMicrotasks()
}

// ScriptPool is the common surface a backend's worker pool exposes to
// the swappable-pool/registry layer. Both internal/qjsengine and
// internal/v8engine implement it.
type ScriptPool interface {
	// Run dispatches one request to a worker chosen by round-robin and
	// blocks until the worker replies.
	Run(name string, req *Req) (*Res, error)

	// Dispose closes every worker in the pool. Workers mid-request
	// finish their current call before exiting.
	Dispose()
}
