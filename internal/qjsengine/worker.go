//go:build !v8

package qjsengine

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"modernc.org/quickjs"

	"github.com/dinoserve/dino/internal/core"
)

// handlerTimeout bounds how long run waits for a handler's returned
// promise to settle before the request fails. It is checked only in the
// await loop; the synchronous part of a handler call is not interrupted.
// The teacher's watchdog interrupts the VM on timeout; this spec has no
// long-lived streams to protect mid-flight, so a plain deadline on the
// await loop is enough.
const handlerTimeout = 30 * time.Second

// jsWorker is one QuickJS VM pinned to a single OS thread, loaded with a
// tenant's bundled module.
type jsWorker struct {
	vm *quickjs.VM
	rt *qjsRuntime
}

// wrapHandlersModule turns bundled ES module source into a script that
// assigns its exports onto globalThis.handlers. Adapted from the
// teacher's wrapESModule/WrapESModule: esbuild parses and emits the
// module as an IIFE, and the .default export (what "export default {...}"
// produces) is unwrapped so handler functions hang directly off
// globalThis.handlers, matching the {handlers: {fn...}} shape the
// worker pool dispatches against.
func wrapHandlersModule(source string) (string, error) {
	result := api.Transform(source, api.TransformOptions{
		Format:     api.FormatIIFE,
		GlobalName: "globalThis.handlers",
		Target:     api.ESNext,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return "", fmt.Errorf("transpiling module: %v", msgs)
	}
	code := string(result.Code)
	code += "if(globalThis.handlers&&globalThis.handlers.default)globalThis.handlers=globalThis.handlers.default;\n"
	return code, nil
}

// newWorker creates a QuickJS VM, evaluates the bundled module source
// into it, and verifies it produced a handlers object.
func newWorker(source string) (*jsWorker, error) {
	wrapped, err := wrapHandlersModule(source)
	if err != nil {
		return nil, err
	}

	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}

	rt := &qjsRuntime{vm: vm}

	if err := registerPrint(vm); err != nil {
		vm.Close()
		return nil, fmt.Errorf("registering print: %w", err)
	}

	if err := rt.Eval(wrapped); err != nil {
		vm.Close()
		return nil, fmt.Errorf("running worker module: %w", err)
	}

	ok, err := rt.EvalBool("typeof globalThis.handlers === 'object' && globalThis.handlers !== null")
	if err != nil || !ok {
		vm.Close()
		return nil, fmt.Errorf("worker module did not produce a handlers object")
	}

	return &jsWorker{vm: vm, rt: rt}, nil
}

// registerPrint wires a native print(msg) function, matching the single
// console primitive original_source's JsWorker exposes.
func registerPrint(vm *quickjs.VM) error {
	return vm.RegisterFunc("print", func(msg string) {
		fmt.Println(msg)
	}, false)
}

// close disposes the worker's VM. Safe to call once.
func (w *jsWorker) close() {
	w.vm.Close()
}

// run invokes handlers[name](req) and waits for its result, matching
// spec §4.4/§4.5. The request object is built key by key rather than
// from one JSON blob, per original_source's derive(IntoJs) which sets
// one field at a time; unlike that code (which sets fields directly on
// ctx.globals(), apparently by mistake), each request gets its own
// fresh object so concurrent requests against the same worker can never
// see each other's fields.
func (w *jsWorker) run(name string, req *core.Req) (*core.Res, error) {
	if err := buildReqObject(w.rt, req); err != nil {
		return nil, fmt.Errorf("building request object: %w", err)
	}
	defer func() { _ = w.rt.Eval("delete globalThis.__req;") }()

	hasHandler, err := w.rt.EvalBool(fmt.Sprintf(
		"typeof globalThis.handlers[%s] === 'function'", jsonLit(name)))
	if err != nil {
		return nil, fmt.Errorf("checking handler: %w", err)
	}
	if !hasHandler {
		return nil, &core.HandlerNotFound{Name: name}
	}

	callJS := fmt.Sprintf(`
		globalThis.__call_result = undefined;
		try {
			globalThis.__call_result = globalThis.handlers[%s](globalThis.__req);
		} catch (e) {
			globalThis.__call_error = (e && e.message) ? e.message : String(e);
		}
	`, jsonLit(name))
	if err := w.rt.Eval(callJS); err != nil {
		return nil, &core.HandlerThrew{Message: err.Error()}
	}

	thrown, _ := w.rt.EvalString("globalThis.__call_error || ''")
	if thrown != "" {
		_ = w.rt.Eval("delete globalThis.__call_error;")
		return nil, &core.HandlerThrew{Message: thrown}
	}

	deadline := time.Now().Add(handlerTimeout)
	if err := awaitValue(w.rt, "__call_result", deadline); err != nil {
		return nil, &core.HandlerThrew{Message: err.Error()}
	}

	return readResObject(w.rt)
}

// jsonLit renders a Go value as a JSON literal suitable for splicing into
// a JS source string. JSON is a subset of JS except for the two line
// separator code points U+2028/U+2029, which json.Marshal passes through
// literally and which JS treats as statement terminators; escape both so
// a string field can never truncate the surrounding statement.
func jsonLit(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	s := string(b)
	s = strings.ReplaceAll(s, " ", "\\u2028")
	s = strings.ReplaceAll(s, " ", "\\u2029")
	return s
}

// buildReqObject constructs globalThis.__req one field at a time.
func buildReqObject(rt *qjsRuntime, req *core.Req) error {
	if err := rt.Eval("globalThis.__req = {};"); err != nil {
		return err
	}
	if err := rt.Eval(fmt.Sprintf("globalThis.__req.method = %s;", jsonLit(req.Method))); err != nil {
		return err
	}
	if err := rt.Eval(fmt.Sprintf("globalThis.__req.url = %s;", jsonLit(req.URL))); err != nil {
		return err
	}
	if err := rt.Eval(fmt.Sprintf("globalThis.__req.query = %s;", jsonLit(nonNilMap(req.Query)))); err != nil {
		return err
	}
	if err := rt.Eval(fmt.Sprintf("globalThis.__req.headers = %s;", jsonLit(nonNilMap(req.Headers)))); err != nil {
		return err
	}
	pairs := make([][2]string, 0, len(req.Params))
	for _, p := range req.Params {
		pairs = append(pairs, [2]string{p.Key, p.Value})
	}
	if err := rt.Eval(fmt.Sprintf(
		"globalThis.__req.params = Object.fromEntries(%s);", jsonLit(pairs))); err != nil {
		return err
	}
	if req.Body == nil {
		return rt.Eval("globalThis.__req.body = null;")
	}
	return rt.Eval(fmt.Sprintf("globalThis.__req.body = %s;", jsonLit(*req.Body)))
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// jsRes mirrors the {status, headers, body} shape a handler must return,
// read back via one JSON.stringify call rather than per-property gets,
// matching the teacher's JsResponseToGo technique.
type jsRes struct {
	Status  *uint16           `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    *string           `json:"body"`
}

func readResObject(rt *qjsRuntime) (*core.Res, error) {
	resultJSON, err := rt.EvalString(`(function() {
		var r = globalThis.__call_result;
		delete globalThis.__call_result;
		if (r === null || typeof r !== 'object') return JSON.stringify(null);
		var body = null;
		if (r.body !== undefined && r.body !== null) body = String(r.body);
		return JSON.stringify({ status: r.status, headers: r.headers || {}, body: body });
	})();`)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var parsed jsRes
	if err := json.Unmarshal([]byte(resultJSON), &parsed); err != nil || parsed.Status == nil {
		return nil, &core.BadResponseShape{Reason: "handler did not return {status, headers, body}"}
	}

	return &core.Res{
		Status:  *parsed.Status,
		Headers: nonNilMap(parsed.Headers),
		Body:    parsed.Body,
	}, nil
}

// awaitValue resolves a potentially-promise value stored in globalThis,
// pumping the microtask queue until it settles or deadline passes.
// Adapted from the teacher's webapi.AwaitValue, trimmed of the event
// loop drain since this spec's workers have no timers/fetch to wait on.
func awaitValue(rt *qjsRuntime, globalVar string, deadline time.Time) error {
	isPromise, err := rt.EvalBool(fmt.Sprintf("globalThis.%s instanceof Promise", globalVar))
	if err != nil {
		return err
	}
	if !isPromise {
		return nil
	}

	setupJS := fmt.Sprintf(`
		delete globalThis.__awaited_result;
		delete globalThis.__awaited_state;
		Promise.resolve(globalThis.%s).then(
			function(r) { globalThis.__awaited_result = r; globalThis.__awaited_state = 'fulfilled'; },
			function(e) { globalThis.__awaited_result = (e && e.message) ? e.message : String(e); globalThis.__awaited_state = 'rejected'; }
		);
	`, globalVar)
	if err := rt.Eval(setupJS); err != nil {
		return fmt.Errorf("setting up promise await: %w", err)
	}

	for {
		rt.RunMicrotasks()

		state, err := rt.EvalString("String(globalThis.__awaited_state)")
		if err != nil {
			return err
		}
		if state != "undefined" {
			if state == "rejected" {
				msg, _ := rt.EvalString("String(globalThis.__awaited_result)")
				_ = rt.Eval("delete globalThis.__awaited_result; delete globalThis.__awaited_state;")
				return fmt.Errorf("%s", msg)
			}
			return rt.Eval(fmt.Sprintf(
				"globalThis.%s = globalThis.__awaited_result; delete globalThis.__awaited_result; delete globalThis.__awaited_state;",
				globalVar))
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("promise resolution timed out")
		}
		runtime.Gosched()
	}
}
