//go:build v8

package v8engine

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	v8 "github.com/tommie/v8go"

	"github.com/dinoserve/dino/internal/core"
)

const handlerTimeout = 30 * time.Second

// jsWorker is one V8 isolate+context pair loaded with a tenant's bundled
// module. Mirrors internal/qjsengine.jsWorker field-for-field so the
// pool and dispatch logic reads identically across both backends.
type jsWorker struct {
	iso *v8.Isolate
	ctx *v8.Context
	rt  *v8Runtime
}

// wrapHandlersModule is the V8-backend twin of qjsengine's
// wrapHandlersModule: same esbuild IIFE transform, same target global.
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

func newWorker(source string) (*jsWorker, error) {
	wrapped, err := wrapHandlersModule(source)
	if err != nil {
		return nil, err
	}

	iso := v8.NewIsolate()
	ctx := v8.NewContext(iso)
	rt := &v8Runtime{iso: iso, ctx: ctx}

	if err := registerPrint(iso, ctx); err != nil {
		ctx.Close()
		iso.Dispose()
		return nil, fmt.Errorf("registering print: %w", err)
	}

	if err := rt.Eval(wrapped); err != nil {
		ctx.Close()
		iso.Dispose()
		return nil, fmt.Errorf("running worker module: %w", err)
	}

	ok, err := rt.EvalBool("typeof globalThis.handlers === 'object' && globalThis.handlers !== null")
	if err != nil || !ok {
		ctx.Close()
		iso.Dispose()
		return nil, fmt.Errorf("worker module did not produce a handlers object")
	}

	return &jsWorker{iso: iso, ctx: ctx, rt: rt}, nil
}

func registerPrint(iso *v8.Isolate, ctx *v8.Context) error {
	tmpl := v8.NewFunctionTemplate(iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		args := info.Args()
		if len(args) > 0 {
			fmt.Println(args[0].String())
		}
		return nil
	})
	return ctx.Global().Set("print", tmpl.GetFunction(ctx))
}

func (w *jsWorker) close() {
	w.ctx.Close()
	w.iso.Dispose()
}

// run mirrors internal/qjsengine.jsWorker.run line for line; see that
// file for the design rationale on key-by-key request construction and
// the JSON.stringify response readback.
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

func jsonLit(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	s := string(b)
	s = strings.ReplaceAll(s, " ", "\\u2028")
	s = strings.ReplaceAll(s, " ", "\\u2029")
	return s
}

func buildReqObject(rt *v8Runtime, req *core.Req) error {
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

type jsRes struct {
	Status  *uint16           `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    *string           `json:"body"`
}

func readResObject(rt *v8Runtime) (*core.Res, error) {
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

// awaitValue is the V8-backend twin of qjsengine's awaitValue: same
// Promise.resolve(...).then(...) polling bridge, built on
// PerformMicrotaskCheckpoint instead of QuickJS's job queue drain.
func awaitValue(rt *v8Runtime, globalVar string, deadline time.Time) error {
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
